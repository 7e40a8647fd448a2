package output

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// createTestSummary creates a Summary for testing.
func createTestSummary(name string) *Summary {
	return &Summary{
		Name:      name,
		Source:    "/src/" + name + "/" + name + ".vmx",
		GuestOS:   "sles12-64",
		Firmware:  "bios",
		MemoryMiB: 4096,
		VCPUs:     2,
		Disks: []DiskSummary{
			{
				Device: "scsi0:0",
				Source: "/src/" + name + "/" + name + ".vmdk",
				Target: "/dst/" + name + "/" + name + ".qcow2",
				Action: "convert",
			},
			{
				Device: "sata0:0",
				Source: "/isos/install.iso",
				Target: "/isos/install.iso",
				Action: "cdrom",
			},
		},
		Networks: []NetworkSummary{
			{
				Device: "ethernet0",
				Source: "VM Network (bridged)",
				Target: "bridge:br0",
				MAC:    "00:0c:29:aa:bb:cc",
			},
		},
	}
}

func TestTableFormatter_FormatSummary(t *testing.T) {
	formatter := &TableFormatter{}
	out, err := formatter.FormatSummary(createTestSummary("vm1"))
	if err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}

	for _, want := range []string{"vm1", "sles12-64", "4096 MiB", "scsi0:0", "convert", "/dst/vm1/vm1.qcow2", "ethernet0", "bridge:br0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableFormatter_FormatSummaryList(t *testing.T) {
	formatter := &TableFormatter{}

	out, err := formatter.FormatSummaryList([]*Summary{createTestSummary("vm1"), createTestSummary("vm2")})
	if err != nil {
		t.Fatalf("FormatSummaryList() error = %v", err)
	}
	if !strings.Contains(out, "NAME") {
		t.Error("output missing header row")
	}
	if !strings.Contains(out, "vm1") || !strings.Contains(out, "vm2") {
		t.Errorf("output missing rows:\n%s", out)
	}

	out, err = formatter.FormatSummaryList(nil)
	if err != nil {
		t.Fatalf("FormatSummaryList(nil) error = %v", err)
	}
	if !strings.Contains(out, "No VMs found") {
		t.Errorf("empty list output = %q", out)
	}
}

func TestTableFormatter_NoHeaders(t *testing.T) {
	formatter := &TableFormatter{NoHeaders: true}
	out, err := formatter.FormatSummaryList([]*Summary{createTestSummary("vm1")})
	if err != nil {
		t.Fatalf("FormatSummaryList() error = %v", err)
	}
	if strings.Contains(out, "NAME") {
		t.Errorf("headers present despite NoHeaders:\n%s", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	formatter := &JSONFormatter{}

	out, err := formatter.FormatSummary(createTestSummary("vm1"))
	if err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}
	var got Summary
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.Name != "vm1" || len(got.Disks) != 2 {
		t.Errorf("round-trip = %+v", got)
	}

	out, err = formatter.FormatSummaryList(nil)
	if err != nil {
		t.Fatalf("FormatSummaryList(nil) error = %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("empty list = %q, want []", out)
	}
}

func TestYAMLFormatter(t *testing.T) {
	formatter := &YAMLFormatter{}

	out, err := formatter.FormatSummary(createTestSummary("vm1"))
	if err != nil {
		t.Fatalf("FormatSummary() error = %v", err)
	}
	var got Summary
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if got.Name != "vm1" {
		t.Errorf("round-trip name = %q", got.Name)
	}

	out, err = formatter.FormatSummaryList([]*Summary{createTestSummary("a"), createTestSummary("b")})
	if err != nil {
		t.Fatalf("FormatSummaryList() error = %v", err)
	}
	if !strings.Contains(out, "---") {
		t.Error("multi-document output missing separator")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  Format
		wantErr bool
	}{
		{FormatTable, false},
		{FormatYAML, false},
		{FormatJSON, false},
		{Format("xml"), true},
	}

	for _, tt := range tests {
		_, err := NewFormatter(Options{Format: tt.format})
		if (err != nil) != tt.wantErr {
			t.Errorf("NewFormatter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormat(t *testing.T) {
	for _, valid := range []string{"table", "yaml", "json"} {
		if err := ValidateFormat(valid); err != nil {
			t.Errorf("ValidateFormat(%q) = %v", valid, err)
		}
	}
	if err := ValidateFormat("csv"); err == nil {
		t.Error("ValidateFormat(csv) = nil, want error")
	}
}
