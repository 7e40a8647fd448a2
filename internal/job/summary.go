package job

import (
	"fmt"

	"github.com/vmxmig/vmxmig/internal/domain"
	"github.com/vmxmig/vmxmig/internal/netmap"
	"github.com/vmxmig/vmxmig/internal/output"
	"github.com/vmxmig/vmxmig/internal/vmx"
)

// Summarize builds the inspect view of a source VM and its plan.
func Summarize(doc *vmx.Document, plans []domain.DiskPlan, nets netmap.Rules, source string) *output.Summary {
	s := &output.Summary{
		Name:      doc.DisplayName(),
		Source:    source,
		GuestOS:   doc.GuestOS(),
		Firmware:  "bios",
		MemoryMiB: doc.MemoryMiB(),
		VCPUs:     doc.VCPUs(),
	}
	if doc.FirmwareEFI() {
		s.Firmware = "efi"
	}

	for _, plan := range plans {
		action := "convert"
		switch {
		case plan.CDROM:
			action = "cdrom"
		case plan.PassThrough:
			action = "pass-through"
		case !plan.NeedsConversion():
			action = "none"
		}
		s.Disks = append(s.Disks, output.DiskSummary{
			Device: fmt.Sprintf("%s%d:%d", plan.Device.Class, plan.Device.Controller, plan.Device.Unit),
			Source: plan.HostPath,
			Target: plan.TargetPath,
			Action: action,
		})
	}

	for _, nic := range doc.EthernetDevices() {
		target, _ := nets.Resolve(nic.NetworkName, nic.ConnectionType)
		s.Networks = append(s.Networks, output.NetworkSummary{
			Device: fmt.Sprintf("ethernet%d", nic.Index),
			Source: fmt.Sprintf("%s (%s)", nic.NetworkName, nic.ConnectionType),
			Target: target.String(),
			MAC:    nic.MAC(),
		})
	}
	return s
}
