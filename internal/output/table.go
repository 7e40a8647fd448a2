package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// TableFormatter formats summaries as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatSummary formats one VM with its full disk and network plan.
func (f *TableFormatter) FormatSummary(s *Summary) (string, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Name:      %s\n", s.Name)
	fmt.Fprintf(&buf, "Source:    %s\n", s.Source)
	if s.GuestOS != "" {
		fmt.Fprintf(&buf, "Guest OS:  %s\n", s.GuestOS)
	}
	fmt.Fprintf(&buf, "Firmware:  %s\n", s.Firmware)
	fmt.Fprintf(&buf, "Memory:    %d MiB\n", s.MemoryMiB)
	fmt.Fprintf(&buf, "vCPUs:     %d\n", s.VCPUs)

	if len(s.Disks) > 0 {
		buf.WriteString("\nDisks:\n")
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		if !f.NoHeaders {
			fmt.Fprintln(w, "  DEVICE\tACTION\tSOURCE\tTARGET")
		}
		for _, d := range s.Disks {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", d.Device, d.Action, d.Source, d.Target)
		}
		w.Flush()
	}

	if len(s.Networks) > 0 {
		buf.WriteString("\nNetworks:\n")
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		if !f.NoHeaders {
			fmt.Fprintln(w, "  DEVICE\tSOURCE\tTARGET\tMAC")
		}
		for _, n := range s.Networks {
			mac := n.MAC
			if mac == "" {
				mac = "-"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", n.Device, n.Source, n.Target, mac)
		}
		w.Flush()
	}

	return buf.String(), nil
}

// FormatSummaryList formats one row per VM.
func (f *TableFormatter) FormatSummaryList(list []*Summary) (string, error) {
	if len(list) == 0 {
		return "No VMs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		fmt.Fprintln(w, "NAME\tGUEST OS\tFIRMWARE\tVCPUS\tMEMORY\tDISKS\tNICS")
	}

	for _, s := range list {
		guestOS := s.GuestOS
		if guestOS == "" {
			guestOS = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d MiB\t%d\t%d\n",
			s.Name, guestOS, s.Firmware, s.VCPUs, s.MemoryMiB, len(s.Disks), len(s.Networks))
	}

	w.Flush()
	return buf.String(), nil
}
