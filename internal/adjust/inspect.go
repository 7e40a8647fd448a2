package adjust

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vmxmig/vmxmig/internal/runcmd"
)

// OSData is the guest operating system identity reported by
// virt-inspector.
type OSData struct {
	Name   string // e.g. "linux", "windows"
	OSInfo string // libosinfo id, e.g. "sles12sp5", "win2k19"
}

var (
	osNameRE = regexp.MustCompile(`(?m)^\s*<name>(.+)</name>\s*$`)
	osInfoRE = regexp.MustCompile(`(?m)\s*<osinfo>(.+)</osinfo>\s*$`)
)

// Inspect identifies the operating system installed on a disk image.
func Inspect(ctx context.Context, r *runcmd.Runner, path string) (OSData, error) {
	out, err := r.Output(ctx, "virt-inspector", "--no-icon", "--no-applications", "--echo-keys", path)
	if err != nil {
		return OSData{}, fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	return parseInspection(out), nil
}

func parseInspection(out string) OSData {
	var osd OSData
	if m := osNameRE.FindStringSubmatch(out); m != nil {
		osd.Name = m[1]
	}
	if m := osInfoRE.FindStringSubmatch(out); m != nil {
		osd.OSInfo = m[1]
	}
	return osd
}
