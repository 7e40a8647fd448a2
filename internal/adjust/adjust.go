// Package adjust prepares guest filesystems for booting under KVM:
// virtio drivers, regenerated boot configuration, fstrim. Two engines
// are available: virt-v2v-in-place, and the experimental
// adjust-guestfs helper which can also operate over an NBD export.
//
// Windows guests are not adjustable in place; they need a full
// virt-v2v conversion, and asking for in-place adjustment of one is an
// error rather than a silent no-op.
package adjust

import (
	"context"
	"fmt"
	"strings"

	"github.com/vmxmig/vmxmig/internal/runcmd"
)

// Adjuster adjusts the guest data in image. image is a disk image
// path, or an NBD unix socket path when viaNBD is true.
type Adjuster interface {
	Adjust(ctx context.Context, image string, viaNBD bool) error
}

// Actions selects what the experimental engine changes in the guest.
type Actions struct {
	// Drivers enables virtio driver and boot configuration injection.
	Drivers bool
	// Trim discards unused blocks so the converted image stays sparse.
	Trim bool
}

// AdjustError wraps a failed guest adjustment.
type AdjustError struct {
	Image string
	Err   error
}

func (e *AdjustError) Error() string {
	return fmt.Sprintf("failed to adjust guest in %s: %v", e.Image, e.Err)
}

func (e *AdjustError) Unwrap() error { return e.Err }

// UnsupportedGuestError reports a guest family that cannot be adjusted
// in place.
type UnsupportedGuestError struct {
	OS string
}

func (e *UnsupportedGuestError) Error() string {
	return fmt.Sprintf("guest %q cannot be adjusted in place, migrate it with a full virt-v2v conversion", e.OS)
}

// CheckSupported rejects guest OS identifiers the in-place engines
// cannot handle.
func CheckSupported(guestOS string) error {
	if strings.Contains(strings.ToLower(guestOS), "win") {
		return &UnsupportedGuestError{OS: guestOS}
	}
	return nil
}

// V2VInPlace adjusts with virt-v2v-in-place. It operates on files
// only; an NBD export cannot be handed to it.
type V2VInPlace struct {
	Runner *runcmd.Runner
	// Verbose and Quiet mirror the counted CLI flags and are
	// forwarded to the tool.
	Verbose int
	Quiet   int
}

// Adjust runs virt-v2v-in-place against the image file.
func (a *V2VInPlace) Adjust(ctx context.Context, image string, viaNBD bool) error {
	if viaNBD {
		return &AdjustError{Image: image, Err: fmt.Errorf("virt-v2v-in-place cannot operate on an NBD export")}
	}
	args := []string{"virt-v2v-in-place", "--root=first", "-i", "disk"}
	if a.Quiet > a.Verbose {
		args = append(args, "--quiet")
	}
	if a.Verbose >= 2 {
		args = append(args, "-x")
	}
	args = append(args, image)
	if err := a.Runner.Run(ctx, args...); err != nil {
		return &AdjustError{Image: image, Err: err}
	}
	return nil
}

// Experimental adjusts with the adjust-guestfs helper, which accepts
// either a file (-f) or an NBD socket (-n).
type Experimental struct {
	Runner  *runcmd.Runner
	Actions Actions
	Verbose int
	Quiet   int
}

// DetectVersion verifies the helper is installed and recent enough to
// trust; call it once before the first adjustment.
func (a *Experimental) DetectVersion(ctx context.Context) (float64, error) {
	return a.Runner.DetectVersion(ctx, `(\d+\.\d+)`, "adjust-guestfs", "--version")
}

// Adjust runs the helper against the image or NBD export.
func (a *Experimental) Adjust(ctx context.Context, image string, viaNBD bool) error {
	mode := "-f"
	if viaNBD {
		mode = "-n"
	}
	args := []string{"adjust-guestfs", mode, image}
	if a.Actions.Drivers {
		args = append(args, "-d")
	}
	if a.Actions.Trim {
		args = append(args, "-t")
	}
	for i := 0; i < a.Verbose; i++ {
		args = append(args, "-v")
	}
	for i := 0; i < a.Quiet; i++ {
		args = append(args, "-q")
	}
	if err := a.Runner.Run(ctx, args...); err != nil {
		return &AdjustError{Image: image, Err: err}
	}
	return nil
}
