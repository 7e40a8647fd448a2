package convert

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/naming"
	"github.com/vmxmig/vmxmig/internal/runcmd"
)

// QemuImg converts images with qemu-img convert. This is the default
// strategy; it reads the source directly and writes the target in one
// pass.
type QemuImg struct {
	runner *runcmd.Runner
	opts   Options
}

// NewQemuImg returns a qemu-img based converter.
func NewQemuImg(r *runcmd.Runner, opts Options) *QemuImg {
	return &QemuImg{runner: r, opts: opts}
}

// Convert copies source to target, optionally running the adjustment
// hook against a copy-on-write overlay first so the source is never
// written.
func (c *QemuImg) Convert(ctx context.Context, source, target string) error {
	if skipExisting(target, c.opts.Force, c.opts.Log) {
		return nil
	}

	src := source
	if c.opts.Adjust != nil {
		overlay, cleanup, err := createOverlay(ctx, c.runner, source)
		if err != nil {
			return &ConversionError{Source: source, Target: target, Err: err}
		}
		defer cleanup()
		if err := c.opts.Adjust(ctx, overlay, false); err != nil {
			return &ConversionError{Source: source, Target: target, Err: err}
		}
		src = overlay
	}

	args := convertArgs(c.opts, src, target)
	if err := c.runner.Run(ctx, args...); err != nil {
		// The partial target stays on disk for inspection; rerunning
		// the job needs force to regenerate it.
		c.opts.Log.V(logging.LevelWarn).Info(fmt.Sprintf("partial target %s left for inspection", target))
		return &ConversionError{Source: source, Target: target, Err: err}
	}
	return nil
}

func convertArgs(opts Options, source, target string) []string {
	cache := opts.cacheMode()
	args := []string{"qemu-img", "convert", "-O", opts.formatName(), "-t", cache, "-T", cache}
	if opts.Parallel > 0 {
		args = append(args, "-m", strconv.Itoa(opts.Parallel))
	}
	return append(args, source, target)
}

// createOverlay backs a temporary qcow2 overlay by source, so guest
// adjustments land in the overlay and flow into the conversion without
// touching the source.
func createOverlay(ctx context.Context, r *runcmd.Runner, source string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "overlay-*.qcow2")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create overlay file: %w", err)
	}
	tmp.Close()
	cleanup := func() { os.Remove(tmp.Name()) }

	backing := naming.DiskDriverType(source)
	if backing == "" {
		backing = "vmdk"
	}
	if err := r.Run(ctx, "qemu-img", "create", "-b", source, "-F", backing, "-f", "qcow2", tmp.Name()); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}
