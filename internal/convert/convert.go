// Package convert copies source disk images into target artifacts.
//
// Two strategies are provided: the default qemu-img convert path, and
// a qemu-nbd/nbdcopy path for sources whose format qemu-img cannot
// stream directly. Both honor the skip-if-exists rerun rule, and both
// can run a guest adjustment hook against the source data without ever
// writing the source image itself.
package convert

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/vmxmig/vmxmig/internal/config"
	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/runcmd"
)

// Converter copies one source disk image to the target path.
type Converter interface {
	Convert(ctx context.Context, source, target string) error
}

// AdjustFunc adjusts guest data before it is copied to the target.
// The image argument is an overlay file path, or an NBD unix socket
// path when viaNBD is true. The source image is never the argument.
type AdjustFunc func(ctx context.Context, image string, viaNBD bool) error

// Options is shared converter configuration.
type Options struct {
	Format    config.Format
	CacheMode string
	// Parallel bounds copy parallelism (qemu-img -m, nbdcopy -C/-T);
	// 0 leaves the tool default.
	Parallel int
	// Force re-converts even when the target artifact exists.
	Force bool
	// Adjust, when set, runs against the source data before the copy.
	Adjust AdjustFunc
	Log    logr.Logger
}

func (o Options) cacheMode() string {
	if o.CacheMode == "" {
		return "writeback"
	}
	return o.CacheMode
}

func (o Options) formatName() string {
	if o.Format == config.FormatRaw {
		return "raw"
	}
	return "qcow2"
}

// ConversionError wraps a failed image conversion with its endpoints.
type ConversionError struct {
	Source string
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s to %s: %v", e.Source, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// skipExisting implements the rerun rule: an existing target artifact
// is trusted and skipped unless force is set.
func skipExisting(target string, force bool, log logr.Logger) bool {
	if force {
		return false
	}
	if _, err := os.Stat(target); err != nil {
		return false
	}
	log.V(logging.LevelInfo).Info(fmt.Sprintf("%s: already exists, skipping conversion", target))
	return true
}

var virtualSizeRE = regexp.MustCompile(`(?m)^virtual size:.*\((\d+) bytes\)`)

// Info returns the virtual size of a disk image in bytes. The image
// may be in use (qemu-img info -U).
func Info(ctx context.Context, r *runcmd.Runner, path string) (int64, error) {
	out, err := r.Output(ctx, "qemu-img", "info", "-U", path)
	if err != nil {
		return 0, err
	}
	m := virtualSizeRE.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("%s: failed to parse virtual size from qemu-img info", path)
	}
	size, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: bad virtual size %q: %w", path, m[1], err)
	}
	return size, nil
}
