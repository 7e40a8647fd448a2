package convert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/naming"
	"github.com/vmxmig/vmxmig/internal/runcmd"
)

// NBD converts images by exporting source and target over qemu-nbd
// unix sockets and streaming between them with nbdcopy. Slower to set
// up than qemu-img convert but copes with source formats qemu-img
// cannot stream directly.
type NBD struct {
	runner *runcmd.Runner
	opts   Options
}

// NewNBD returns a qemu-nbd/nbdcopy based converter.
func NewNBD(r *runcmd.Runner, opts Options) *NBD {
	return &NBD{runner: r, opts: opts}
}

// Convert exports source read-only (or as a snapshot when adjusting),
// creates the target image at the source's virtual size, exports it
// writable, and streams the data across.
func (c *NBD) Convert(ctx context.Context, source, target string) error {
	fail := func(err error) error {
		return &ConversionError{Source: source, Target: target, Err: err}
	}

	if skipExisting(target, c.opts.Force, c.opts.Log) {
		return nil
	}

	adjusting := c.opts.Adjust != nil
	src, err := c.serve(ctx, source, serveOptions{
		format:   naming.DiskDriverType(source),
		readOnly: !adjusting,
		snapshot: adjusting,
	})
	if err != nil {
		return fail(err)
	}
	defer src.stop()

	if adjusting {
		if err := c.opts.Adjust(ctx, src.socket, true); err != nil {
			return fail(err)
		}
	}

	size, err := Info(ctx, c.runner, source)
	if err != nil {
		return fail(err)
	}
	if err := c.runner.Run(ctx, "qemu-img", "create", "-f", c.opts.formatName(), target, strconv.FormatInt(size, 10)); err != nil {
		return fail(err)
	}

	dst, err := c.serve(ctx, target, serveOptions{format: c.opts.formatName()})
	if err != nil {
		return fail(err)
	}
	defer dst.stop()

	if err := c.runner.Run(ctx, copyArgs(c.opts, src.socket, dst.socket)...); err != nil {
		// The partial target stays on disk for inspection; rerunning
		// the job needs force to regenerate it.
		c.opts.Log.V(logging.LevelWarn).Info(fmt.Sprintf("partial target %s left for inspection", target))
		return fail(err)
	}
	return nil
}

func copyArgs(opts Options, srcSocket, dstSocket string) []string {
	args := []string{"nbdcopy", nbdURI(srcSocket), nbdURI(dstSocket), "--requests=64", "--flush"}
	if opts.Parallel > 0 {
		p := strconv.Itoa(opts.Parallel)
		args = append(args, "-C", p, "-T", p)
	}
	return args
}

func nbdURI(socket string) string {
	return "nbd+unix:///?socket=" + socket
}

type serveOptions struct {
	format   string // "" lets qemu-nbd probe
	readOnly bool
	snapshot bool // serve a transient snapshot, keeping the image pristine
}

func serveArgs(image, socket, cacheMode string, o serveOptions) []string {
	args := []string{"qemu-nbd", "--cache=" + cacheMode, "-t", "--shared=0", "--discard=unmap", "--socket", socket}
	if o.format != "" {
		args = append(args, "-f", o.format)
	}
	if o.snapshot {
		args = append(args, "-s")
	}
	if o.readOnly {
		args = append(args, "-r")
	}
	return append(args, image)
}

// server is one running qemu-nbd export.
type server struct {
	cmd    *exec.Cmd
	socket string
	dir    string
}

// serve starts qemu-nbd for image and waits until the export answers
// nbdinfo, or ctx expires.
func (c *NBD) serve(ctx context.Context, image string, o serveOptions) (*server, error) {
	dir, err := os.MkdirTemp("", "nbd-")
	if err != nil {
		return nil, fmt.Errorf("failed to create socket dir: %w", err)
	}
	socket := filepath.Join(dir, "nbd.sock")

	args := serveArgs(image, socket, c.opts.cacheMode(), o)
	c.opts.Log.V(logging.LevelDebug).Info(strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to start qemu-nbd: %w", err)
	}
	s := &server{cmd: cmd, socket: socket, dir: dir}

	if err := c.waitReady(ctx, socket); err != nil {
		s.stop()
		return nil, fmt.Errorf("qemu-nbd export of %s never became ready: %w", image, err)
	}
	return s, nil
}

// waitReady polls nbdinfo until the export answers.
func (c *NBD) waitReady(ctx context.Context, socket string) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		probe := exec.CommandContext(ctx, "nbdinfo", nbdURI(socket))
		if probe.Run() == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *server) stop() {
	if s.cmd.Process != nil {
		s.cmd.Process.Signal(syscall.SIGTERM)
		s.cmd.Wait()
	}
	os.RemoveAll(s.dir)
}
