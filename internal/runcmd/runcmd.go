// Package runcmd executes the external conversion tools (qemu-img,
// qemu-nbd, nbdcopy, virt-v2v, virt-inspector, ...) and detects their
// versions.
//
// Every invocation echoes its argv at debug verbosity and can capture
// combined tool output into the per-job capture artifact.
package runcmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/vmxmig/vmxmig/internal/logging"
)

// Runner runs external commands. Capture, when set, receives the
// combined stdout/stderr of every command (append-only, for post-hoc
// diagnosis; never parsed back in).
type Runner struct {
	Log     logr.Logger
	Capture io.Writer
}

// New returns a Runner logging through log.
func New(log logr.Logger) *Runner {
	return &Runner{Log: log}
}

// Run executes argv and waits. The command's combined output goes to
// the capture writer when one is set. A non-zero exit is an error
// carrying the trailing stderr.
func (r *Runner) Run(ctx context.Context, argv ...string) error {
	_, err := r.run(ctx, false, argv)
	return err
}

// Output executes argv and returns its stdout. Stderr goes to the
// capture writer.
func (r *Runner) Output(ctx context.Context, argv ...string) (string, error) {
	return r.run(ctx, true, argv)
}

func (r *Runner) run(ctx context.Context, wantOutput bool, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty command")
	}
	r.Log.V(logging.LevelDebug).Info(strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	if wantOutput {
		cmd.Stdout = &stdout
	} else if r.Capture != nil {
		cmd.Stdout = r.Capture
	}
	if r.Capture != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Capture)
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s interrupted: %w", argv[0], ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%s failed: %w: %s", argv[0], err, lastLine(detail))
		}
		return "", fmt.Errorf("%s failed: %w", argv[0], err)
	}
	return stdout.String(), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// DetectVersion runs argv and extracts a major.minor version with the
// given pattern (which must have one capture group). Used to verify a
// required tool is installed before the pipeline depends on it.
func (r *Runner) DetectVersion(ctx context.Context, pattern string, argv ...string) (float64, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid version pattern %q: %w", pattern, err)
	}
	out, err := r.Output(ctx, argv...)
	if err != nil {
		return 0, fmt.Errorf("%s not found: %w", argv[0], err)
	}
	m := re.FindStringSubmatch(out)
	if m == nil || len(m) < 2 {
		return 0, fmt.Errorf("%s: failed to detect version in %q", argv[0], strings.TrimSpace(out))
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%s: failed to parse version %q", argv[0], m[1])
	}
	r.Log.V(logging.LevelInfo).Info(fmt.Sprintf("%s: detected version %g", argv[0], v))
	return v, nil
}
