package runcmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vmxmig/vmxmig/internal/logging"
)

func TestRun(t *testing.T) {
	r := New(logging.Discard())
	if err := r.Run(context.Background(), "true"); err != nil {
		t.Fatalf("Run(true) error = %v", err)
	}
	if err := r.Run(context.Background(), "false"); err == nil {
		t.Fatal("Run(false) error = nil, want non-nil")
	}
}

func TestRunEmptyCommand(t *testing.T) {
	r := New(logging.Discard())
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("Run() with no argv succeeded")
	}
}

func TestOutput(t *testing.T) {
	r := New(logging.Discard())
	out, err := r.Output(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("Output() = %q, want hello", out)
	}
}

func TestCaptureReceivesToolOutput(t *testing.T) {
	var capture bytes.Buffer
	r := New(logging.Discard())
	r.Capture = &capture

	if err := r.Run(context.Background(), "sh", "-c", "echo out; echo err >&2"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := capture.String()
	if !strings.Contains(got, "out") || !strings.Contains(got, "err") {
		t.Errorf("capture = %q, want both streams", got)
	}
}

func TestRunFailureIncludesStderr(t *testing.T) {
	r := New(logging.Discard())
	err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("Run() error = nil")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q does not carry stderr detail", err)
	}
}

func TestRunCancelled(t *testing.T) {
	r := New(logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Run(ctx, "sleep", "10")
	if err == nil {
		t.Fatal("Run() error = nil after cancellation")
	}
}

func TestDetectVersion(t *testing.T) {
	r := New(logging.Discard())

	v, err := r.DetectVersion(context.Background(), `(\d+\.\d+)`, "echo", "tool version 8.2.1")
	if err != nil {
		t.Fatalf("DetectVersion() error = %v", err)
	}
	if v != 8.2 {
		t.Errorf("DetectVersion() = %g, want 8.2", v)
	}

	if _, err := r.DetectVersion(context.Background(), `(\d+\.\d+)`, "echo", "no digits here"); err == nil {
		t.Error("DetectVersion() error = nil for unversioned output")
	}

	if _, err := r.DetectVersion(context.Background(), `(\d+\.\d+)`, "definitely-not-a-command-xyz"); err == nil {
		t.Error("DetectVersion() error = nil for missing tool")
	}
}
