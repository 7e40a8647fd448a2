package libvirt

import (
	"context"
	"testing"
	"time"
)

// Connection tests are integration tests: they need a running libvirt
// daemon and skip when one is not available.

func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	c, err := Connect("", 0)
	if err != nil {
		t.Skipf("libvirt not available: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return c
}

func TestConnect(t *testing.T) {
	c := connectOrSkip(t)
	version, err := c.Libvirt().ConnectGetLibVersion()
	if err != nil {
		t.Fatalf("ConnectGetLibVersion failed: %v", err)
	}
	if version == 0 {
		t.Fatal("got version 0, expected non-zero")
	}
}

func TestConnect_InvalidSocket(t *testing.T) {
	_, err := Connect("/nonexistent/socket", 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected error connecting to nonexistent socket, got nil")
	}
}

func TestConnectWithContext_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ConnectWithContext(ctx, "", 0); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestClose_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	c, err := Connect("", 0)
	if err != nil {
		t.Skipf("libvirt not available: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestClose_NeverConnected(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on zero client failed: %v", err)
	}
}
