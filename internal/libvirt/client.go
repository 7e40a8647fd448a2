package libvirt

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
)

// DefaultSocket is the qemu:///system local connection socket.
const DefaultSocket = "/var/run/libvirt/libvirt-sock"

const defaultDialTimeout = 5 * time.Second

// Client is a connected libvirt session.
type Client struct {
	libvirt *libvirt.Libvirt
}

// Connect dials the local daemon over a Unix socket. An empty
// socketPath selects DefaultSocket; a zero timeout selects a 5 second
// dial timeout. Close the returned Client when done.
func Connect(socketPath string, timeout time.Duration) (*Client, error) {
	if socketPath == "" {
		socketPath = DefaultSocket
	}
	if timeout == 0 {
		timeout = defaultDialTimeout
	}

	l := libvirt.NewWithDialer(dialers.NewLocal(
		dialers.WithSocket(socketPath),
		dialers.WithLocalTimeout(timeout),
	))
	if err := l.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt at %s: %w", socketPath, err)
	}
	return &Client{libvirt: l}, nil
}

// ConnectWithContext is Connect abandoned early when ctx is cancelled.
// The in-flight dial itself is not interrupted; its result is
// discarded.
func ConnectWithContext(ctx context.Context, socketPath string, timeout time.Duration) (*Client, error) {
	type result struct {
		client *Client
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		c, err := Connect(socketPath, timeout)
		resultCh <- result{client: c, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
	case res := <-resultCh:
		return res.client, res.err
	}
}

// Close disconnects from the daemon. It is safe to call Close more
// than once.
func (c *Client) Close() error {
	if c.libvirt == nil {
		return nil
	}
	if err := c.libvirt.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from libvirt: %w", err)
	}
	return nil
}

// Libvirt exposes the underlying go-libvirt client. The boot validator
// drives the domain and network lifecycle API on it directly.
func (c *Client) Libvirt() *libvirt.Libvirt {
	return c.libvirt
}
