package testboot

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
)

// Probe decides whether a started domain counts as booted. Wait blocks
// until the probe passes or ctx expires; an expired ctx means the
// guest never came up.
type Probe interface {
	Wait(ctx context.Context, c libvirtClient, dom libvirt.Domain) error
}

// addressSourceLease selects DHCP lease records
// (VIR_DOMAIN_INTERFACE_ADDRESSES_SRC_LEASE).
const addressSourceLease = 0

// LeaseProbe passes once the guest holds at least one interface
// address from a DHCP lease. This proves the guest booted far enough
// to configure networking.
type LeaseProbe struct {
	// Interval between polls; defaults to 2s.
	Interval time.Duration
}

func (p LeaseProbe) Wait(ctx context.Context, c libvirtClient, dom libvirt.Domain) error {
	interval := p.Interval
	if interval == 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ifaces, err := c.DomainInterfaceAddresses(dom, addressSourceLease, 0)
		if err == nil && len(ifaces) > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("guest acquired no address lease: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// SettleProbe waits passively and then checks the domain is still
// running. Weaker than LeaseProbe but works for guests without a qemu
// agent or DHCP networking.
type SettleProbe struct {
	// Delay before the state check; defaults to 30s, capped by ctx.
	Delay time.Duration
}

func (p SettleProbe) Wait(ctx context.Context, c libvirtClient, dom libvirt.Domain) error {
	delay := p.Delay
	if delay == 0 {
		delay = 30 * time.Second
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	state, _, err := c.DomainGetState(dom, 0)
	if err != nil {
		return fmt.Errorf("failed to check domain state: %w", err)
	}
	if state != domainStateRunning {
		return fmt.Errorf("domain left the running state (state %d)", state)
	}
	return nil
}

// ProbeByName maps the CLI probe selector to an implementation.
func ProbeByName(name string) (Probe, error) {
	switch name {
	case "", "lease":
		return LeaseProbe{}, nil
	case "settle":
		return SettleProbe{}, nil
	}
	return nil, fmt.Errorf("unknown probe %q: want lease or settle", name)
}
