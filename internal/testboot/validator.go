package testboot

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/go-logr/logr"
	"libvirt.org/go/libvirtxml"

	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/naming"
)

// Result classifies a boot test outcome.
type Result int

const (
	// Success means the guest booted and passed the probe.
	Success Result = iota
	// ScriptFailure means the instance never started: the harness
	// failed, or libvirt refused to define or start the domain.
	ScriptFailure
	// BootFailure means the instance started but the guest never
	// signalled readiness within the timeout.
	BootFailure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case ScriptFailure:
		return "SCRIPT_FAILURE"
	case BootFailure:
		return "BOOT_FAILURE"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// ExitCode maps the result to the testboot process exit code.
func (r Result) ExitCode() int {
	switch r {
	case Success:
		return 0
	case ScriptFailure:
		return 1
	default:
		return 2
	}
}

// Domain states (VIR_DOMAIN_* constants).
const (
	domainStateRunning = 1
	domainStateShutoff = 5
)

// Validator boot-tests domain definitions. The zero value is not
// usable; construct with New.
type Validator struct {
	client libvirtClient
	log    logr.Logger

	// Probe judges guest liveness after start.
	Probe Probe
	// Timeout bounds the probe phase.
	Timeout time.Duration
	// Isolated re-homes every interface onto a transient isolated
	// network so the test guest never touches production networks.
	Isolated bool
	// Keep suppresses teardown so a failed boot can be inspected.
	Keep bool
}

// New returns a Validator with the default lease probe and a one
// minute boot timeout.
func New(client libvirtClient, log logr.Logger) *Validator {
	return &Validator{
		client:  client,
		log:     log,
		Probe:   LeaseProbe{},
		Timeout: time.Minute,
	}
}

// Validate defines the domain under a transient instance name, starts
// it, and probes for liveness. The transient instance is destroyed and
// undefined exactly once before Validate returns, on every path
// including cancellation, unless Keep is set. The returned error
// details the failure the Result classifies.
func (v *Validator) Validate(ctx context.Context, domainXML string) (Result, error) {
	var def libvirtxml.Domain
	if err := def.Unmarshal(domainXML); err != nil {
		return ScriptFailure, fmt.Errorf("failed to parse domain XML: %w", err)
	}

	def.Name = naming.TransientInstance(def.Name)
	// The source domain may already be defined on this host; the
	// transient instance must not collide with its identity.
	def.UUID = ""

	if v.Isolated {
		net, err := v.createIsolatedNetwork(def.Name)
		if err != nil {
			return ScriptFailure, err
		}
		defer func() {
			if v.Keep {
				return
			}
			if err := v.client.NetworkDestroy(net); err != nil {
				v.log.V(logging.LevelWarn).Info(fmt.Sprintf("failed to destroy network %s: %v", net.Name, err))
			}
		}()
		rehomeInterfaces(&def, net.Name)
	}

	xml, err := def.Marshal()
	if err != nil {
		return ScriptFailure, fmt.Errorf("failed to marshal test domain XML: %w", err)
	}

	dom, err := v.client.DomainDefineXML(xml)
	if err != nil {
		return ScriptFailure, fmt.Errorf("libvirt rejected the domain definition: %w", err)
	}
	v.log.V(logging.LevelInfo).Info(fmt.Sprintf("defined transient instance %s", def.Name))

	defer func() {
		if v.Keep {
			v.log.V(logging.LevelWarn).Info(fmt.Sprintf("keeping instance %s for debugging", def.Name))
			return
		}
		v.teardown(dom)
	}()

	if err := v.client.DomainCreate(dom); err != nil {
		return ScriptFailure, fmt.Errorf("failed to start domain %s: %w", def.Name, err)
	}
	v.log.V(logging.LevelInfo).Info(fmt.Sprintf("started %s, probing for liveness", def.Name))

	probeCtx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()
	if err := v.Probe.Wait(probeCtx, v.client, dom); err != nil {
		return BootFailure, fmt.Errorf("domain %s failed the boot probe: %w", def.Name, err)
	}

	v.log.V(logging.LevelInfo).Info(fmt.Sprintf("%s booted successfully", def.Name))
	return Success, nil
}

// teardown stops and undefines the transient instance. Failures are
// logged, not returned: teardown runs on error paths where the
// original failure matters more.
func (v *Validator) teardown(dom libvirt.Domain) {
	state, _, err := v.client.DomainGetState(dom, 0)
	if err != nil {
		v.log.V(logging.LevelWarn).Info(fmt.Sprintf("failed to check state of %s: %v", dom.Name, err))
	}
	if err == nil && state == domainStateRunning {
		if err := v.client.DomainDestroy(dom); err != nil {
			v.log.V(logging.LevelWarn).Info(fmt.Sprintf("failed to destroy %s: %v", dom.Name, err))
		}
	}
	if err := v.client.DomainUndefineFlags(dom, libvirt.DomainUndefineNvram); err != nil {
		v.log.V(logging.LevelWarn).Info(fmt.Sprintf("failed to undefine %s: %v", dom.Name, err))
	}
}

// createIsolatedNetwork creates a transient network with no forward
// element and a DHCP range, so the lease probe works without touching
// any production network.
func (v *Validator) createIsolatedNetwork(name string) (libvirt.Network, error) {
	def := &libvirtxml.Network{
		Name:   name,
		Bridge: &libvirtxml.NetworkBridge{STP: "on"},
		IPs: []libvirtxml.NetworkIP{
			{
				Address: "192.168.233.1",
				Netmask: "255.255.255.0",
				DHCP: &libvirtxml.NetworkDHCP{
					Ranges: []libvirtxml.NetworkDHCPRange{
						{Start: "192.168.233.2", End: "192.168.233.254"},
					},
				},
			},
		},
	}
	xml, err := def.Marshal()
	if err != nil {
		return libvirt.Network{}, fmt.Errorf("failed to marshal network XML: %w", err)
	}
	net, err := v.client.NetworkCreateXML(xml)
	if err != nil {
		return libvirt.Network{}, fmt.Errorf("failed to create isolated network: %w", err)
	}
	return net, nil
}

// rehomeInterfaces points every interface at the named network,
// keeping MAC addresses and models.
func rehomeInterfaces(def *libvirtxml.Domain, network string) {
	if def.Devices == nil {
		return
	}
	for i := range def.Devices.Interfaces {
		def.Devices.Interfaces[i].Source = &libvirtxml.DomainInterfaceSource{
			Network: &libvirtxml.DomainInterfaceSourceNetwork{Network: network},
		}
	}
}
