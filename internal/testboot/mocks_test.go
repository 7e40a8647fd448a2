package testboot

import (
	"sync"

	"github.com/digitalocean/go-libvirt"
)

// mockLibvirtClient is a mock implementation of the libvirtClient
// interface for testing.
type mockLibvirtClient struct {
	mu sync.Mutex

	// Configurable behavior
	domainDefineXMLFunc          func(xml string) (libvirt.Domain, error)
	domainCreateFunc             func(dom libvirt.Domain) error
	domainGetStateFunc           func(dom libvirt.Domain, flags uint32) (int32, int32, error)
	domainDestroyFunc            func(dom libvirt.Domain) error
	domainUndefineFlagsFunc      func(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error
	domainInterfaceAddressesFunc func(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error)
	networkCreateXMLFunc         func(xml string) (libvirt.Network, error)
	networkDestroyFunc           func(net libvirt.Network) error

	// Call tracking
	domainDefineXMLCalls          []string
	domainCreateCalls             []libvirt.Domain
	domainGetStateCalls           []libvirt.Domain
	domainDestroyCalls            []libvirt.Domain
	domainUndefineFlagsCalls      []libvirt.Domain
	domainInterfaceAddressesCalls []libvirt.Domain
	networkCreateXMLCalls         []string
	networkDestroyCalls           []libvirt.Network
}

// newMockLibvirtClient returns a mock where define, start, and
// teardown succeed, the domain reports running, and the guest holds
// one address lease.
func newMockLibvirtClient() *mockLibvirtClient {
	m := &mockLibvirtClient{}

	m.domainDefineXMLFunc = func(xml string) (libvirt.Domain, error) {
		return libvirt.Domain{Name: "test-instance"}, nil
	}
	m.domainCreateFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.domainGetStateFunc = func(dom libvirt.Domain, flags uint32) (int32, int32, error) {
		return domainStateRunning, 0, nil
	}
	m.domainDestroyFunc = func(dom libvirt.Domain) error {
		return nil
	}
	m.domainUndefineFlagsFunc = func(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error {
		return nil
	}
	m.domainInterfaceAddressesFunc = func(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error) {
		return []libvirt.DomainInterface{{}}, nil
	}
	m.networkCreateXMLFunc = func(xml string) (libvirt.Network, error) {
		return libvirt.Network{Name: "test-net"}, nil
	}
	m.networkDestroyFunc = func(net libvirt.Network) error {
		return nil
	}
	return m
}

func (m *mockLibvirtClient) DomainDefineXML(xml string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDefineXMLCalls = append(m.domainDefineXMLCalls, xml)
	return m.domainDefineXMLFunc(xml)
}

func (m *mockLibvirtClient) DomainCreate(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainCreateCalls = append(m.domainCreateCalls, dom)
	return m.domainCreateFunc(dom)
}

func (m *mockLibvirtClient) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainGetStateCalls = append(m.domainGetStateCalls, dom)
	return m.domainGetStateFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainDestroy(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDestroyCalls = append(m.domainDestroyCalls, dom)
	return m.domainDestroyFunc(dom)
}

func (m *mockLibvirtClient) DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainUndefineFlagsCalls = append(m.domainUndefineFlagsCalls, dom)
	return m.domainUndefineFlagsFunc(dom, flags)
}

func (m *mockLibvirtClient) DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainInterfaceAddressesCalls = append(m.domainInterfaceAddressesCalls, dom)
	return m.domainInterfaceAddressesFunc(dom, source, flags)
}

func (m *mockLibvirtClient) NetworkCreateXML(xml string) (libvirt.Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkCreateXMLCalls = append(m.networkCreateXMLCalls, xml)
	return m.networkCreateXMLFunc(xml)
}

func (m *mockLibvirtClient) NetworkDestroy(net libvirt.Network) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkDestroyCalls = append(m.networkDestroyCalls, net)
	return m.networkDestroyFunc(net)
}
