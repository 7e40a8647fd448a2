package testboot

import (
	"github.com/digitalocean/go-libvirt"
)

// libvirtClient defines the libvirt operations the validator needs.
// In production this is satisfied by *libvirt.Libvirt directly; in
// tests by mock implementations.
type libvirtClient interface {
	// DomainDefineXML defines a domain from XML
	DomainDefineXML(xml string) (libvirt.Domain, error)

	// DomainCreate starts a defined domain
	DomainCreate(dom libvirt.Domain) error

	// DomainGetState gets the state of a domain
	DomainGetState(dom libvirt.Domain, flags uint32) (state int32, reason int32, err error)

	// DomainDestroy force-stops a domain
	DomainDestroy(dom libvirt.Domain) error

	// DomainUndefineFlags undefines a domain with flags (NVRAM cleanup)
	DomainUndefineFlags(dom libvirt.Domain, flags libvirt.DomainUndefineFlagsValues) error

	// DomainInterfaceAddresses queries guest interface addresses
	DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error)

	// NetworkCreateXML creates a transient network
	NetworkCreateXML(xml string) (libvirt.Network, error)

	// NetworkDestroy tears down a transient network
	NetworkDestroy(net libvirt.Network) error
}
