package vmx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DeviceClass identifies a VMX device key namespace.
type DeviceClass string

// Device classes appearing in VMX descriptors.
const (
	ClassSCSI     DeviceClass = "scsi"
	ClassSATA     DeviceClass = "sata"
	ClassNVMe     DeviceClass = "nvme"
	ClassIDE      DeviceClass = "ide"
	ClassEthernet DeviceClass = "ethernet"
)

// deviceLimits caps the controller/unit scan per class. The bounds
// follow the maximum device addressing VMware allows per bus.
var deviceLimits = map[DeviceClass]struct{ controllers, units int }{
	ClassSCSI: {4, 16},
	ClassSATA: {4, 30},
	ClassNVMe: {4, 15},
	ClassIDE:  {2, 2},
}

type entry struct {
	key   string
	value string
	line  int
}

// Document is a parsed VMX descriptor: an ordered mapping from
// lower-cased keys to scalar string values.
type Document struct {
	entries []entry
	index   map[string]int
}

func newDocument() *Document {
	return &Document{index: make(map[string]int)}
}

func (d *Document) set(key, value string, line int) {
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, entry{key: key, value: value, line: line})
}

func (d *Document) lookup(key string) (string, bool) {
	i, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.entries[i].value, true
}

// Len returns the number of distinct keys.
func (d *Document) Len() int { return len(d.entries) }

// Keys returns all keys in first-seen order.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return keys
}

// Get returns the value for key (case-insensitive), or "" when absent.
// Absent and empty values are equivalent in the VMX format.
func (d *Document) Get(key string) string {
	v, _ := d.lookup(strings.ToLower(key))
	return v
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.lookup(strings.ToLower(key))
	return ok
}

// Bool interprets the value for key as a VMX boolean ("TRUE"/"FALSE",
// any case). Absent keys are false.
func (d *Document) Bool(key string) bool {
	return strings.EqualFold(d.Get(key), "true")
}

// Int interprets the value for key as an integer, returning def when
// the key is absent or not numeric.
func (d *Document) Int(key string, def int) int {
	v := d.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// DeviceAttr returns an attribute of a (class, controller, unit)
// device, e.g. DeviceAttr(ClassSCSI, 0, 1, "filename") reads
// "scsi0:1.filename".
func (d *Document) DeviceAttr(class DeviceClass, controller, unit int, attr string) string {
	return d.Get(fmt.Sprintf("%s%d:%d.%s", class, controller, unit, attr))
}

// ControllerAttr returns an attribute of a controller-level key,
// e.g. ControllerAttr(ClassSCSI, 0, "virtualdev") reads
// "scsi0.virtualdev".
func (d *Document) ControllerAttr(class DeviceClass, controller int, attr string) string {
	return d.Get(fmt.Sprintf("%s%d.%s", class, controller, attr))
}

// DiskDevice is one storage device declared in the descriptor.
type DiskDevice struct {
	Class      DeviceClass
	Controller int
	Unit       int
	Path       string // backing file reference, as written in the VMX
	DeviceType string // e.g. "cdrom-image", "atapi-cdrom"
	Mode       string // e.g. "independent-persistent"
}

// IsCDROM reports whether the device is optical media rather than a
// hard disk.
func (dev DiskDevice) IsCDROM() bool {
	return strings.Contains(strings.ToLower(dev.DeviceType), "cdrom")
}

// DiskDevices enumerates the present, file-backed devices of one class
// in ascending (controller, unit) order. A present device without a
// filename (e.g. an empty CD-ROM tray) is skipped.
func (d *Document) DiskDevices(class DeviceClass) []DiskDevice {
	limits, ok := deviceLimits[class]
	if !ok {
		return nil
	}
	var devices []DiskDevice
	for c := 0; c < limits.controllers; c++ {
		for u := 0; u < limits.units; u++ {
			if !strings.EqualFold(d.DeviceAttr(class, c, u, "present"), "true") {
				continue
			}
			path := d.DeviceAttr(class, c, u, "filename")
			if path == "" {
				continue
			}
			devices = append(devices, DiskDevice{
				Class:      class,
				Controller: c,
				Unit:       u,
				Path:       path,
				DeviceType: d.DeviceAttr(class, c, u, "devicetype"),
				Mode:       d.DeviceAttr(class, c, u, "mode"),
			})
		}
	}
	return devices
}

// AllDisks enumerates every file-backed storage device in bus order
// scsi, nvme, sata, ide. The first hard disk in this order is the
// boot disk candidate.
func (d *Document) AllDisks() []DiskDevice {
	var all []DiskDevice
	for _, class := range []DeviceClass{ClassSCSI, ClassNVMe, ClassSATA, ClassIDE} {
		all = append(all, d.DiskDevices(class)...)
	}
	return all
}

// EthernetDevice is one virtual NIC declared in the descriptor.
type EthernetDevice struct {
	Index          int
	ConnectionType string // "bridged", "nat", "hostonly", "custom", ...
	NetworkName    string
	VirtualDev     string // "e1000", "e1000e", "vmxnet3", ...
	AddressType    string // "static", "generated", "vpx"
	Address        string // MAC for addressType "static"
	GeneratedAddr  string // MAC for addressType "generated"/"vpx"
}

// MAC returns the MAC address the guest was using, or "" when the
// descriptor does not pin one.
func (e EthernetDevice) MAC() string {
	switch strings.ToLower(e.AddressType) {
	case "static":
		return e.Address
	case "generated", "vpx":
		return e.GeneratedAddr
	}
	return ""
}

// EthernetDevices enumerates present NICs in index order.
func (d *Document) EthernetDevices() []EthernetDevice {
	var nics []EthernetDevice
	for i := 0; i < 10; i++ {
		if !strings.EqualFold(d.ControllerAttr(ClassEthernet, i, "present"), "true") {
			continue
		}
		nics = append(nics, EthernetDevice{
			Index:          i,
			ConnectionType: d.ControllerAttr(ClassEthernet, i, "connectiontype"),
			NetworkName:    d.ControllerAttr(ClassEthernet, i, "networkname"),
			VirtualDev:     d.ControllerAttr(ClassEthernet, i, "virtualdev"),
			AddressType:    d.ControllerAttr(ClassEthernet, i, "addresstype"),
			Address:        d.ControllerAttr(ClassEthernet, i, "address"),
			GeneratedAddr:  d.ControllerAttr(ClassEthernet, i, "generatedaddress"),
		})
	}
	return nics
}

// DisplayName returns the VM display name.
func (d *Document) DisplayName() string { return d.Get("displayname") }

// MemoryMiB returns the configured memory size in MiB.
func (d *Document) MemoryMiB() int { return d.Int("memsize", 0) }

// VCPUs returns the configured vCPU count (VMX default is 1).
func (d *Document) VCPUs() int { return d.Int("numvcpus", 1) }

// CoresPerSocket returns the vCPU topology divisor (default 1).
func (d *Document) CoresPerSocket() int {
	n := d.Int("cpuid.corespersocket", 1)
	if n < 1 {
		return 1
	}
	return n
}

// FirmwareEFI reports whether the guest boots via EFI.
func (d *Document) FirmwareEFI() bool {
	return strings.EqualFold(d.Get("firmware"), "efi")
}

// NVRAM returns the EFI variable store file reference, if any.
func (d *Document) NVRAM() string { return d.Get("nvram") }

// GuestOS returns the VMware guest OS identifier (e.g. "sles12-64",
// "windows2019srv-64").
func (d *Document) GuestOS() string { return d.Get("guestos") }

// WindowsGuest reports whether the descriptor declares a Windows
// guest family.
func (d *Document) WindowsGuest() bool {
	return strings.Contains(strings.ToLower(d.GuestOS()), "win")
}

// HPET reports whether the high-precision event timer is present.
func (d *Document) HPET() bool { return d.Bool("hpet0.present") }

// VideoRAM returns the declared SVGA video memory in bytes, or 0.
func (d *Document) VideoRAM() int { return d.Int("svga.vramsize", 0) }

// SoundDevice returns the sound card model when sound is present.
func (d *Document) SoundDevice() string {
	if !d.Bool("sound.present") {
		return ""
	}
	return d.Get("sound.virtualdev")
}

// GenID returns the VM generation ID as a canonical UUID string. The
// VMX stores it as two signed decimal 64-bit halves; libvirt wants
// RFC 4122 text. Returns "" when the descriptor carries no genid.
func (d *Document) GenID() string {
	hi, lo := d.Get("vm.genid"), d.Get("vm.genidx")
	if hi == "" || lo == "" {
		return ""
	}
	h, err1 := strconv.ParseInt(hi, 10, 64)
	l, err2 := strconv.ParseInt(lo, 10, 64)
	if err1 != nil || err2 != nil {
		return ""
	}
	raw := fmt.Sprintf("%016x%016x", uint64(h), uint64(l))
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}

// BIOSUUID returns the firmware UUID ("uuid.bios") in canonical form,
// or "" when absent or unparsable. VMX spells it as space-separated
// hex byte pairs with a dash in the middle.
func (d *Document) BIOSUUID() string {
	raw := d.Get("uuid.bios")
	if raw == "" {
		return ""
	}
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(raw)
	id, err := uuid.Parse(cleaned)
	if err != nil {
		return ""
	}
	return id.String()
}
