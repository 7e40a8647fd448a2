// Package domain synthesizes the target libvirt domain definition from
// a parsed VMX document and the per-job mapping rules.
//
// The build is deterministic: identical inputs produce byte-identical
// XML, which is what makes descriptor-only reruns cheap and diffable.
// Any disk that cannot be mapped aborts the build before output exists.
package domain

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-logr/logr"
	"libvirt.org/go/libvirtxml"

	"github.com/vmxmig/vmxmig/internal/config"
	"github.com/vmxmig/vmxmig/internal/datastore"
	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/naming"
	"github.com/vmxmig/vmxmig/internal/netmap"
	"github.com/vmxmig/vmxmig/internal/vmx"
)

// Options controls the translation.
type Options struct {
	// Name overrides the domain name when the descriptor has no
	// displayName (typically the source file basename).
	Name string
	// SourceDir is the directory of the source descriptor in the
	// reference namespace; relative file references resolve against
	// it before rule matching.
	SourceDir string
	Mode      config.Mode
	Format    config.Format
	Log       logr.Logger
}

// DiskPlan records where one source disk lives on the conversion host
// and where its converted artifact must end up. The disk converter
// consumes the plan; the built descriptor already references the
// planned target paths.
type DiskPlan struct {
	Device      vmx.DiskDevice
	HostPath    string
	TargetPath  string
	PassThrough bool
	CDROM       bool
	// OS marks the designated boot disk (first hard disk in bus scan
	// order).
	OS bool
}

// NeedsConversion reports whether the plan schedules an image format
// conversion.
func (p DiskPlan) NeedsConversion() bool {
	return !p.PassThrough && !p.CDROM && p.HostPath != p.TargetPath
}

// Build translates doc into a libvirt domain plus the disk conversion
// plan. A disk reference matching no datastore rule fails the build
// with the mapper's *datastore.UnmappedError; network misses degrade
// to the default target.
func Build(doc *vmx.Document, dsRules datastore.Rules, netRules netmap.Rules, opts Options) (*libvirtxml.Domain, []DiskPlan, error) {
	if opts.Mode == "" {
		opts.Mode = config.ModeFidelity
	}
	if opts.Format == "" {
		opts.Format = config.FormatQCOW2
	}

	name := doc.DisplayName()
	if name == "" {
		name = opts.Name
	}
	if name == "" {
		return nil, nil, fmt.Errorf("descriptor has no displayName and no fallback name was given")
	}

	plans, err := planDisks(doc, dsRules, opts)
	if err != nil {
		return nil, nil, err
	}

	dom := &libvirtxml.Domain{
		Type: "kvm",
		Name: name,
		Memory: &libvirtxml.DomainMemory{
			Value: uint(memoryMiB(doc)),
			Unit:  "MiB",
		},
		VCPU: &libvirtxml.DomainVCPU{
			Placement: "static",
			Value:     uint(doc.VCPUs()),
		},
		OS:         buildOS(doc, dsRules, opts),
		CPU:        buildCPU(doc),
		Features:   buildFeatures(),
		Clock:      buildClock(doc),
		OnPoweroff: "destroy",
		OnReboot:   "restart",
		OnCrash:    "destroy",
		Devices:    &libvirtxml.DomainDeviceList{},
	}

	if id := doc.BIOSUUID(); id != "" {
		dom.UUID = id
	}
	if genid := doc.GenID(); genid != "" {
		dom.GenID = &libvirtxml.DomainGenID{Value: genid}
	}

	buildDisks(dom, doc, plans, opts)
	buildInterfaces(dom, doc, netRules, opts)
	buildAncillary(dom, doc)

	return dom, plans, nil
}

// BuildXML is Build followed by deterministic serialization.
func BuildXML(doc *vmx.Document, dsRules datastore.Rules, netRules netmap.Rules, opts Options) (string, []DiskPlan, error) {
	dom, plans, err := Build(doc, dsRules, netRules, opts)
	if err != nil {
		return "", nil, err
	}
	xml, err := dom.Marshal()
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal domain XML: %w", err)
	}
	return xml, plans, nil
}

func memoryMiB(doc *vmx.Document) int {
	if m := doc.MemoryMiB(); m > 0 {
		return m
	}
	return 1024
}

// resolveRef maps one file reference from the descriptor through the
// datastore rules, resolving relative references against the source
// descriptor's directory first.
func resolveRef(ref string, dsRules datastore.Rules, opts Options) (datastore.Resolution, error) {
	p := ref
	if !strings.HasPrefix(p, "/") {
		p = path.Join(opts.SourceDir, p)
	}
	return dsRules.Resolve(p)
}

func planDisks(doc *vmx.Document, dsRules datastore.Rules, opts Options) ([]DiskPlan, error) {
	var plans []DiskPlan
	osAssigned := false
	for _, dev := range doc.AllDisks() {
		res, err := resolveRef(dev.Path, dsRules, opts)
		if err != nil {
			return nil, fmt.Errorf("disk %s%d:%d: %w", dev.Class, dev.Controller, dev.Unit, err)
		}
		plan := DiskPlan{
			Device:      dev,
			HostPath:    res.HostPath,
			TargetPath:  res.TargetPath,
			PassThrough: res.PassThrough,
			CDROM:       dev.IsCDROM(),
		}
		if !plan.PassThrough && !plan.CDROM && opts.Format != config.FormatNone {
			plan.TargetPath = naming.TargetDisk(res.TargetPath, string(opts.Format))
		}
		if !plan.CDROM && !osAssigned {
			plan.OS = true
			osAssigned = true
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func buildOS(doc *vmx.Document, dsRules datastore.Rules, opts Options) *libvirtxml.DomainOS {
	os := &libvirtxml.DomainOS{
		Type: &libvirtxml.DomainOSType{
			Arch: "x86_64",
			Type: "hvm",
		},
	}
	if doc.FirmwareEFI() {
		os.Type.Machine = "q35"
		os.Firmware = "efi"
		if nvram := doc.NVRAM(); nvram != "" {
			// The variable store moves with the VM; map it like a
			// disk but never convert it. An unmapped nvram reference
			// is not fatal: libvirt can allocate a fresh store from
			// the firmware template.
			if res, err := resolveRef(nvram, dsRules, opts); err == nil {
				os.NVRam = &libvirtxml.DomainNVRam{NVRam: res.TargetPath}
			} else {
				opts.Log.V(logging.LevelWarn).Info(
					fmt.Sprintf("nvram %q matches no datastore rule, a fresh variable store will be allocated", nvram))
			}
		}
	} else {
		os.Type.Machine = "pc"
	}
	return os
}

func buildCPU(doc *vmx.Document) *libvirtxml.DomainCPU {
	cpu := &libvirtxml.DomainCPU{
		Mode: "host-model",
		Model: &libvirtxml.DomainCPUModel{
			Fallback: "allow",
		},
	}
	vcpus := doc.VCPUs()
	cps := doc.CoresPerSocket()
	if cps > 1 && vcpus%cps == 0 {
		cpu.Topology = &libvirtxml.DomainCPUTopology{
			Sockets: vcpus / cps,
			Cores:   cps,
			Threads: 1,
		}
	}
	return cpu
}

func buildFeatures() *libvirtxml.DomainFeatureList {
	return &libvirtxml.DomainFeatureList{
		ACPI: &libvirtxml.DomainFeature{},
		APIC: &libvirtxml.DomainFeatureAPIC{},
		PAE:  &libvirtxml.DomainFeature{},
	}
}

func buildClock(doc *vmx.Document) *libvirtxml.DomainClock {
	hpet := "no"
	if doc.HPET() {
		hpet = "yes"
	}
	return &libvirtxml.DomainClock{
		Offset: "utc",
		Timer: []libvirtxml.DomainTimer{
			{Name: "rtc", TickPolicy: "catchup"},
			{Name: "pit", TickPolicy: "delay"},
			{Name: "hpet", Present: hpet},
		},
	}
}

// scsiControllerModel maps the VMX scsi controller model to the
// libvirt one.
func scsiControllerModel(virtualDev string) string {
	switch strings.ToLower(virtualDev) {
	case "pvscsi":
		return "vmpvscsi"
	case "lsilogic":
		return "lsilogic"
	case "lsisas1068":
		return "lsisas1068"
	case "buslogic":
		return "buslogic"
	}
	return "virtio-scsi"
}

// diskBus decides the target bus for one plan.
func diskBus(plan DiskPlan, mode config.Mode, log logr.Logger) string {
	if plan.CDROM {
		// Optical media stays on sata; ide source cdroms keep ide.
		if plan.Device.Class == vmx.ClassIDE {
			return "ide"
		}
		return "sata"
	}
	if mode == config.ModePerformance {
		return "virtio"
	}
	switch plan.Device.Class {
	case vmx.ClassSCSI:
		return "scsi"
	case vmx.ClassSATA:
		return "sata"
	case vmx.ClassIDE:
		return "ide"
	case vmx.ClassNVMe:
		// libvirt exposes no guest NVMe bus for file-backed disks;
		// virtio is the closest fast interface.
		log.V(logging.LevelWarn).Info(fmt.Sprintf(
			"nvme%d:%d: no NVMe disk bus on the target, re-homing onto virtio",
			plan.Device.Controller, plan.Device.Unit))
		return "virtio"
	}
	return "virtio"
}

// devNamer hands out target device names per bus prefix: vda, vdb...
// for virtio, sda... for scsi/sata (shared namespace), hda... for ide.
// Past 26 devices the letters roll over like libvirt's own naming
// (sdz, sdaa, sdab, ...).
type devNamer struct {
	counters map[string]int
}

func newDevNamer() *devNamer {
	return &devNamer{counters: make(map[string]int)}
}

func (n *devNamer) next(bus string) string {
	prefix := "vd"
	switch bus {
	case "scsi", "sata", "usb":
		prefix = "sd"
	case "ide":
		prefix = "hd"
	}
	i := n.counters[prefix]
	n.counters[prefix]++

	suffix := ""
	for i >= 0 {
		suffix = string(rune('a'+i%26)) + suffix
		i = i/26 - 1
	}
	return prefix + suffix
}

func buildDisks(dom *libvirtxml.Domain, doc *vmx.Document, plans []DiskPlan, opts Options) {
	zero := uint(0)
	dom.Devices.Controllers = append(dom.Devices.Controllers, libvirtxml.DomainController{
		Type:  "pci",
		Index: &zero,
		Model: pciModel(dom),
	})

	namer := newDevNamer()
	scsiControllers := make(map[int]bool)

	for _, plan := range plans {
		bus := diskBus(plan, opts.Mode, opts.Log)

		disk := libvirtxml.DomainDisk{
			Device: "disk",
			Driver: &libvirtxml.DomainDiskDriver{
				Name:  "qemu",
				Type:  driverType(plan, opts),
				Cache: "none",
			},
			Source: &libvirtxml.DomainDiskSource{
				File: &libvirtxml.DomainDiskSourceFile{
					File: plan.TargetPath,
				},
			},
			Target: &libvirtxml.DomainDiskTarget{
				Dev: namer.next(bus),
				Bus: bus,
			},
		}

		if plan.CDROM {
			disk.Device = "cdrom"
			disk.Driver.Type = "raw"
			disk.Driver.Cache = ""
			disk.ReadOnly = &libvirtxml.DomainDiskReadOnly{}
		}
		if plan.OS {
			disk.Boot = &libvirtxml.DomainDeviceBoot{Order: 1}
		}

		// In fidelity mode a scsi disk keeps its controller and unit
		// addressing; the matching controller is emitted with the
		// source's model.
		if bus == "scsi" && opts.Mode == config.ModeFidelity {
			ctrl := uint(plan.Device.Controller)
			unit := uint(plan.Device.Unit)
			busIdx := uint(0)
			target := uint(0)
			disk.Address = &libvirtxml.DomainAddress{
				Drive: &libvirtxml.DomainAddressDrive{
					Controller: &ctrl,
					Bus:        &busIdx,
					Target:     &target,
					Unit:       &unit,
				},
			}
			scsiControllers[plan.Device.Controller] = true
		}

		dom.Devices.Disks = append(dom.Devices.Disks, disk)
	}

	for i := 0; i < 4; i++ {
		if !scsiControllers[i] {
			continue
		}
		idx := uint(i)
		dom.Devices.Controllers = append(dom.Devices.Controllers, libvirtxml.DomainController{
			Type:  "scsi",
			Index: &idx,
			Model: scsiControllerModel(doc.ControllerAttr(vmx.ClassSCSI, i, "virtualdev")),
		})
	}
}

func pciModel(dom *libvirtxml.Domain) string {
	if dom.OS != nil && dom.OS.Type != nil && dom.OS.Type.Machine == "q35" {
		return "pcie-root"
	}
	return "pci-root"
}

func driverType(plan DiskPlan, opts Options) string {
	if plan.PassThrough || opts.Format == config.FormatNone {
		if t := naming.DiskDriverType(plan.TargetPath); t != "" {
			return t
		}
		return "raw"
	}
	if opts.Format == config.FormatRaw {
		return "raw"
	}
	return "qcow2"
}

// interfaceModel maps the VMX NIC model to the libvirt one.
func interfaceModel(virtualDev string, mode config.Mode) string {
	if mode == config.ModePerformance {
		return "virtio"
	}
	switch strings.ToLower(virtualDev) {
	case "e1000":
		return "e1000"
	case "e1000e":
		return "e1000e"
	case "vmxnet3":
		return "vmxnet3"
	case "vlance", "flexible":
		return "pcnet"
	}
	return "e1000"
}

func buildInterfaces(dom *libvirtxml.Domain, doc *vmx.Document, netRules netmap.Rules, opts Options) {
	for _, nic := range doc.EthernetDevices() {
		target, matched := netRules.Resolve(nic.NetworkName, nic.ConnectionType)
		if !matched {
			opts.Log.V(logging.LevelWarn).Info(fmt.Sprintf(
				"ethernet%d: network %q (%s) matches no rule, using %s",
				nic.Index, nic.NetworkName, nic.ConnectionType, target))
		}

		iface := libvirtxml.DomainInterface{
			Model: &libvirtxml.DomainInterfaceModel{
				Type: interfaceModel(nic.VirtualDev, opts.Mode),
			},
		}
		if mac := nic.MAC(); mac != "" {
			iface.MAC = &libvirtxml.DomainInterfaceMAC{Address: mac}
		}
		if target.Bridge != "" {
			iface.Source = &libvirtxml.DomainInterfaceSource{
				Bridge: &libvirtxml.DomainInterfaceSourceBridge{Bridge: target.Bridge},
			}
		} else {
			iface.Source = &libvirtxml.DomainInterfaceSource{
				Network: &libvirtxml.DomainInterfaceSourceNetwork{Network: target.Network},
			}
		}
		dom.Devices.Interfaces = append(dom.Devices.Interfaces, iface)
	}
}

// soundModel maps the VMX sound card to a libvirt model.
func soundModel(virtualDev string) string {
	switch strings.ToLower(virtualDev) {
	case "es1371":
		return "es1370"
	case "sb16":
		return "sb16"
	}
	return "ich9"
}

func buildAncillary(dom *libvirtxml.Domain, doc *vmx.Document) {
	if sound := doc.SoundDevice(); sound != "" {
		dom.Devices.Sounds = []libvirtxml.DomainSound{
			{Model: soundModel(sound)},
		}
	}

	video := libvirtxml.DomainVideo{
		Model: libvirtxml.DomainVideoModel{Type: "vga"},
	}
	if vram := doc.VideoRAM(); vram > 0 {
		// VMX declares bytes, libvirt wants KiB.
		video.Model.VRam = uint(vram / 1024)
	}
	dom.Devices.Videos = []libvirtxml.DomainVideo{video}

	dom.Devices.MemBalloon = &libvirtxml.DomainMemBalloon{Model: "virtio"}

	port := uint(0)
	dom.Devices.Serials = []libvirtxml.DomainSerial{
		{
			Source: &libvirtxml.DomainChardevSource{
				Pty: &libvirtxml.DomainChardevSourcePty{},
			},
			Target: &libvirtxml.DomainSerialTarget{Port: &port},
		},
	}
	cport := uint(0)
	dom.Devices.Consoles = []libvirtxml.DomainConsole{
		{
			Source: &libvirtxml.DomainChardevSource{
				Pty: &libvirtxml.DomainChardevSourcePty{},
			},
			Target: &libvirtxml.DomainConsoleTarget{Type: "serial", Port: &cport},
		},
	}
}
