package output

// Summary describes one source VM and its planned migration, as shown
// by the inspect command.
type Summary struct {
	Name      string `json:"name" yaml:"name"`
	Source    string `json:"source" yaml:"source"`
	GuestOS   string `json:"guestOS,omitempty" yaml:"guestOS,omitempty"`
	Firmware  string `json:"firmware" yaml:"firmware"`
	MemoryMiB int    `json:"memoryMiB" yaml:"memoryMiB"`
	VCPUs     int    `json:"vcpus" yaml:"vcpus"`

	Disks    []DiskSummary    `json:"disks" yaml:"disks"`
	Networks []NetworkSummary `json:"networks" yaml:"networks"`
}

// DiskSummary is one disk's migration plan.
type DiskSummary struct {
	// Device is the source addressing, e.g. "scsi0:0".
	Device string `json:"device" yaml:"device"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	// Action is "convert", "pass-through", or "cdrom".
	Action string `json:"action" yaml:"action"`
}

// NetworkSummary is one NIC's migration plan.
type NetworkSummary struct {
	// Device is the source key, e.g. "ethernet0".
	Device string `json:"device" yaml:"device"`
	// Source names the source network and connection type.
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	MAC    string `json:"mac,omitempty" yaml:"mac,omitempty"`
}
