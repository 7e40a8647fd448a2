// Package config loads the per-job migration configuration: the
// ordered datastore mapping rules, the network mapping rules, and the
// conversion options.
//
// Rule order in the YAML file is significant and preserved; the same
// rules can also be supplied as repeatable CLI flags. A loaded Config
// is immutable per job so concurrent jobs stay independent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vmxmig/vmxmig/internal/datastore"
	"github.com/vmxmig/vmxmig/internal/netmap"
)

// Mode selects the disk/controller translation policy.
type Mode string

const (
	// ModeFidelity preserves the source bus and per-unit addressing.
	ModeFidelity Mode = "fidelity"
	// ModePerformance re-homes all disks onto virtio regardless of
	// source bus.
	ModePerformance Mode = "performance"
)

// Format selects the target disk image format.
type Format string

const (
	// FormatQCOW2 is the default target image format.
	FormatQCOW2 Format = "qcow2"
	// FormatRaw converts to raw images.
	FormatRaw Format = "raw"
	// FormatNone skips format conversion: the descriptor references
	// mapped paths with their original extension.
	FormatNone Format = "none"
)

// Config is one job's migration configuration.
type Config struct {
	Datastores datastore.Rules `yaml:"datastores"`
	Networks   netmap.Rules    `yaml:"networks"`

	Mode   Mode   `yaml:"mode,omitempty"`
	Format Format `yaml:"format,omitempty"`

	// ConvertDisks schedules disk image conversion after the
	// descriptor build.
	ConvertDisks bool `yaml:"convert_disks,omitempty"`
	// OSDiskOnly limits conversion to the designated boot disk.
	OSDiskOnly bool `yaml:"os_disk_only,omitempty"`
	// Adjust runs the guest bootability adjustment on the OS disk.
	Adjust bool `yaml:"adjust,omitempty"`
	// AdjustEngine selects "v2v" (virt-v2v-in-place) or "x"
	// (experimental adjust-guestfs tool).
	AdjustEngine string `yaml:"adjust_engine,omitempty"`
	// Overlay adjusts through a copy-on-write overlay so the source
	// image is never written.
	Overlay bool `yaml:"overlay,omitempty"`
	// NBD selects the qemu-nbd/nbdcopy compatibility copy strategy
	// instead of qemu-img convert.
	NBD bool `yaml:"nbd,omitempty"`
	// CacheMode is passed to the copy tools (-t/-T). Default
	// "writeback".
	CacheMode string `yaml:"cache_mode,omitempty"`
	// Parallel bounds copy parallelism; 0 leaves the tool default.
	Parallel int `yaml:"parallel,omitempty"`
	// Force regenerates artifacts even when they already exist.
	Force bool `yaml:"force,omitempty"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeFidelity
	}
	if c.Format == "" {
		c.Format = FormatQCOW2
	}
	if c.AdjustEngine == "" {
		c.AdjustEngine = "v2v"
	}
	if c.CacheMode == "" {
		c.CacheMode = "writeback"
	}
}

// Validate checks the configuration structure. It does not touch the
// filesystem; path existence is checked when the job runs.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeFidelity, ModePerformance:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeFidelity, ModePerformance, c.Mode)
	}
	switch c.Format {
	case FormatQCOW2, FormatRaw, FormatNone:
	default:
		return fmt.Errorf("format must be qcow2, raw or none, got %q", c.Format)
	}
	switch c.AdjustEngine {
	case "v2v", "x":
	default:
		return fmt.Errorf("adjust_engine must be v2v or x, got %q", c.AdjustEngine)
	}
	if c.Parallel < 0 {
		return fmt.Errorf("parallel must be >= 0, got %d", c.Parallel)
	}
	if err := c.Datastores.Validate(); err != nil {
		return err
	}
	if err := c.Networks.Validate(); err != nil {
		return err
	}
	if c.ConvertDisks && c.Format == FormatNone {
		return fmt.Errorf("convert_disks requires a target format other than none")
	}
	return nil
}
