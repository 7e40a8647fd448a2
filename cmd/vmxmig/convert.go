package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmxmig/vmxmig/internal/job"
)

var convertFlags struct {
	configFlags

	output       string
	convertDisks bool
	osDiskOnly   bool
	adjust       bool
	adjustEngine string
	overlay      bool
	nbd          bool
	cache        string
	parallel     int
	force        bool
}

var convertCmd = &cobra.Command{
	Use:   "convert <vm.vmx> [<vm.vmx>...]",
	Short: "Convert VMX descriptors to libvirt domain XML",
	Long: `Convert one or more VMX descriptors to libvirt domain XML.

Every datastore the VM touches must be covered by a --datastore or
--passthrough rule (or by the --config file); an unmapped disk
reference fails the job before any output is written. Disk images are
only copied with --convert-disks; without it only the descriptor is
produced, which makes rule changes cheap to iterate on.

Each source prints a one-line outcome: SUCCESS or FAILURE(stage).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := convertFlags.build()
		if err != nil {
			return err
		}
		cfg.ConvertDisks = convertFlags.convertDisks
		cfg.OSDiskOnly = convertFlags.osDiskOnly
		cfg.Adjust = convertFlags.adjust
		if convertFlags.adjustEngine != "" {
			cfg.AdjustEngine = convertFlags.adjustEngine
		}
		cfg.Overlay = convertFlags.overlay
		cfg.NBD = convertFlags.nbd
		if convertFlags.cache != "" {
			cfg.CacheMode = convertFlags.cache
		}
		if convertFlags.parallel > 0 {
			cfg.Parallel = convertFlags.parallel
		}
		cfg.Force = convertFlags.force
		if err := cfg.Validate(); err != nil {
			return err
		}
		if convertFlags.output != "" && len(args) > 1 {
			return fmt.Errorf("--output cannot be combined with multiple sources")
		}

		log := newLogger()
		failed := 0
		for _, source := range args {
			j := &job.Job{
				Source:    source,
				OutputXML: convertFlags.output,
				Config:    cfg,
				Log:       log,
				Verbose:   flagVerbose,
				Quiet:     flagQuiet,
			}
			_, err := j.Run(cmd.Context())
			outcome := job.Outcome{Source: source, Err: err}
			fmt.Println(outcome.String())
			if outcome.Failed() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	fs := convertCmd.Flags()
	convertFlags.register(fs)

	fs.StringVarP(&convertFlags.output, "output", "o", "", "output descriptor path (default: derived from the target namespace)")
	fs.BoolVar(&convertFlags.convertDisks, "convert-disks", false, "convert disk images, not just the descriptor")
	fs.BoolVar(&convertFlags.osDiskOnly, "os-disk-only", false, "convert only the boot disk")
	fs.BoolVar(&convertFlags.adjust, "adjust", false, "adjust the guest filesystem for KVM bootability")
	fs.StringVar(&convertFlags.adjustEngine, "adjust-engine", "", "adjustment engine: v2v (virt-v2v-in-place) or x (experimental)")
	fs.BoolVar(&convertFlags.overlay, "overlay", false, "adjust through a copy-on-write overlay, never writing the source")
	fs.BoolVar(&convertFlags.nbd, "nbd", false, "copy through qemu-nbd/nbdcopy instead of qemu-img convert")
	fs.StringVar(&convertFlags.cache, "cache", "", "cache mode for the copy tools (default writeback)")
	fs.IntVar(&convertFlags.parallel, "parallel", 0, "bound copy parallelism (0 = tool default)")
	fs.BoolVar(&convertFlags.force, "force", false, "regenerate artifacts that already exist")
}
