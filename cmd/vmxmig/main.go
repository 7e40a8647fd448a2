// Command vmxmig migrates VMware VMX-described virtual machines to
// libvirt/KVM.
package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vmxmig/vmxmig/internal/config"
	"github.com/vmxmig/vmxmig/internal/datastore"
	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/netmap"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vmxmig",
	Short: "vmxmig - migrate VMware VMX virtual machines to libvirt/KVM",
	Long: `vmxmig converts VMware VMX descriptors to libvirt domain XML,
remapping datastore paths through explicit rules, converting VMDK disks
to QCOW2 or raw images, and optionally adjusting the guest filesystem
so it boots under KVM.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagVerbose int
	flagQuiet   int
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "increase verbosity (repeatable)")
	rootCmd.PersistentFlags().CountVarP(&flagQuiet, "quiet", "q", "decrease verbosity (repeatable)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
}

func newLogger() logr.Logger {
	return logging.New(flagVerbose, flagQuiet)
}

// configFlags is the mapping-rule flag set shared by convert and
// inspect.
type configFlags struct {
	configFile  string
	datastores  []string
	passthrough []string
	networks    []string
	netTypes    []string
	defaultNet  string
	mode        string
	format      string
}

func (cf *configFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&cf.configFile, "config", "", "YAML file with mapping rules and options")
	fs.StringArrayVar(&cf.datastores, "datastore", nil, "datastore rule REFERENCE,MOUNTED[,TARGET] (repeatable, first match wins)")
	fs.StringArrayVar(&cf.passthrough, "passthrough", nil, "directory referenced verbatim and never converted (repeatable)")
	fs.StringArrayVar(&cf.networks, "network", nil, "network rule NAME=TARGET, TARGET is a network name or bridge:BR (repeatable)")
	fs.StringArrayVar(&cf.netTypes, "network-type", nil, "network rule TYPE=TARGET matching the VMX connection type (repeatable)")
	fs.StringVar(&cf.defaultNet, "default-network", "", "fallback target for unmatched source networks")
	fs.StringVar(&cf.mode, "mode", "", "translation mode: fidelity or performance")
	fs.StringVar(&cf.format, "format", "", "target disk format: qcow2, raw or none")
}

// build merges the config file (if any) with the CLI rule flags. CLI
// rules are prepended so they win over file rules on conflict.
func (cf *configFlags) build() (*config.Config, error) {
	cfg := &config.Config{}
	if cf.configFile != "" {
		loaded, err := config.Load(cf.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var rules datastore.Rules
	for _, s := range cf.datastores {
		r, err := datastore.ParseRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	for _, dir := range cf.passthrough {
		rules = append(rules, datastore.Rule{ReferencePrefix: dir, MountedPrefix: dir})
	}
	cfg.Datastores = append(rules, cfg.Datastores...)

	var netRules []netmap.Rule
	for _, s := range cf.networks {
		r, err := netmap.ParseRule(s, false)
		if err != nil {
			return nil, err
		}
		netRules = append(netRules, r)
	}
	for _, s := range cf.netTypes {
		r, err := netmap.ParseRule(s, true)
		if err != nil {
			return nil, err
		}
		netRules = append(netRules, r)
	}
	cfg.Networks.Rules = append(netRules, cfg.Networks.Rules...)
	if cf.defaultNet != "" {
		cfg.Networks.Default = netmap.ParseTarget(cf.defaultNet)
	}

	if cf.mode != "" {
		cfg.Mode = config.Mode(cf.mode)
	}
	if cf.format != "" {
		cfg.Format = config.Format(cf.format)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}
