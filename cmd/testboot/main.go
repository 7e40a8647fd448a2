// Command testboot boot-tests a libvirt domain XML produced by vmxmig.
//
// The domain is defined under a transient name, started, probed, and
// torn down whatever happens. Exit codes: 0 the guest booted, 1 the
// harness could not run the test, 2 the guest failed to boot.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmxmig/vmxmig/internal/libvirt"
	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/testboot"
)

var (
	version = "dev"
	commit  = "unknown"
)

var flags struct {
	file     string
	socket   string
	timeout  time.Duration
	probe    string
	isolated bool
	keep     bool
	verbose  int
	quiet    int
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(testboot.ScriptFailure.ExitCode())
	}
}

var rootCmd = &cobra.Command{
	Use:   "testboot -f <domain.xml>",
	Short: "Boot-test a converted libvirt domain definition",
	Long: `testboot defines the given domain XML under a transient instance
name, starts it, and probes whether the guest comes up. The transient
instance is always destroyed and undefined before exit unless --keep
is given.

Exit codes: 0 success, 1 harness failure, 2 boot failure.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(flags.verbose, flags.quiet)

		xml, err := os.ReadFile(flags.file)
		if err != nil {
			return fmt.Errorf("failed to read domain XML: %w", err)
		}
		probe, err := testboot.ProbeByName(flags.probe)
		if err != nil {
			return err
		}

		// Teardown must run on ^C too.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := libvirt.ConnectWithContext(ctx, flags.socket, 0)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", err)
			}
		}()

		v := testboot.New(client.Libvirt(), log)
		v.Probe = probe
		v.Timeout = flags.timeout
		v.Isolated = flags.isolated
		v.Keep = flags.keep

		result, verr := v.Validate(ctx, string(xml))
		if verr != nil {
			fmt.Printf("%s: %s: %v\n", result, flags.file, verr)
		} else {
			fmt.Printf("%s: %s\n", result, flags.file)
		}
		if result != testboot.Success {
			os.Exit(result.ExitCode())
		}
		return nil
	},
}

func init() {
	fs := rootCmd.Flags()
	fs.StringVarP(&flags.file, "file", "f", "", "domain XML file to boot-test (required)")
	fs.StringVar(&flags.socket, "socket", "", "libvirt socket path (default qemu:///system)")
	fs.DurationVarP(&flags.timeout, "timeout", "t", time.Minute, "how long to wait for the guest to come up")
	fs.StringVar(&flags.probe, "probe", "lease", "boot probe: lease (DHCP lease appears) or settle (still running after a delay)")
	fs.BoolVar(&flags.isolated, "isolated", false, "boot on a transient isolated network instead of the configured ones")
	fs.BoolVar(&flags.keep, "keep", false, "keep the transient instance for debugging")
	fs.CountVarP(&flags.verbose, "verbose", "v", "increase verbosity (repeatable)")
	fs.CountVarP(&flags.quiet, "quiet", "q", "decrease verbosity (repeatable)")
	_ = rootCmd.MarkFlagRequired("file")
}
