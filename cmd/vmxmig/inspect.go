package main

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmxmig/vmxmig/internal/domain"
	"github.com/vmxmig/vmxmig/internal/job"
	"github.com/vmxmig/vmxmig/internal/output"
	"github.com/vmxmig/vmxmig/internal/vmx"
)

var inspectFlags struct {
	configFlags

	outputFormat string
	noHeaders    bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <vm.vmx> [<vm.vmx>...]",
	Short: "Show what a conversion would do, without writing anything",
	Long: `Inspect parses each VMX descriptor and prints the migration plan:
guest identity, disk mappings, and network mappings. Nothing is
written; unmapped disks are reported as errors.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := inspectFlags.build()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := output.ValidateFormat(inspectFlags.outputFormat); err != nil {
			return err
		}
		formatter, err := output.NewFormatter(output.Options{
			Format:    output.Format(inspectFlags.outputFormat),
			NoHeaders: inspectFlags.noHeaders,
		})
		if err != nil {
			return err
		}
		log := newLogger()

		var summaries []*output.Summary
		for _, source := range args {
			loc, err := cfg.Datastores.Locate(source)
			if err != nil {
				return err
			}
			doc, err := vmx.ParseFile(loc.HostPath)
			if err != nil {
				return err
			}
			_, plans, err := domain.Build(doc, cfg.Datastores, cfg.Networks, domain.Options{
				Name:      strings.TrimSuffix(filepath.Base(loc.HostPath), filepath.Ext(loc.HostPath)),
				SourceDir: path.Dir(loc.ReferencePath),
				Mode:      cfg.Mode,
				Format:    cfg.Format,
				Log:       log,
			})
			if err != nil {
				return err
			}
			summaries = append(summaries, job.Summarize(doc, plans, cfg.Networks, source))
		}

		var out string
		if len(summaries) == 1 && inspectFlags.outputFormat == string(output.FormatTable) {
			out, err = formatter.FormatSummary(summaries[0])
		} else {
			out, err = formatter.FormatSummaryList(summaries)
		}
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	fs := inspectCmd.Flags()
	inspectFlags.register(fs)

	fs.StringVarP(&inspectFlags.outputFormat, "output", "o", "table", "output format: table, yaml or json")
	fs.BoolVar(&inspectFlags.noHeaders, "no-headers", false, "omit headers in table output")
}
