// Package job orchestrates one migration: parse the source descriptor,
// map its storage, build the target domain XML, and optionally convert
// disks and adjust the guest.
//
// Stages run in order with no in-job concurrency and no automatic
// retries. Conversion artifacts that already exist are trusted and
// skipped, so rerunning a job after fixing a rule is cheap. Every
// failure classifies into a one-line outcome naming the stage that
// failed.
package job

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/vmxmig/vmxmig/internal/adjust"
	"github.com/vmxmig/vmxmig/internal/config"
	"github.com/vmxmig/vmxmig/internal/convert"
	"github.com/vmxmig/vmxmig/internal/domain"
	"github.com/vmxmig/vmxmig/internal/logging"
	"github.com/vmxmig/vmxmig/internal/naming"
	"github.com/vmxmig/vmxmig/internal/runcmd"
	"github.com/vmxmig/vmxmig/internal/vmx"
)

// Job is one source VM migration.
type Job struct {
	// Source is the .vmx descriptor path, in either the reference or
	// the mounted namespace.
	Source string
	// OutputXML overrides the derived output descriptor path.
	OutputXML string

	Config *config.Config
	Log    logr.Logger

	// Verbose and Quiet mirror the counted CLI flags; they are
	// forwarded to external tools that take verbosity flags.
	Verbose int
	Quiet   int
}

// Artifacts lists what a job produced (or would produce).
type Artifacts struct {
	// XML is the output descriptor path.
	XML string
	// Log is the append-only per-job stage log.
	Log string
	// Capture receives external tool output.
	Capture string
	// Disks is the conversion plan.
	Disks []domain.DiskPlan
}

// Run executes the pipeline. The returned Artifacts are valid whenever
// the build stage succeeded, even if a later stage failed.
func (j *Job) Run(ctx context.Context) (*Artifacts, error) {
	cfg := j.Config

	loc, err := cfg.Datastores.Locate(j.Source)
	if err != nil {
		return nil, fmt.Errorf("source descriptor: %w", err)
	}

	doc, err := vmx.ParseFile(loc.HostPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc.HostPath, err)
	}

	outXML := j.OutputXML
	if outXML == "" {
		outXML = naming.OutputXML(loc.TargetPath)
	}

	fallback := strings.TrimSuffix(filepath.Base(loc.HostPath), filepath.Ext(loc.HostPath))
	xml, plans, err := domain.BuildXML(doc, cfg.Datastores, cfg.Networks, domain.Options{
		Name:      fallback,
		SourceDir: path.Dir(loc.ReferencePath),
		Mode:      cfg.Mode,
		Format:    cfg.Format,
		Log:       j.Log,
	})
	if err != nil {
		return nil, err
	}

	art := &Artifacts{
		XML:     outXML,
		Log:     naming.LogFile(outXML),
		Capture: naming.CaptureFile(outXML),
		Disks:   plans,
	}

	if err := os.MkdirAll(filepath.Dir(outXML), 0o755); err != nil {
		return art, fmt.Errorf("failed to create output directory: %w", err)
	}
	stage, closeStage, err := openStageLog(art.Log)
	if err != nil {
		return art, err
	}
	defer closeStage()

	capture, err := os.OpenFile(art.Capture, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return art, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer capture.Close()

	runner := runcmd.New(j.Log)
	runner.Capture = capture

	stage("parsed %s (%d keys, %d disks)", loc.HostPath, doc.Len(), len(plans))

	if cfg.ConvertDisks {
		if err := j.convertDisks(ctx, runner, doc, plans, stage); err != nil {
			stage("FAILED: %v", err)
			return art, err
		}
	}

	if err := os.WriteFile(outXML, []byte(xml), 0o644); err != nil {
		return art, fmt.Errorf("failed to write descriptor: %w", err)
	}
	stage("wrote descriptor %s", outXML)
	j.Log.V(logging.LevelInfo).Info(fmt.Sprintf("wrote %s", outXML))

	return art, nil
}

// convertDisks converts every planned disk, adjusting the OS disk when
// requested. With overlay mode the adjustment runs against the source
// data pre-copy (so changes flow into the target); otherwise the
// converted target is adjusted in place.
func (j *Job) convertDisks(ctx context.Context, runner *runcmd.Runner, doc *vmx.Document, plans []domain.DiskPlan, stage stageFunc) error {
	cfg := j.Config

	var engine adjust.Adjuster
	var hook convert.AdjustFunc
	if cfg.Adjust {
		if err := adjust.CheckSupported(doc.GuestOS()); err != nil {
			return err
		}
		engine = j.adjuster(runner)
		if exp, ok := engine.(*adjust.Experimental); ok {
			if _, err := exp.DetectVersion(ctx); err != nil {
				return err
			}
		}
		if cfg.Overlay {
			hook = engine.Adjust
		}
	}

	plain := j.newConverter(runner, nil)
	hooked := j.newConverter(runner, hook)

	var osPlan *domain.DiskPlan
	for i := range plans {
		plan := &plans[i]
		if plan.OS {
			osPlan = plan
		}
		if plan.CDROM || plan.PassThrough || !plan.NeedsConversion() {
			continue
		}
		if cfg.OSDiskOnly && !plan.OS {
			stage("skipping data disk %s", plan.HostPath)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(plan.TargetPath), 0o755); err != nil {
			return fmt.Errorf("failed to create disk directory: %w", err)
		}

		c := plain
		if plan.OS && hook != nil {
			c = hooked
		}
		stage("converting %s -> %s", plan.HostPath, plan.TargetPath)
		if err := c.Convert(ctx, plan.HostPath, plan.TargetPath); err != nil {
			return err
		}
	}

	if cfg.Adjust && !cfg.Overlay {
		if osPlan == nil || !osPlan.NeedsConversion() {
			j.Log.V(logging.LevelWarn).Info("no converted OS disk to adjust")
			return nil
		}
		stage("adjusting guest in %s", osPlan.TargetPath)
		if err := engine.Adjust(ctx, osPlan.TargetPath, false); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job) newConverter(runner *runcmd.Runner, hook convert.AdjustFunc) convert.Converter {
	cfg := j.Config
	opts := convert.Options{
		Format:    cfg.Format,
		CacheMode: cfg.CacheMode,
		Parallel:  cfg.Parallel,
		Force:     cfg.Force,
		Adjust:    hook,
		Log:       j.Log,
	}
	if cfg.NBD {
		return convert.NewNBD(runner, opts)
	}
	return convert.NewQemuImg(runner, opts)
}

func (j *Job) adjuster(runner *runcmd.Runner) adjust.Adjuster {
	if j.Config.AdjustEngine == "x" {
		return &adjust.Experimental{
			Runner:  runner,
			Actions: adjust.Actions{Drivers: true, Trim: true},
			Verbose: j.Verbose,
			Quiet:   j.Quiet,
		}
	}
	return &adjust.V2VInPlace{Runner: runner, Verbose: j.Verbose, Quiet: j.Quiet}
}

// stageFunc appends one timestamped line to the per-job stage log.
type stageFunc func(format string, args ...any)

func openStageLog(path string) (stageFunc, func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stage log: %w", err)
	}
	stage := func(format string, args ...any) {
		fmt.Fprintf(f, "%s %s\n", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...))
	}
	return stage, func() { f.Close() }, nil
}
