package job

import (
	"errors"
	"fmt"

	"github.com/vmxmig/vmxmig/internal/adjust"
	"github.com/vmxmig/vmxmig/internal/convert"
	"github.com/vmxmig/vmxmig/internal/datastore"
	"github.com/vmxmig/vmxmig/internal/vmx"
)

// Stage names used in classified outcomes.
const (
	StageParse   = "parse"
	StageMap     = "map"
	StageConvert = "conv"
	StageAdjust  = "adjust"
	StageScript  = "script"
)

// Classify names the pipeline stage responsible for err.
func Classify(err error) string {
	var parseErr *vmx.ParseError
	if errors.As(err, &parseErr) {
		return StageParse
	}
	var unmapped *datastore.UnmappedError
	if errors.As(err, &unmapped) {
		return StageMap
	}
	var convErr *convert.ConversionError
	if errors.As(err, &convErr) {
		return StageConvert
	}
	var adjErr *adjust.AdjustError
	if errors.As(err, &adjErr) {
		return StageAdjust
	}
	var unsupported *adjust.UnsupportedGuestError
	if errors.As(err, &unsupported) {
		return StageAdjust
	}
	return StageScript
}

// Outcome is the one-line result of a job.
type Outcome struct {
	Source string
	Err    error
}

func (o Outcome) String() string {
	if o.Err == nil {
		return fmt.Sprintf("SUCCESS: %s", o.Source)
	}
	return fmt.Sprintf("FAILURE(%s): %s: %v", Classify(o.Err), o.Source, o.Err)
}

// Failed reports whether the job failed.
func (o Outcome) Failed() bool { return o.Err != nil }
