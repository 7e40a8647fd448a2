package logging

import (
	"testing"
)

func TestVerbosityThresholds(t *testing.T) {
	tests := []struct {
		name           string
		verbose, quiet int
		wantWarn       bool
		wantInfo       bool
		wantDebug      bool
	}{
		{name: "default", wantWarn: true},
		{name: "verbose", verbose: 1, wantWarn: true, wantInfo: true},
		{name: "very verbose", verbose: 2, wantWarn: true, wantInfo: true, wantDebug: true},
		{name: "verbosity capped", verbose: 9, wantWarn: true, wantInfo: true, wantDebug: true},
		{name: "quiet", quiet: 1},
		{name: "verbose and quiet cancel", verbose: 1, quiet: 1, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.verbose, tt.quiet)
			if got := log.V(LevelWarn).Enabled(); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
			if got := log.V(LevelInfo).Enabled(); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := log.V(LevelDebug).Enabled(); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	if log.V(LevelWarn).Enabled() {
		t.Error("discard logger reports enabled")
	}
	// Must not panic.
	log.V(LevelDebug).Info("dropped")
}
