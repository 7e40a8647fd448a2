// Package logging provides the shared logger for the vmxmig binaries.
//
// The CLI exposes repeatable -v and -q flags; the two counts select a
// logr verbosity: warnings print by default, -v adds progress info,
// -vv adds command argv echoes, -q silences warnings and -qq
// everything but errors.
package logging

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// Verbosity levels used across the codebase.
const (
	// LevelWarn is the default level: warnings and one-line outcomes.
	LevelWarn = 0
	// LevelInfo is enabled with -v: per-stage progress.
	LevelInfo = 1
	// LevelDebug is enabled with -vv: external command argv echoes.
	LevelDebug = 2
)

// New returns a logger writing plain messages to stderr.
//
// verbose and quiet are the counted -v / -q flags; they are mutually
// exclusive and each is capped at 2. Errors always print. With quiet
// >= 1 the V(0) warnings are suppressed too.
func New(verbose, quiet int) logr.Logger {
	if verbose > 2 {
		verbose = 2
	}
	if quiet > 2 {
		quiet = 2
	}
	threshold := verbose - quiet

	return funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{
		Verbosity: threshold,
		RenderBuiltinsHook: func(kvList []any) []any {
			// Drop the "level" builtin; output is message-only.
			out := make([]any, 0, len(kvList))
			for i := 0; i+1 < len(kvList); i += 2 {
				if k, ok := kvList[i].(string); ok && k == "level" {
					continue
				}
				out = append(out, kvList[i], kvList[i+1])
			}
			return out
		},
	})
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() logr.Logger {
	return logr.Discard()
}
