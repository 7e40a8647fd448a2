// Package datastore rewrites storage paths from the source hypervisor
// namespace to the destination namespace.
//
// Every datastore an in-scope VM touches must be covered by an explicit
// rule; an unmatched disk reference is an error rather than a silent
// copy to a default location. Rules are evaluated in configured order
// and the first match wins.
package datastore

import (
	"fmt"
	"path"
	"strings"
)

// Rule maps one source datastore to its destination.
//
// ReferencePrefix is the path prefix as it appears inside the source
// descriptor (e.g. "/vmfs/volumes/datastore1"). MountedPrefix is where
// that storage is reachable on the conversion host. TargetPrefix is the
// destination namespace; when empty the rule is pass-through: the
// mounted path is referenced verbatim and nothing under it is
// converted.
type Rule struct {
	ReferencePrefix string `yaml:"reference"`
	MountedPrefix   string `yaml:"mounted"`
	TargetPrefix    string `yaml:"target,omitempty"`
}

// PassThrough reports whether the rule only relocates references
// without scheduling conversion.
func (r Rule) PassThrough() bool {
	return r.TargetPrefix == "" || r.TargetPrefix == r.MountedPrefix
}

// Validate checks that the rule prefixes are usable.
func (r Rule) Validate() error {
	if r.ReferencePrefix == "" {
		return fmt.Errorf("reference prefix is required")
	}
	if r.MountedPrefix == "" {
		return fmt.Errorf("mounted prefix is required")
	}
	return nil
}

// ParseRule parses the CLI rule syntax "ref,mounted[,target]".
// Omitting target yields a pass-through rule.
func ParseRule(s string) (Rule, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return Rule{}, fmt.Errorf("invalid datastore rule %q: want REFERENCE,MOUNTED[,TARGET]", s)
	}
	r := Rule{
		ReferencePrefix: strings.TrimSpace(parts[0]),
		MountedPrefix:   strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		r.TargetPrefix = strings.TrimSpace(parts[2])
	}
	if err := r.Validate(); err != nil {
		return Rule{}, fmt.Errorf("invalid datastore rule %q: %w", s, err)
	}
	return r, nil
}

// Rules is a priority-ordered rule list. The zero value matches
// nothing. Rules are immutable per job; concurrent jobs must not share
// a mutable list.
type Rules []Rule

// Validate checks every rule.
func (rs Rules) Validate() error {
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("datastore rule %d: %w", i, err)
		}
	}
	return nil
}

// Resolution is the outcome of mapping one path.
type Resolution struct {
	// HostPath is where the referenced file is reachable on the
	// conversion host.
	HostPath string
	// TargetPath is the destination path. For pass-through rules it
	// equals HostPath.
	TargetPath string
	// PassThrough marks files that must not be converted.
	PassThrough bool
}

// UnmappedError reports a path covered by no rule.
type UnmappedError struct {
	Path string
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("no datastore rule matches %q: every datastore the VM touches must be mapped", e.Path)
}

// Resolve maps a source path through the first matching rule.
// Returns *UnmappedError when no rule's reference prefix matches.
func (rs Rules) Resolve(p string) (Resolution, error) {
	for _, r := range rs {
		rest, ok := trimPrefix(p, r.ReferencePrefix)
		if !ok {
			continue
		}
		host := path.Join(r.MountedPrefix, rest)
		if r.PassThrough() {
			return Resolution{HostPath: host, TargetPath: host, PassThrough: true}, nil
		}
		return Resolution{HostPath: host, TargetPath: path.Join(r.TargetPrefix, rest)}, nil
	}
	return Resolution{}, &UnmappedError{Path: p}
}

// Location places the source descriptor in all three namespaces.
type Location struct {
	// ReferencePath is the descriptor path as sibling files inside it
	// are referenced (the source hypervisor namespace).
	ReferencePath string
	// HostPath is where the descriptor is readable on the conversion
	// host.
	HostPath string
	// TargetPath is the descriptor's place in the destination
	// namespace; derived artifacts live next to it.
	TargetPath string
}

// Locate maps a source descriptor path given in either the reference
// or the mounted namespace. Returns *UnmappedError when no rule covers
// the path.
func (rs Rules) Locate(p string) (Location, error) {
	for _, r := range rs {
		if rest, ok := trimPrefix(p, r.ReferencePrefix); ok {
			return r.location(rest), nil
		}
	}
	for _, r := range rs {
		if rest, ok := trimPrefix(p, r.MountedPrefix); ok {
			return r.location(rest), nil
		}
	}
	return Location{}, &UnmappedError{Path: p}
}

func (r Rule) location(rest string) Location {
	loc := Location{
		ReferencePath: path.Join(r.ReferencePrefix, rest),
		HostPath:      path.Join(r.MountedPrefix, rest),
	}
	if r.PassThrough() {
		loc.TargetPath = loc.HostPath
	} else {
		loc.TargetPath = path.Join(r.TargetPrefix, rest)
	}
	return loc
}

// trimPrefix strips prefix from p at a path component boundary.
// "/a/bc" is not under "/a/b".
func trimPrefix(p, prefix string) (string, bool) {
	prefix = strings.TrimSuffix(prefix, "/")
	if p == prefix {
		return "", true
	}
	if strings.HasPrefix(p, prefix+"/") {
		return strings.TrimPrefix(p, prefix+"/"), true
	}
	return "", false
}
