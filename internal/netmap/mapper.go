// Package netmap rewrites virtual network references from the source
// descriptor to destination networks or bridges.
//
// Unlike disk mapping, an unresolved network is not fatal: missing
// connectivity is recoverable after migration, a missing disk is not.
// Unmatched interfaces fall back to a configured default.
package netmap

import (
	"fmt"
	"strings"
)

// Target is a destination network reference: either a libvirt network
// name or a host bridge.
type Target struct {
	Network string `yaml:"network,omitempty"`
	Bridge  string `yaml:"bridge,omitempty"`
}

// IsZero reports whether no destination is set.
func (t Target) IsZero() bool { return t.Network == "" && t.Bridge == "" }

func (t Target) String() string {
	if t.Bridge != "" {
		return "bridge:" + t.Bridge
	}
	return t.Network
}

// ParseTarget parses the CLI destination syntax: "bridge:br0" selects
// a host bridge, anything else names a libvirt network.
func ParseTarget(s string) Target {
	if name, ok := strings.CutPrefix(s, "bridge:"); ok {
		return Target{Bridge: name}
	}
	return Target{Network: s}
}

// Rule matches a source virtual network by name or connection type.
type Rule struct {
	// MatchName matches the VMX networkName literally
	// (case-insensitive). Checked before MatchType.
	MatchName string `yaml:"name,omitempty"`
	// MatchType matches the VMX connectionType ("bridged", "nat",
	// "hostonly", "custom").
	MatchType string `yaml:"type,omitempty"`
	Target    Target `yaml:"target"`
}

// Validate checks that the rule has a matcher and a destination.
func (r Rule) Validate() error {
	if r.MatchName == "" && r.MatchType == "" {
		return fmt.Errorf("network rule needs a name or type matcher")
	}
	if r.Target.IsZero() {
		return fmt.Errorf("network rule needs a target network or bridge")
	}
	return nil
}

// ParseRule parses the CLI rule syntax "match=target" where match is
// a network name (for --network) or connection type (for
// --network-type).
func ParseRule(s string, byType bool) (Rule, error) {
	match, target, ok := strings.Cut(s, "=")
	if !ok || match == "" || target == "" {
		return Rule{}, fmt.Errorf("invalid network rule %q: want MATCH=TARGET", s)
	}
	r := Rule{Target: ParseTarget(strings.TrimSpace(target))}
	if byType {
		r.MatchType = strings.TrimSpace(match)
	} else {
		r.MatchName = strings.TrimSpace(match)
	}
	return r, nil
}

// Rules is an ordered network rule list plus the fallback default.
type Rules struct {
	Rules   []Rule `yaml:"rules,omitempty"`
	Default Target `yaml:"default"`
}

// Validate checks every rule and that a default exists when any
// interface could miss.
func (rs Rules) Validate() error {
	for i, r := range rs.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("network rule %d: %w", i, err)
		}
	}
	return nil
}

// DefaultTarget is used when no rule matches and no default is
// configured: the libvirt default NAT network.
var DefaultTarget = Target{Network: "default"}

// Resolve maps a source network to a destination. Name matches are
// checked across all rules before type matches. A miss degrades to
// the configured default (or the libvirt default network) and reports
// matched=false so the caller can log it.
func (rs Rules) Resolve(name, connType string) (Target, bool) {
	for _, r := range rs.Rules {
		if r.MatchName != "" && strings.EqualFold(r.MatchName, name) {
			return r.Target, true
		}
	}
	for _, r := range rs.Rules {
		if r.MatchType != "" && strings.EqualFold(r.MatchType, connType) {
			return r.Target, true
		}
	}
	if !rs.Default.IsZero() {
		return rs.Default, false
	}
	return DefaultTarget, false
}
