package netmap

import "testing"

func TestResolve(t *testing.T) {
	rules := Rules{
		Rules: []Rule{
			{MatchType: "nat", Target: Target{Network: "nat-net"}},
			{MatchName: "VM Network", Target: Target{Bridge: "br0"}},
			{MatchName: "DMZ", Target: Target{Bridge: "br-dmz"}},
		},
		Default: Target{Bridge: "br-default"},
	}

	tests := []struct {
		name        string
		netName     string
		connType    string
		want        Target
		wantMatched bool
	}{
		{
			// Name match beats the earlier-listed type match.
			name:        "name match has priority over type",
			netName:     "VM Network",
			connType:    "nat",
			want:        Target{Bridge: "br0"},
			wantMatched: true,
		},
		{
			name:        "name match case insensitive",
			netName:     "dmz",
			connType:    "bridged",
			want:        Target{Bridge: "br-dmz"},
			wantMatched: true,
		},
		{
			name:        "type match",
			netName:     "unlisted",
			connType:    "NAT",
			want:        Target{Network: "nat-net"},
			wantMatched: true,
		},
		{
			name:        "fallback to configured default",
			netName:     "unlisted",
			connType:    "bridged",
			want:        Target{Bridge: "br-default"},
			wantMatched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := rules.Resolve(tt.netName, tt.connType)
			if got != tt.want || matched != tt.wantMatched {
				t.Errorf("Resolve(%q, %q) = %+v, %v; want %+v, %v",
					tt.netName, tt.connType, got, matched, tt.want, tt.wantMatched)
			}
		})
	}
}

func TestResolveNoRulesUsesLibvirtDefault(t *testing.T) {
	got, matched := Rules{}.Resolve("anything", "bridged")
	if matched {
		t.Error("matched = true, want false")
	}
	if got != DefaultTarget {
		t.Errorf("Resolve() = %+v, want %+v", got, DefaultTarget)
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		byType  bool
		want    Rule
		wantErr bool
	}{
		{
			name:  "name to network",
			input: "VM Network=default",
			want:  Rule{MatchName: "VM Network", Target: Target{Network: "default"}},
		},
		{
			name:  "name to bridge",
			input: "DMZ=bridge:br-dmz",
			want:  Rule{MatchName: "DMZ", Target: Target{Bridge: "br-dmz"}},
		},
		{
			name:   "type rule",
			input:  "nat=default",
			byType: true,
			want:   Rule{MatchType: "nat", Target: Target{Network: "default"}},
		},
		{name: "missing target", input: "name=", wantErr: true},
		{name: "missing separator", input: "name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRule(tt.input, tt.byType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseRule() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
