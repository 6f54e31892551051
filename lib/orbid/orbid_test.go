// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package orbid

import (
	"strings"
	"testing"
)

func TestEncodeDecodeIdentity(t *testing.T) {
	id := ID{
		Version: Version,
		Region:  RegionEurope,
		Session: Session{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		Counter: 0xDEADBEEF,
	}

	decoded := Decode(id.Encode())
	if decoded != id {
		t.Errorf("Decode(Encode(id)) = %+v, want %+v", decoded, id)
	}

	// Encode→decode→encode is the identity on the wire form.
	if Decode(id.Encode()).Encode() != id.Encode() {
		t.Error("re-encoding changed the wire form")
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	generator, err := NewGenerator(RegionAsia)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	id := generator.NewID()
	s := id.String()
	if len(s) != 32 {
		t.Fatalf("String length = %d, want 32", len(s))
	}
	if s != strings.ToLower(s) {
		t.Error("String is not lowercase hex")
	}

	parsed, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	if parsed != id {
		t.Errorf("Parse(String(id)) = %+v, want %+v", parsed, id)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "0102"},
		{"not hex", strings.Repeat("zz", 16)},
		{"unknown version", "ff" + strings.Repeat("00", 15)},
		{"unknown region", "01ff" + strings.Repeat("00", 14)},
		{"zero region", "0100" + strings.Repeat("00", 14)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.input); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tc.input)
			}
		})
	}
}

func TestGeneratorCountersIncrease(t *testing.T) {
	generator, err := NewGenerator(RegionNorthAmerica)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	first := generator.NewID()
	second := generator.NewID()
	if first.Session != second.Session {
		t.Error("identifiers of one generator have different sessions")
	}
	if second.Counter != first.Counter+1 {
		t.Errorf("Counter = %d after %d, want +1", second.Counter, first.Counter)
	}
}

func TestParseRegion(t *testing.T) {
	for r := RegionNorthAmerica; r <= RegionOceania; r++ {
		parsed, err := ParseRegion(r.String())
		if err != nil {
			t.Errorf("ParseRegion(%q): %v", r.String(), err)
			continue
		}
		if parsed != r {
			t.Errorf("ParseRegion(%q) = %v, want %v", r.String(), parsed, r)
		}
	}
	if _, err := ParseRegion("atlantis"); err == nil {
		t.Error("ParseRegion accepted an unknown region name")
	}
}

func TestSessionsAreDistinct(t *testing.T) {
	a, err := NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	b, err := NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if a == b {
		t.Error("two sessions collided")
	}
}
