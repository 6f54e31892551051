// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package fraud

import (
	"errors"
	"reflect"
	"testing"
)

func twoGroupDatum() map[string]any {
	return map[string]any{
		"group_a": map[string]any{"x": 0.8, "y": false},
		"group_b": map[string]any{"x": true, "y": true},
	}
}

func twoGroupPipeline() *Pipeline {
	return &Pipeline{Checks: []Check{
		{
			ID:       "id1",
			Operands: map[string]string{"x": "group_a.x", "y": "group_a.y"},
			Rule:     "x > 0.5 || y",
		},
		{
			ID:       "id2",
			Operands: map[string]string{"x": "group_b.x", "y": "group_b.y"},
			Rule:     "x && !y",
		},
	}}
}

func TestEvaluateTwoGroups(t *testing.T) {
	report, err := twoGroupPipeline().Evaluate(twoGroupDatum())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	r1 := report.CheckResults["id1"]
	if !r1.Enabled || r1.Result == nil || !*r1.Result {
		t.Errorf("id1 = %+v, want enabled with result true", r1)
	}
	r2 := report.CheckResults["id2"]
	if !r2.Enabled || r2.Result == nil || *r2.Result {
		t.Errorf("id2 = %+v, want enabled with result false", r2)
	}
	if !report.FraudDetected() {
		t.Error("FraudDetected = false, want true")
	}
	if got := report.TriggeredChecks(); !reflect.DeepEqual(got, []string{"id1"}) {
		t.Errorf("TriggeredChecks = %v, want [id1]", got)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	p := twoGroupPipeline()
	datum := twoGroupDatum()

	first, err := p.Evaluate(datum)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	// A different datum between runs must not leak state into the
	// pipeline.
	other := map[string]any{
		"group_a": map[string]any{"x": 0.1, "y": false},
		"group_b": map[string]any{"x": false, "y": false},
	}
	if _, err := p.Evaluate(other); err != nil {
		t.Fatalf("Evaluate(other): %v", err)
	}

	second, err := p.Evaluate(datum)
	if err != nil {
		t.Fatalf("Evaluate again: %v", err)
	}
	if !reflect.DeepEqual(first.CheckResults, second.CheckResults) {
		t.Errorf("repeat evaluation differs: %+v vs %+v", first.CheckResults, second.CheckResults)
	}
}

func TestDuplicateIdentifier(t *testing.T) {
	p := &Pipeline{Checks: []Check{
		{ID: "dup", Rule: "true"},
		{ID: "dup", Rule: "false"},
	}}
	_, err := p.Evaluate(map[string]any{})
	var dup *DuplicateCheckError
	if !errors.As(err, &dup) {
		t.Fatalf("Evaluate = %v, want DuplicateCheckError", err)
	}
	if dup.ID != "dup" {
		t.Errorf("ID = %q, want %q", dup.ID, "dup")
	}
}

func TestMissingOperandIsIndeterminateAndPositive(t *testing.T) {
	p := &Pipeline{Checks: []Check{{
		ID:       "gap",
		Operands: map[string]string{"x": "nowhere.x"},
		Rule:     "x > 0.5",
	}}}
	report, err := p.Evaluate(map[string]any{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.CheckResults["gap"].Result != nil {
		t.Errorf("Result = %v, want nil", *report.CheckResults["gap"].Result)
	}
	if !report.FraudDetected() {
		t.Error("FraudDetected = false, want true for indeterminate enabled check")
	}
}

func TestDisabledCheckDoesNotTrigger(t *testing.T) {
	off := false
	p := &Pipeline{Checks: []Check{{ID: "off", Enabled: &off, Rule: "true"}}}
	report, err := p.Evaluate(map[string]any{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.FraudDetected() {
		t.Error("FraudDetected = true for a disabled check")
	}
}

func TestParsePipelineYAML(t *testing.T) {
	def := []byte(`
checks:
  - id: occlusion
    operands:
      score: face.occlusion.score
    rule: score > 0.5
  - id: paper-mask
    enabled: false
    operands:
      flat: depth.flatness
      hot: thermal.uniform
    rule: flat && hot
`)
	p, err := ParsePipeline(def)
	if err != nil {
		t.Fatalf("ParsePipeline: %v", err)
	}
	if len(p.Checks) != 2 {
		t.Fatalf("len(Checks) = %d, want 2", len(p.Checks))
	}
	if p.Checks[0].enabled() != true {
		t.Error("absent enabled flag should default to true")
	}
	if p.Checks[1].enabled() != false {
		t.Error("explicit enabled: false ignored")
	}
}

func TestParsePipelineRejectsBadRule(t *testing.T) {
	_, err := ParsePipeline([]byte("checks:\n  - id: broken\n    rule: \"x >\"\n"))
	if err == nil {
		t.Fatal("ParsePipeline accepted a truncated rule")
	}
}
