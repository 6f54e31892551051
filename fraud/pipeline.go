// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package fraud

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Check binds named operands to dotted datum paths and evaluates a
// boolean rule over them.
type Check struct {
	// ID is the unique check identifier, used as the report key and
	// telemetry tag.
	ID string `yaml:"id"`

	// Enabled gates whether the check's result counts toward
	// FraudDetected. Disabled checks are still evaluated and reported.
	// Defaults to true when absent from the definition.
	Enabled *bool `yaml:"enabled"`

	// Operands maps rule variable names to dotted paths into the
	// datum, like "face.occlusion.score".
	Operands map[string]string `yaml:"operands"`

	// Rule is the boolean expression over the operands.
	Rule string `yaml:"rule"`
}

func (c Check) enabled() bool { return c.Enabled == nil || *c.Enabled }

// Pipeline is an ordered list of checks. It carries no state across
// evaluations.
type Pipeline struct {
	Checks []Check `yaml:"checks"`
}

// DuplicateCheckError reports two checks sharing an identifier.
type DuplicateCheckError struct {
	ID string
}

func (e *DuplicateCheckError) Error() string {
	return fmt.Sprintf("duplicate check identifier %q", e.ID)
}

// ParsePipeline decodes a YAML pipeline definition and parses every
// rule, so malformed rules surface at load time rather than during a
// signup.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding pipeline definition: %w", err)
	}
	seen := make(map[string]bool, len(p.Checks))
	for _, c := range p.Checks {
		if c.ID == "" {
			return nil, fmt.Errorf("check with empty identifier")
		}
		if seen[c.ID] {
			return nil, &DuplicateCheckError{ID: c.ID}
		}
		seen[c.ID] = true
		if _, err := parseRule(c.Rule); err != nil {
			return nil, fmt.Errorf("check %s: parsing rule: %w", c.ID, err)
		}
	}
	return &p, nil
}

// LoadPipeline reads a pipeline definition file.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline definition: %w", err)
	}
	return ParsePipeline(data)
}

// Evaluate runs every check against the datum and returns the report.
// The datum is JSON-shaped: nested map[string]any with float64, bool,
// and string leaves. Evaluation never mutates the pipeline or the
// datum.
func (p *Pipeline) Evaluate(datum map[string]any) (*Report, error) {
	report := &Report{CheckResults: make(map[string]CheckResult, len(p.Checks))}
	for _, c := range p.Checks {
		if _, ok := report.CheckResults[c.ID]; ok {
			return nil, &DuplicateCheckError{ID: c.ID}
		}
		rule, err := parseRule(c.Rule)
		if err != nil {
			return nil, fmt.Errorf("check %s: parsing rule: %w", c.ID, err)
		}
		operands := make(map[string]value, len(c.Operands))
		for name, path := range c.Operands {
			if v, ok := resolve(datum, path); ok {
				operands[name] = v
			}
		}
		var result *bool
		if b, ok := rule.eval(operands).(bool); ok {
			result = &b
		}
		report.CheckResults[c.ID] = CheckResult{Enabled: c.enabled(), Result: result}
	}
	return report, nil
}

// resolve walks a dotted path through nested maps. Numeric leaves are
// normalized to float64 so YAML-loaded datums and hand-built test
// datums compare alike.
func resolve(datum map[string]any, path string) (value, bool) {
	parts := strings.Split(path, ".")
	var current any = datum
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	switch v := current.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		return v, true
	default:
		return nil, false
	}
}
