// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

// Package fraud evaluates a configured list of checks over the signup
// datum at plan completion.
//
// A pipeline is an ordered list of checks. Each check binds named
// operands to dotted paths into a JSON-shaped datum and evaluates a
// boolean rule over them. Evaluation is pure: no state survives a run,
// and the same datum always yields the same report. An operand that
// cannot be resolved, or a rule whose operand types do not match, makes
// that check's result indeterminate; Report.FraudDetected treats an
// indeterminate result on an enabled check as positive.
//
// Pipelines are defined in YAML:
//
//	checks:
//	  - id: occlusion
//	    operands:
//	      score: face.occlusion.score
//	    rule: score > 0.5
//	  - id: paper-mask
//	    enabled: false
//	    operands:
//	      flat: depth.flatness
//	      hot: thermal.uniform
//	    rule: flat && hot
package fraud
