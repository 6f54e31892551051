// Copyright 2026 The Lumencore Authors
// SPDX-License-Identifier: Apache-2.0

package fraud

import (
	"slices"
)

// CheckResult is the outcome of one check. A nil Result means the
// check was indeterminate: an operand was missing or the rule could
// not be evaluated over the bound types.
type CheckResult struct {
	Enabled bool
	Result  *bool
}

// triggered reports whether this result counts as fraud. Indeterminate
// results on enabled checks count: absence of evidence of liveness is
// not evidence of liveness.
func (r CheckResult) triggered() bool {
	return r.Enabled && (r.Result == nil || *r.Result)
}

// Report maps check identifiers to their results.
type Report struct {
	CheckResults map[string]CheckResult
}

// FraudDetected reports whether any enabled check triggered.
func (r *Report) FraudDetected() bool {
	for _, result := range r.CheckResults {
		if result.triggered() {
			return true
		}
	}
	return false
}

// TriggeredChecks returns the sorted identifiers of enabled checks
// that triggered, for telemetry tagging.
func (r *Report) TriggeredChecks() []string {
	var ids []string
	for id, result := range r.CheckResults {
		if result.triggered() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
