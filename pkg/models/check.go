package models

import (
	"math"
	"sort"
	"strings"
)

// CheckResult is the outcome of one named check.
// Score is always clamped to [0,1]; the pass decision is made by the check's
// own comparison against Threshold and is never derived from Score ordering.
type CheckResult struct {
	Name      string                 `json:"name"`
	Passed    bool                   `json:"passed"`
	Score     float64                `json:"score"`
	RawScore  *float64               `json:"raw_score,omitempty"`
	Threshold float64                `json:"threshold"`
	Note      string                 `json:"note,omitempty"`
	SubChecks map[string]CheckResult `json:"sub_checks,omitempty"`
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Float returns a pointer to v, used for optional raw scores.
func Float(v float64) *float64 {
	return &v
}

// FailedCheck builds a failed result carrying a note, used when a check
// could not be computed.
func FailedCheck(name string, threshold float64, note string) CheckResult {
	return CheckResult{Name: name, Passed: false, Score: 0, Threshold: threshold, Note: note}
}

// FailedNames lists the names of failed checks among names, keeping the
// given order and skipping names absent from checks.
func FailedNames(checks map[string]CheckResult, names []string) []string {
	var failed []string
	for _, name := range names {
		if c, ok := checks[name]; ok && !c.Passed {
			failed = append(failed, name)
		}
	}
	return failed
}

// FailureMessage renders failed check names as the user-facing error string.
// It returns nil when nothing failed.
func FailureMessage(failed []string) *string {
	if len(failed) == 0 {
		return nil
	}
	msg := "failed checks: " + strings.Join(failed, ", ")
	return &msg
}

// SortedNames returns the keys of checks in lexical order.
func SortedNames(checks map[string]CheckResult) []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
