package validation

import (
	"fmt"

	"go-capture-inspector/pkg/models"
)

// Each check has exactly one comparison direction. These helpers keep the
// direction next to the check construction so it cannot drift.

// AtLeast passes when score >= threshold.
func AtLeast(name string, score, threshold float64) models.CheckResult {
	return models.CheckResult{
		Name:      name,
		Passed:    score >= threshold,
		Score:     models.Clamp01(score),
		Threshold: threshold,
	}
}

// Above passes when score > threshold.
func Above(name string, score, threshold float64) models.CheckResult {
	return models.CheckResult{
		Name:      name,
		Passed:    score > threshold,
		Score:     models.Clamp01(score),
		Threshold: threshold,
	}
}

// AtMost passes when score <= max.
func AtMost(name string, score, max float64) models.CheckResult {
	return models.CheckResult{
		Name:      name,
		Passed:    score <= max,
		Score:     models.Clamp01(score),
		Threshold: max,
	}
}

// Within passes when score lies in the closed range. Threshold carries the
// lower bound; a failure note names both bounds.
func Within(name string, score float64, r Range) models.CheckResult {
	res := models.CheckResult{
		Name:      name,
		Passed:    r.Contains(score),
		Score:     models.Clamp01(score),
		Threshold: r.Min,
	}
	if !res.Passed {
		res.Note = fmt.Sprintf("outside [%.3f, %.3f]", r.Min, r.Max)
	}
	return res
}

// Conjunction folds sub-checks into one check that passes only when every
// sub-check passes. Score is the fraction of passing sub-checks.
func Conjunction(name string, subs ...models.CheckResult) models.CheckResult {
	res := models.CheckResult{
		Name:      name,
		Passed:    true,
		Threshold: 1,
		SubChecks: make(map[string]models.CheckResult, len(subs)),
	}
	if len(subs) == 0 {
		res.Score = 1
		return res
	}
	passed := 0
	for _, sub := range subs {
		res.SubChecks[sub.Name] = sub
		if sub.Passed {
			passed++
		} else {
			res.Passed = false
		}
	}
	res.Score = float64(passed) / float64(len(subs))
	return res
}
