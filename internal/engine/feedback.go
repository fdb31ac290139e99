package engine

import (
	"fmt"

	"github.com/fieldstone/proctor/internal/rule"
)

const (
	feedbackNoRules  = "✓ Step completed! This step has no validation requirements."
	feedbackComplete = "✓ Step completed! All requirements met."

	// feedbackNoMatch is the fallback when every rule failed and none
	// carries its own message.
	feedbackNoMatch = "Command doesn't match what's expected. Try the hint if you're stuck."

	// hintFallback is returned when no failed rule carries a message.
	hintFallback = "Review the step objectives and try again."
)

// feedback synthesizes the learner-facing message from the rule results.
// Branches, in order: full pass, partial pass over threshold, everything
// failed, mixed results.
func feedback(passed bool, progress, minimumScore int, results []rule.Result) string {
	if passed && progress == 100 {
		return feedbackComplete
	}
	if passed {
		return fmt.Sprintf("✓ Requirements met (%d%%, minimum %d%%).", progress, minimumScore)
	}

	passedCount := 0
	for _, res := range results {
		if res.Passed {
			passedCount++
		}
	}

	if passedCount == 0 {
		// Surface the first failed rule's own message verbatim.
		for _, res := range results {
			if !res.Passed && res.Message != "" {
				return res.Message
			}
		}
		return feedbackNoMatch
	}

	return fmt.Sprintf("⚠ Partially correct (%d/%d requirements met). Progress: %d%%",
		passedCount, len(results), progress)
}

// NextHint returns guidance for the first unmet rule. ok is false iff the
// report passed - a passing submission needs no hint.
func NextHint(report *Report) (hint string, ok bool) {
	if report == nil || report.Passed {
		return "", false
	}
	for _, res := range report.RuleResults {
		if !res.Passed && res.Message != "" {
			return res.Message, true
		}
	}
	return hintFallback, true
}
