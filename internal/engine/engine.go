package engine

import (
	"github.com/fieldstone/proctor/internal/extract"
	"github.com/fieldstone/proctor/internal/rule"
	"github.com/fieldstone/proctor/internal/scenario"
)

// Report is the engine's structured verdict on one command submission.
type Report struct {
	// Passed indicates the step's pass threshold was reached.
	Passed bool `json:"passed"`

	// MatchedRules and FailedRules list rule IDs by outcome.
	MatchedRules []string `json:"matched_rules"`
	FailedRules  []string `json:"failed_rules"`

	// Feedback is a short human-readable message for the learner.
	Feedback string `json:"feedback"`

	// Progress is the weighted score as an integer percentage (0-100).
	Progress int `json:"progress"`

	// Score is the weighted score in [0, 1].
	Score float64 `json:"score"`

	// RuleResults holds the per-rule outcomes, in rule order.
	RuleResults []rule.Result `json:"rule_results"`
}

// Validate checks a submitted command and its captured output against a
// scenario step. executed is the history of commands already tried this
// step, most recent last, NOT including the current command; env is an
// opaque token forwarded only to state probes.
//
// Validate is total for well-formed steps: for any string inputs it
// returns a structured Report. The only error is malformed rule content
// in the step itself (see extract.AuthoringError).
func Validate(command, output string, step *scenario.Step, env any, executed []string) (*Report, error) {
	rules, err := extract.Rules(step)
	if err != nil {
		return nil, err
	}

	// Zero rules: absence of checkable requirements is vacuously satisfied.
	if len(rules) == 0 {
		return &Report{
			Passed:       true,
			MatchedRules: []string{},
			FailedRules:  []string{},
			Feedback:     feedbackNoRules,
			Progress:     100,
			Score:        1,
			RuleResults:  []rule.Result{},
		}, nil
	}

	history := make([]string, 0, len(executed)+1)
	history = append(history, executed...)
	history = append(history, command)

	results := make([]rule.Result, len(rules))
	for i, r := range rules {
		results[i] = evaluateRule(r, command, output, env, history)
	}

	return buildReport(step, rules, results), nil
}

// StepComplete is a lighter completeness probe: it re-runs extraction and
// evaluation using only the most recent command and an empty output
// string, then applies the same scoring threshold.
//
// This intentionally omits output-dependent information, so it can
// disagree with a full Validate call whenever a step's pass condition
// depends on output patterns. The divergence is inherited behavior; the
// intended semantics are ambiguous, so it is documented rather than fixed.
func StepComplete(step *scenario.Step, executed []string, env any) (bool, error) {
	rules, err := extract.Rules(step)
	if err != nil {
		return false, err
	}
	if len(rules) == 0 {
		return true, nil
	}

	last := ""
	if len(executed) > 0 {
		last = executed[len(executed)-1]
	}

	results := make([]rule.Result, len(rules))
	for i, r := range rules {
		results[i] = evaluateRule(r, last, "", env, executed)
	}

	_, progress := scoreResults(rules, results)
	return progress >= step.MinimumScore(), nil
}

// buildReport aggregates per-rule results into the final verdict.
func buildReport(step *scenario.Step, rules []rule.Rule, results []rule.Result) *Report {
	matched := []string{}
	failed := []string{}
	for _, res := range results {
		if res.Passed {
			matched = append(matched, res.RuleID)
		} else {
			failed = append(failed, res.RuleID)
		}
	}

	score, progress := scoreResults(rules, results)
	passed := progress >= step.MinimumScore()

	return &Report{
		Passed:       passed,
		MatchedRules: matched,
		FailedRules:  failed,
		Feedback:     feedback(passed, progress, step.MinimumScore(), results),
		Progress:     progress,
		Score:        score,
		RuleResults:  results,
	}
}
