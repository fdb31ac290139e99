package rule

import "regexp"

// DefaultWeight is applied when a rule specification omits the weight.
const DefaultWeight = 1.0

// Rule is one checkable requirement derived from a scenario step.
// Rules are derived fresh on every validation call and carry no identity
// or state across calls.
type Rule struct {
	// ID identifies the rule within a single validation pass.
	// IDs are deterministic per step so reports are reproducible.
	ID string

	// Weight is the rule's share of the step score. Defaults to 1.
	// Weight controls only the rule's share of the whole; a rule itself
	// is binary, with no partial credit inside it.
	Weight float64

	// Message is shown to the learner when the rule fails.
	Message string

	// Check determines how the rule is evaluated.
	Check Check
}

// Result records the outcome of evaluating a single rule.
type Result struct {
	RuleID  string `json:"rule_id"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// StateProbe is a caller-supplied capability over external, uninspectable
// state. The engine forwards the environment token untouched; it never
// inspects it. The sole contract: returns a boolean, may fail, and failure
// becomes a failed rule - a probe never reaches back into engine internals.
type StateProbe func(env any) (bool, error)

// Check is the behavior of a rule.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the evaluator.
type Check interface {
	checkNode() // Marker method - seals interface to this package
}

// CommandCheck validates that the learner ran the expected command(s).
//
// Two modes:
//   - Single-pattern (RequireAll false): passes if Pattern matches the
//     current command or any prior command in history.
//   - Require-all (RequireAll true): passes only when every entry of
//     Expected is covered somewhere in history, in any order.
type CommandCheck struct {
	Pattern    *regexp.Regexp // single-pattern mode; ignored in require-all mode
	Expected   []string       // require-all mode command list
	RequireAll bool
}

func (*CommandCheck) checkNode() {}

// OutputCheck validates that the captured command output matches Pattern.
type OutputCheck struct {
	Pattern *regexp.Regexp
}

func (*OutputCheck) checkNode() {}

// StateCheck validates external state through a caller-supplied probe.
type StateCheck struct {
	Probe StateProbe
}

func (*StateCheck) checkNode() {}

// SequenceCheck validates that Commands appear in history in the given
// relative order. Interleaved unrelated commands are allowed; out-of-order
// occurrences are ignored, not penalized.
type SequenceCheck struct {
	Commands []string
}

func (*SequenceCheck) checkNode() {}
