package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fieldstone/proctor/internal/rule"
)

// resetCommandRe recognizes device-reset shaped commands.
var resetCommandRe = regexp.MustCompile(`(?i)^nvidia-smi\s+(?:--gpu-reset|-r)\b`)

// faultSignatures are output fragments that indicate the device is in an
// irrecoverable state where a reset cannot succeed. Xid 79 is the driver
// event logged when a GPU drops off the PCIe bus.
var faultSignatures = []string{
	"fallen off the bus",
	"xid 79",
}

// genericFlags are low-information flags skipped during require-all token
// coverage. Their presence or absence says nothing about whether the
// learner performed the task.
var genericFlags = map[string]bool{
	"-i":                            true,
	"--format=csv":                  true,
	"--format=csv,noheader":         true,
	"--format=csv,noheader,nounits": true,
}

// evaluateRule checks one rule against the submission. history includes
// the current command as its last element.
//
// evaluateRule is total: bad rule content and probe failures become
// failed results, never errors or panics.
func evaluateRule(r rule.Rule, command, output string, env any, history []string) rule.Result {
	switch check := r.Check.(type) {
	case *rule.CommandCheck:
		if check.RequireAll {
			return evaluateRequireAll(r, check, history)
		}
		return evaluateCommandPattern(r, check, command, output, history)
	case *rule.OutputCheck:
		return evaluateOutput(r, check, output)
	case *rule.StateCheck:
		return evaluateState(r, check, env)
	case *rule.SequenceCheck:
		return evaluateSequence(r, check, history)
	default:
		// Check is sealed; only a nil check reaches here.
		return rule.Result{RuleID: r.ID, Passed: false, Message: "Unknown rule type"}
	}
}

// evaluateRequireAll passes only when every expected command is covered
// somewhere in history, in any order.
func evaluateRequireAll(r rule.Rule, check *rule.CommandCheck, history []string) rule.Result {
	done := 0
	for _, expected := range check.Expected {
		if commandCovered(expected, history) {
			done++
		}
	}
	if done == len(check.Expected) {
		return rule.Result{RuleID: r.ID, Passed: true}
	}
	return rule.Result{
		RuleID:  r.ID,
		Passed:  false,
		Message: fmt.Sprintf("%d/%d expected commands completed", done, len(check.Expected)),
	}
}

// commandCovered reports whether any historical command covers the
// expected command: same base token and, for multi-token expectations,
// every remaining significant token present.
func commandCovered(expected string, history []string) bool {
	expTokens := rule.Tokens(expected)
	if len(expTokens) == 0 {
		return true
	}
	for _, executed := range history {
		got := rule.Tokens(executed)
		if len(got) == 0 || got[0] != expTokens[0] {
			continue
		}
		if tokensSatisfied(expTokens[1:], got[1:]) {
			return true
		}
	}
	return false
}

// tokensSatisfied checks that every significant expected token appears in
// the executed tokens. Generic flags are skipped; key=value flags match
// by key prefix only, so "--query-gpu=temperature.gpu" is satisfied by
// any --query-gpu invocation.
func tokensSatisfied(expected, got []string) bool {
	for _, tok := range expected {
		if genericFlags[tok] {
			continue
		}
		if eq := strings.IndexByte(tok, '='); eq > 0 {
			if !anyHasPrefix(got, tok[:eq+1]) {
				return false
			}
			continue
		}
		if !contains(got, tok) {
			return false
		}
	}
	return true
}

// evaluateCommandPattern passes if the pattern matches the current
// command or any prior command.
//
// Override: a reset-shaped command whose output carries an
// irrecoverable-fault signature passes regardless of the pattern.
// Attempting the remedial action is the correct behavior even though the
// underlying operation fails.
func evaluateCommandPattern(r rule.Rule, check *rule.CommandCheck, command, output string, history []string) rule.Result {
	if isFailedResetAttempt(command, output) {
		return rule.Result{
			RuleID: r.ID,
			Passed: true,
			Message: "Reset attempted. The device has fallen off the bus and cannot recover " +
				"without a reboot, but attempting the reset was the right call.",
		}
	}

	if check.Pattern == nil {
		return rule.Result{RuleID: r.ID, Passed: false, Message: "Command rule has no pattern to match"}
	}

	for _, executed := range history {
		if check.Pattern.MatchString(rule.NormalizeCommand(executed)) {
			return rule.Result{RuleID: r.ID, Passed: true}
		}
	}
	return rule.Result{RuleID: r.ID, Passed: false, Message: r.Message}
}

// isFailedResetAttempt recognizes the reset-against-a-dead-device case.
func isFailedResetAttempt(command, output string) bool {
	if !resetCommandRe.MatchString(rule.NormalizeCommand(command)) {
		return false
	}
	lower := strings.ToLower(rule.NormalizeOutput(output))
	for _, sig := range faultSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// evaluateOutput passes iff the pattern matches the captured output.
func evaluateOutput(r rule.Rule, check *rule.OutputCheck, output string) rule.Result {
	if check.Pattern == nil {
		return rule.Result{RuleID: r.ID, Passed: false, Message: "Output rule has no pattern to match"}
	}
	if check.Pattern.MatchString(rule.NormalizeOutput(output)) {
		return rule.Result{RuleID: r.ID, Passed: true}
	}
	return rule.Result{RuleID: r.ID, Passed: false, Message: r.Message}
}

// evaluateState invokes the caller-supplied probe. Probe errors and
// panics are converted into failed results carrying the error text,
// never propagated.
func evaluateState(r rule.Rule, check *rule.StateCheck, env any) rule.Result {
	if check.Probe == nil {
		return rule.Result{RuleID: r.ID, Passed: false, Message: "State rule has no probe configured"}
	}

	passed, err := runProbe(check.Probe, env)
	if err != nil {
		return rule.Result{RuleID: r.ID, Passed: false, Message: err.Error()}
	}
	if passed {
		return rule.Result{RuleID: r.ID, Passed: true}
	}
	return rule.Result{RuleID: r.ID, Passed: false, Message: r.Message}
}

// runProbe isolates the probe call so a panicking probe becomes an error.
func runProbe(probe rule.StateProbe, env any) (passed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			passed = false
			err = fmt.Errorf("state probe panicked: %v", rec)
		}
	}()
	return probe(env)
}

// evaluateSequence scans history once, advancing a pointer through the
// expected command list only on in-order matches. Out-of-order
// occurrences are ignored, not penalized.
func evaluateSequence(r rule.Rule, check *rule.SequenceCheck, history []string) rule.Result {
	next := 0
	for _, executed := range history {
		if next >= len(check.Commands) {
			break
		}
		if sequenceStepMatches(check.Commands[next], executed) {
			next++
		}
	}
	if next == len(check.Commands) {
		return rule.Result{RuleID: r.ID, Passed: true}
	}
	return rule.Result{
		RuleID:  r.ID,
		Passed:  false,
		Message: fmt.Sprintf("%d/%d sequence steps completed", next, len(check.Commands)),
	}
}

// sequenceStepMatches uses the same base-token + significant-token
// coverage as require-all rules, applied to a single command pair.
func sequenceStepMatches(expected, executed string) bool {
	expTokens := rule.Tokens(expected)
	got := rule.Tokens(executed)
	if len(expTokens) == 0 {
		return true
	}
	if len(got) == 0 || got[0] != expTokens[0] {
		return false
	}
	return tokensSatisfied(expTokens[1:], got[1:])
}

func contains(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}
	return false
}

func anyHasPrefix(tokens []string, prefix string) bool {
	for _, tok := range tokens {
		if strings.HasPrefix(tok, prefix) {
			return true
		}
	}
	return false
}
