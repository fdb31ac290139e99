// Package extract derives validation rules from scenario steps.
//
// A step's validation intent arrives in one of three shapes: an explicit
// validation block, the older coarse legacy_rules form, or nothing but
// free-text objectives. Extraction normalizes all three into one uniform
// rule list. Strategies are tried in priority order and the first
// non-empty result wins, so the three derivation paths converge on a
// single rule shape instead of duplicating construction logic.
//
// Pattern compilation happens here, once, at extraction time. An invalid
// pattern in rule data is a fatal authoring error reported as an
// *AuthoringError; it is never swallowed into a failing rule.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fieldstone/proctor/internal/rule"
	"github.com/fieldstone/proctor/internal/scenario"
)

// Strategy derives rules from one shape of validation intent.
// An empty result means "this shape is absent, try the next one".
type Strategy func(step *scenario.Step) ([]rule.Rule, error)

// strategies in priority order: explicit criteria, legacy rules,
// inference from objectives.
var strategies = []Strategy{fromCriteria, fromLegacy, fromObjectives}

// Rules derives the step's validation rules. A step that yields zero
// rules from every strategy returns an empty slice: absence of checkable
// requirements is the caller's vacuous-pass case, not an error.
func Rules(step *scenario.Step) ([]rule.Rule, error) {
	for _, strategy := range strategies {
		rules, err := strategy(step)
		if err != nil {
			return nil, err
		}
		if len(rules) > 0 {
			return rules, nil
		}
	}
	return nil, nil
}

// fromCriteria translates the explicit validation block directly.
func fromCriteria(step *scenario.Step) ([]rule.Rule, error) {
	if step.Criteria == nil || len(step.Criteria.Rules) == 0 {
		return nil, nil
	}

	rules := make([]rule.Rule, 0, len(step.Criteria.Rules))
	for i, spec := range step.Criteria.Rules {
		id := spec.ID
		if id == "" {
			id = fmt.Sprintf("criteria-%d", i)
		}

		check, err := checkFromSpec(step, &spec, id)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule.Rule{
			ID:      id,
			Weight:  weightOrDefault(spec.Weight),
			Message: spec.ErrorMessage,
			Check:   check,
		})
	}
	return rules, nil
}

// checkFromSpec builds the check for one explicit rule spec.
func checkFromSpec(step *scenario.Step, spec *scenario.RuleSpec, id string) (rule.Check, error) {
	switch spec.Type {
	case scenario.KindCommand:
		if spec.RequireAllCommands {
			expected := spec.ExpectedCommands
			if len(expected) == 0 {
				// Fall back to the step's displayed checklist so the UI
				// and the validator never diverge.
				expected = step.ExpectedCommands
			}
			return &rule.CommandCheck{Expected: expected, RequireAll: true}, nil
		}
		expr := spec.Pattern
		if expr == "" {
			expr = spec.CommandPattern
		}
		pattern, err := compilePattern(step.Name, id, expr)
		if err != nil {
			return nil, err
		}
		return &rule.CommandCheck{Pattern: pattern}, nil

	case scenario.KindOutput:
		pattern, err := compilePattern(step.Name, id, spec.Pattern)
		if err != nil {
			return nil, err
		}
		return &rule.OutputCheck{Pattern: pattern}, nil

	case scenario.KindState:
		return &rule.StateCheck{Probe: spec.State}, nil

	case scenario.KindSequence:
		return &rule.SequenceCheck{Commands: spec.Sequence}, nil

	default:
		// Step.Validate rejects unknown types; a nil check here would
		// only mean the step bypassed validation. The evaluator records
		// nil checks as failed "unknown rule type" results.
		return nil, nil
	}
}

// fromLegacy maps the coarse legacy rule kinds onto engine kinds.
func fromLegacy(step *scenario.Step) ([]rule.Rule, error) {
	if len(step.LegacyRules) == 0 {
		return nil, nil
	}

	rules := make([]rule.Rule, 0, len(step.LegacyRules))
	for i, legacy := range step.LegacyRules {
		id := fmt.Sprintf("legacy-%d", i)

		var check rule.Check
		switch legacy.Type {
		case scenario.LegacyCommandExecuted:
			if legacy.RequireAllCommands {
				// The set of commands to validate is the step's own
				// displayed checklist, not the rule's list.
				check = &rule.CommandCheck{Expected: step.ExpectedCommands, RequireAll: true}
			} else {
				check = &rule.CommandCheck{Pattern: commandsPattern(legacy.Commands)}
			}

		case scenario.LegacyOutputMatch:
			pattern, err := compilePattern(step.Name, id, legacy.Pattern)
			if err != nil {
				return nil, err
			}
			check = &rule.OutputCheck{Pattern: pattern}

		case scenario.LegacyStateCheck:
			check = &rule.StateCheck{Probe: legacy.State}
		}

		rules = append(rules, rule.Rule{
			ID:      id,
			Weight:  weightOrDefault(legacy.Weight),
			Message: legacy.ErrorMessage,
			Check:   check,
		})
	}
	return rules, nil
}

// Objective phrasings that imply checkable requirements.
var (
	// "run `nvidia-smi -q`", "use `dmesg`", "execute the `nvtop` tool"
	objectiveCommandRe = regexp.MustCompile("(?i)\\b(?:run|use|execute)\\s+(?:the\\s+)?`([^`]+)`")

	// `should see "No running processes"`, `displays "Driver Version"`
	objectiveOutputRe = regexp.MustCompile(`(?i)\b(?:should see|displays|shows)\s+"([^"]+)"`)
)

// fromObjectives is the fallback heuristic: scan free-text objectives for
// command and output phrasings. Output expectations carry half weight -
// seeing the right text is secondary to running the right command.
func fromObjectives(step *scenario.Step) ([]rule.Rule, error) {
	var rules []rule.Rule
	for i, objective := range step.Objectives {
		if m := objectiveCommandRe.FindStringSubmatch(objective); m != nil {
			command := rule.NormalizeCommand(m[1])
			rules = append(rules, rule.Rule{
				ID:      fmt.Sprintf("objective-%d-command", i),
				Weight:  rule.DefaultWeight,
				Message: fmt.Sprintf("Try running `%s`.", command),
				Check:   &rule.CommandCheck{Pattern: commandsPattern([]string{command})},
			})
		}
		if m := objectiveOutputRe.FindStringSubmatch(objective); m != nil {
			text := m[1]
			rules = append(rules, rule.Rule{
				ID:      fmt.Sprintf("objective-%d-output", i),
				Weight:  0.5,
				Message: fmt.Sprintf("The output should contain %q.", text),
				Check:   &rule.OutputCheck{Pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(text))},
			})
		}
	}
	return rules, nil
}

// commandsPattern synthesizes a command pattern matching any of the
// candidate command strings:
//
//   - single-word commands match the exact command, optionally followed
//     by flags ("nvidia-smi" matches "nvidia-smi" and "nvidia-smi -q")
//   - multi-word commands match as a literal prefix with flexible
//     whitespace between tokens
//
// All candidate text is quoted, so the synthesized expression is always
// valid and compilation cannot fail.
func commandsPattern(commands []string) *regexp.Regexp {
	alternatives := make([]string, 0, len(commands))
	for _, command := range commands {
		tokens := rule.Tokens(command)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) == 1 {
			alternatives = append(alternatives, regexp.QuoteMeta(tokens[0])+`(\s+\S+)*`)
			continue
		}
		quoted := make([]string, len(tokens))
		for i, tok := range tokens {
			quoted[i] = regexp.QuoteMeta(tok)
		}
		alternatives = append(alternatives, strings.Join(quoted, `\s+`)+`(\s+\S+)*`)
	}
	if len(alternatives) == 0 {
		// No usable candidates; match nothing rather than everything.
		return regexp.MustCompile(`[^\s\S]`)
	}
	return regexp.MustCompile(`^(?:` + strings.Join(alternatives, "|") + `)$`)
}

// compilePattern compiles an authored pattern, converting failure into an
// *AuthoringError naming the step and rule.
func compilePattern(stepName, ruleID, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		// A rule that needs a pattern but has none is recorded as a
		// failing rule by the evaluator, not an extraction error.
		return nil, nil
	}
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, &AuthoringError{
			Step:    stepName,
			RuleID:  ruleID,
			Message: fmt.Sprintf("invalid pattern %q", expr),
			Err:     err,
		}
	}
	return pattern, nil
}

func weightOrDefault(w float64) float64 {
	if w <= 0 {
		return rule.DefaultWeight
	}
	return w
}
