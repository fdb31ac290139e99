// Package scenario defines the step and transcript formats consumed by the
// validation engine and its CLI collaborators.
//
// A step describes one discrete task in a training scenario: what the
// learner should do, which commands the UI displays as expected, and how
// submissions are validated. Steps are consumed read-only; the engine
// never mutates or owns them.
//
// # Step Format
//
// Steps are defined in YAML (or CUE, see the CLI loader) with the
// following structure:
//
//	name: gpu_health_check
//	description: "Query full GPU state before debugging"
//	objectives:
//	  - "Run `nvidia-smi -q` to inspect the full device state"
//	expected_commands:
//	  - nvidia-smi -q
//	validation:
//	  minimum_score: 100
//	  rules:
//	    - id: query-state
//	      type: command
//	      pattern: '^nvidia-smi\s+-q\b'
//	      error_message: "Query the full device state with nvidia-smi -q"
//
// Older scenario content uses the coarse legacy_rules form instead of
// validation; both are supported and legacy content is translated at
// rule-extraction time.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fieldstone/proctor/internal/rule"
)

// Rule kind names accepted in step files.
const (
	KindCommand  = "command"
	KindOutput   = "output"
	KindState    = "state"
	KindSequence = "sequence"
)

// Legacy rule kind names. These map onto the engine kinds at extraction.
const (
	LegacyCommandExecuted = "command-executed"
	LegacyOutputMatch     = "output-match"
	LegacyStateCheck      = "state-check"
)

// DefaultMinimumScore is the pass threshold applied when a step does not
// specify one: every rule must pass.
const DefaultMinimumScore = 100

// Step is one discrete task in a training scenario.
type Step struct {
	// Name uniquely identifies the step within its scenario.
	Name string `yaml:"name" json:"name"`

	// Description explains the task to the learner.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Objectives are free-text goals shown to the learner. When a step
	// carries no explicit or legacy rules, validation rules are inferred
	// from these strings.
	Objectives []string `yaml:"objectives,omitempty" json:"objectives,omitempty"`

	// ExpectedCommands is the checklist of commands the UI displays for
	// this step. Legacy require-all rules validate against this same
	// list, so the displayed checklist and the validator never diverge.
	ExpectedCommands []string `yaml:"expected_commands,omitempty" json:"expected_commands,omitempty"`

	// Criteria is the explicit validation form. Takes priority over
	// LegacyRules and objective inference when present and non-empty.
	Criteria *Criteria `yaml:"validation,omitempty" json:"validation,omitempty"`

	// LegacyRules is the older coarse validation form.
	LegacyRules []LegacyRule `yaml:"legacy_rules,omitempty" json:"legacy_rules,omitempty"`
}

// Criteria is the explicit validation block of a step.
type Criteria struct {
	Rules []RuleSpec `yaml:"rules" json:"rules"`

	// MinimumScore is the progress percentage required to pass.
	// Zero means unset and defaults to DefaultMinimumScore.
	MinimumScore int `yaml:"minimum_score,omitempty" json:"minimum_score,omitempty"`
}

// RuleSpec is one explicit rule as authored in a step file.
type RuleSpec struct {
	ID   string `yaml:"id,omitempty" json:"id,omitempty"`
	Type string `yaml:"type" json:"type"`

	// Pattern is an uncompiled regular expression for command and output
	// rules. An invalid pattern is a fatal authoring error surfaced at
	// extraction time, never a runtime user error.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// CommandPattern is an alternate spelling of Pattern used by command
	// rules in imported content. Pattern wins when both are set.
	CommandPattern string `yaml:"command_pattern,omitempty" json:"command_pattern,omitempty"`

	ExpectedCommands   []string `yaml:"expected_commands,omitempty" json:"expected_commands,omitempty"`
	RequireAllCommands bool     `yaml:"require_all_commands,omitempty" json:"require_all_commands,omitempty"`

	// Weight defaults to 1 when omitted or non-positive.
	Weight float64 `yaml:"weight,omitempty" json:"weight,omitempty"`

	ErrorMessage string `yaml:"error_message,omitempty" json:"error_message,omitempty"`

	// Sequence is the ordered command list for sequence rules.
	Sequence []string `yaml:"sequence,omitempty" json:"sequence,omitempty"`

	// State is the probe for state rules. Probes are closures over the
	// caller's environment and can only be attached programmatically,
	// never from a step file.
	State rule.StateProbe `yaml:"-" json:"-"`
}

// LegacyRule is one rule in the older coarse validation form.
type LegacyRule struct {
	Type string `yaml:"type" json:"type"`

	// Commands are the candidate command strings a command-executed rule
	// accepts. A synthesized pattern matches any of them.
	Commands []string `yaml:"commands,omitempty" json:"commands,omitempty"`

	// Pattern is an uncompiled regular expression for output-match rules.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// RequireAllCommands switches a command-executed rule to validate the
	// step's ExpectedCommands checklist instead of Commands.
	RequireAllCommands bool `yaml:"require_all_commands,omitempty" json:"require_all_commands,omitempty"`

	Weight       float64 `yaml:"weight,omitempty" json:"weight,omitempty"`
	ErrorMessage string  `yaml:"error_message,omitempty" json:"error_message,omitempty"`

	// State is the probe for state-check rules; programmatic only.
	State rule.StateProbe `yaml:"-" json:"-"`
}

// MinimumScore returns the step's pass threshold, applying the default
// when the step carries none.
func (s *Step) MinimumScore() int {
	if s.Criteria != nil && s.Criteria.MinimumScore > 0 {
		return s.Criteria.MinimumScore
	}
	return DefaultMinimumScore
}

// LoadStep reads and parses a step YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadStep(path string) (*Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read step file: %w", err)
	}

	step, err := ParseStep(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return step, nil
}

// ParseStep parses step YAML with strict field validation
// (catches typos like "objective:" vs "objectives:").
func ParseStep(data []byte) (*Step, error) {
	var step Step
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&step); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := step.Validate(); err != nil {
		return nil, fmt.Errorf("invalid step: %w", err)
	}
	return &step, nil
}

// Validate checks that required fields are present and that every rule is
// well formed enough to attempt extraction. Pattern compilation is NOT
// checked here - that is the extractor's construction-time concern.
func (s *Step) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Criteria != nil {
		for i, spec := range s.Criteria.Rules {
			if err := validateRuleSpec(i, &spec); err != nil {
				return err
			}
		}
		if s.Criteria.MinimumScore < 0 || s.Criteria.MinimumScore > 100 {
			return fmt.Errorf("validation.minimum_score must be in 0..100, got %d", s.Criteria.MinimumScore)
		}
	}

	for i, legacy := range s.LegacyRules {
		if err := validateLegacyRule(i, &legacy); err != nil {
			return err
		}
	}

	return nil
}

// validateRuleSpec validates a single explicit rule based on its type.
func validateRuleSpec(index int, spec *RuleSpec) error {
	switch spec.Type {
	case KindCommand:
		if !spec.RequireAllCommands && spec.Pattern == "" && spec.CommandPattern == "" {
			return fmt.Errorf("validation.rules[%d]: command rule requires pattern or require_all_commands", index)
		}
	case KindOutput:
		if spec.Pattern == "" {
			return fmt.Errorf("validation.rules[%d]: output rule requires pattern", index)
		}
	case KindState:
		// Probes attach programmatically; nothing to check in file form.
	case KindSequence:
		if len(spec.Sequence) == 0 {
			return fmt.Errorf("validation.rules[%d]: sequence rule requires a non-empty sequence", index)
		}
	case "":
		return fmt.Errorf("validation.rules[%d]: type is required", index)
	default:
		return fmt.Errorf("validation.rules[%d]: unknown rule type %q", index, spec.Type)
	}
	return nil
}

// validateLegacyRule validates a single legacy rule based on its type.
func validateLegacyRule(index int, legacy *LegacyRule) error {
	switch legacy.Type {
	case LegacyCommandExecuted:
		if !legacy.RequireAllCommands && len(legacy.Commands) == 0 {
			return fmt.Errorf("legacy_rules[%d]: command-executed rule requires commands or require_all_commands", index)
		}
	case LegacyOutputMatch:
		if legacy.Pattern == "" {
			return fmt.Errorf("legacy_rules[%d]: output-match rule requires pattern", index)
		}
	case LegacyStateCheck:
		// Probes attach programmatically.
	case "":
		return fmt.Errorf("legacy_rules[%d]: type is required", index)
	default:
		return fmt.Errorf("legacy_rules[%d]: unknown rule type %q", index, legacy.Type)
	}
	return nil
}
