package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldstone/proctor/internal/rule"
	"github.com/fieldstone/proctor/internal/scenario"
)

func TestRules_ExplicitCriteriaWins(t *testing.T) {
	// All three shapes present; the explicit block takes priority.
	step := &scenario.Step{
		Name:       "layered",
		Objectives: []string{"Run `dmesg` to inspect the kernel log"},
		LegacyRules: []scenario.LegacyRule{
			{Type: scenario.LegacyCommandExecuted, Commands: []string{"lspci"}},
		},
		Criteria: &scenario.Criteria{
			Rules: []scenario.RuleSpec{
				{ID: "explicit", Type: scenario.KindCommand, Pattern: `^nvidia-smi\b`},
			},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "explicit", rules[0].ID)
}

func TestRules_WeightDefaultsToOne(t *testing.T) {
	step := &scenario.Step{
		Name: "weights",
		Criteria: &scenario.Criteria{
			Rules: []scenario.RuleSpec{
				{ID: "defaulted", Type: scenario.KindCommand, Pattern: `^ls\b`},
				{ID: "heavy", Type: scenario.KindCommand, Pattern: `^ls\b`, Weight: 2.5},
			},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rules[0].Weight)
	assert.Equal(t, 2.5, rules[1].Weight)
}

func TestRules_ExplicitIDsDefaultByIndex(t *testing.T) {
	step := &scenario.Step{
		Name: "anonymous",
		Criteria: &scenario.Criteria{
			Rules: []scenario.RuleSpec{
				{Type: scenario.KindCommand, Pattern: `^ls\b`},
				{Type: scenario.KindOutput, Pattern: `total`},
			},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)
	assert.Equal(t, "criteria-0", rules[0].ID)
	assert.Equal(t, "criteria-1", rules[1].ID)
}

func TestRules_CommandPatternSpelling(t *testing.T) {
	step := &scenario.Step{
		Name: "imported",
		Criteria: &scenario.Criteria{
			Rules: []scenario.RuleSpec{
				{ID: "alt", Type: scenario.KindCommand, CommandPattern: `^nvtop\b`},
			},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)
	check := rules[0].Check.(*rule.CommandCheck)
	require.NotNil(t, check.Pattern)
	assert.True(t, check.Pattern.MatchString("nvtop"))
}

func TestRules_InvalidPatternIsAuthoringError(t *testing.T) {
	step := &scenario.Step{
		Name: "broken",
		Criteria: &scenario.Criteria{
			Rules: []scenario.RuleSpec{
				{ID: "bad-regex", Type: scenario.KindOutput, Pattern: `([`},
			},
		},
	}

	_, err := Rules(step)
	require.Error(t, err)
	assert.True(t, IsAuthoringError(err))
	assert.Contains(t, err.Error(), "bad-regex")
}

func TestRules_LegacySingleWordPattern(t *testing.T) {
	step := &scenario.Step{
		Name: "legacy",
		LegacyRules: []scenario.LegacyRule{
			{Type: scenario.LegacyCommandExecuted, Commands: []string{"nvidia-smi"}},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	check := rules[0].Check.(*rule.CommandCheck)
	// Exact command, optionally followed by flags.
	assert.True(t, check.Pattern.MatchString("nvidia-smi"))
	assert.True(t, check.Pattern.MatchString("nvidia-smi -q -x"))
	assert.False(t, check.Pattern.MatchString("nvidia-smi2"))
	assert.False(t, check.Pattern.MatchString("watch nvidia-smi"))
}

func TestRules_LegacyMultiWordPattern(t *testing.T) {
	step := &scenario.Step{
		Name: "legacy",
		LegacyRules: []scenario.LegacyRule{
			{Type: scenario.LegacyCommandExecuted, Commands: []string{"watch -n 1 nvidia-smi"}},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)

	check := rules[0].Check.(*rule.CommandCheck)
	// Literal prefix with flexible whitespace.
	assert.True(t, check.Pattern.MatchString("watch -n 1 nvidia-smi"))
	assert.True(t, check.Pattern.MatchString("watch -n 1 nvidia-smi --loop"))
	assert.False(t, check.Pattern.MatchString("watch nvidia-smi"))
}

func TestRules_LegacyAlternatives(t *testing.T) {
	step := &scenario.Step{
		Name: "legacy",
		LegacyRules: []scenario.LegacyRule{
			{Type: scenario.LegacyCommandExecuted, Commands: []string{"nvidia-smi", "nvtop"}},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)

	check := rules[0].Check.(*rule.CommandCheck)
	assert.True(t, check.Pattern.MatchString("nvidia-smi"))
	assert.True(t, check.Pattern.MatchString("nvtop"))
	assert.False(t, check.Pattern.MatchString("htop"))
}

func TestRules_LegacyRequireAllUsesStepChecklist(t *testing.T) {
	// The rule's own command list is ignored in require-all mode: the
	// validator checks the same list the UI displays.
	step := &scenario.Step{
		Name:             "legacy",
		ExpectedCommands: []string{"nvidia-smi", "dmesg"},
		LegacyRules: []scenario.LegacyRule{
			{
				Type:               scenario.LegacyCommandExecuted,
				Commands:           []string{"something-else"},
				RequireAllCommands: true,
			},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)

	check := rules[0].Check.(*rule.CommandCheck)
	assert.True(t, check.RequireAll)
	assert.Equal(t, []string{"nvidia-smi", "dmesg"}, check.Expected)
}

func TestRules_LegacyOutputAndState(t *testing.T) {
	probe := func(env any) (bool, error) { return true, nil }
	step := &scenario.Step{
		Name: "legacy",
		LegacyRules: []scenario.LegacyRule{
			{Type: scenario.LegacyOutputMatch, Pattern: `Driver Version`},
			{Type: scenario.LegacyStateCheck, State: probe},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	_, ok := rules[0].Check.(*rule.OutputCheck)
	assert.True(t, ok)
	state, ok := rules[1].Check.(*rule.StateCheck)
	require.True(t, ok)
	assert.NotNil(t, state.Probe)
}

func TestRules_InferredFromObjectives(t *testing.T) {
	step := &scenario.Step{
		Name: "inferred",
		Objectives: []string{
			"Run `nvidia-smi -q` to inspect the full device state",
			`You should see "Driver Version" in the output`,
			"Read the troubleshooting guide", // no checkable phrasing
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "objective-0-command", rules[0].ID)
	assert.Equal(t, 1.0, rules[0].Weight)
	cmd := rules[0].Check.(*rule.CommandCheck)
	assert.True(t, cmd.Pattern.MatchString("nvidia-smi -q"))

	// Output expectations are secondary: half weight.
	assert.Equal(t, "objective-1-output", rules[1].ID)
	assert.Equal(t, 0.5, rules[1].Weight)
	out := rules[1].Check.(*rule.OutputCheck)
	assert.True(t, out.Pattern.MatchString("Driver Version: 550.54.14"))
	assert.True(t, out.Pattern.MatchString("driver version: 550.54.14"), "inferred output match is case-insensitive")
}

func TestRules_NoShapesYieldsNoRules(t *testing.T) {
	step := &scenario.Step{
		Name:       "freeform",
		Objectives: []string{"Explore the system"},
	}

	rules, err := Rules(step)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRules_SequenceRule(t *testing.T) {
	step := &scenario.Step{
		Name: "ordered",
		Criteria: &scenario.Criteria{
			Rules: []scenario.RuleSpec{
				{ID: "drill", Type: scenario.KindSequence, Sequence: []string{"nvidia-smi", "nvidia-smi -r", "nvidia-smi"}},
			},
		},
	}

	rules, err := Rules(step)
	require.NoError(t, err)

	seq := rules[0].Check.(*rule.SequenceCheck)
	assert.Len(t, seq.Commands, 3)
}
