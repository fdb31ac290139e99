package engine

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/fieldstone/proctor/internal/scenario"
)

// TestReportGolden_GPURecovery pins the full report shape for the
// canonical recovery drill: the learner inspects the GPU, attempts a
// reset against a device that has fallen off the bus, and the reset
// override credits the attempt.
//
// To regenerate the golden file:
//
//	go test ./internal/engine -run TestReportGolden -update
func TestReportGolden_GPURecovery(t *testing.T) {
	step := &scenario.Step{
		Name: "gpu_recovery",
		Criteria: &scenario.Criteria{
			MinimumScore: 75,
			Rules: []scenario.RuleSpec{
				{
					ID:           "check-util",
					Type:         scenario.KindCommand,
					Pattern:      `^nvidia-smi\b`,
					Weight:       1,
					ErrorMessage: "Start by inspecting the GPU with nvidia-smi.",
				},
				{
					ID:           "reset-gpu",
					Type:         scenario.KindCommand,
					Pattern:      `--gpu-reset`,
					Weight:       2,
					ErrorMessage: "Reset the hung GPU with nvidia-smi --gpu-reset -i 0.",
				},
				{
					ID:           "see-fault",
					Type:         scenario.KindOutput,
					Pattern:      `(?i)fallen off the bus`,
					Weight:       1,
					ErrorMessage: "The kernel log should show the Xid 79 fault.",
				},
			},
		},
	}

	output := "Unable to reset GPU 00000000:65:00.0: GPU has fallen off the bus"
	report, err := Validate("nvidia-smi --gpu-reset -i 0", output, step, nil, []string{"nvidia-smi"})
	require.NoError(t, err)

	data, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "gpu_recovery", data)
}
