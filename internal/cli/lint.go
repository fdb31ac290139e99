package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldstone/proctor/internal/extract"
)

// LintFinding is one authoring problem in a step file.
type LintFinding struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// LintResult holds the overall lint result.
type LintResult struct {
	Checked  int           `json:"checked"`
	Findings []LintFinding `json:"findings"`
}

// NewLintCommand creates the lint command.
func NewLintCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <step-file-or-dir>",
		Short: "Check step files for authoring errors",
		Long: `Load every step file under the given path and derive its validation
rules, surfacing authoring errors - malformed YAML/CUE, missing fields,
invalid patterns - before any learner hits them.

Exit codes:
  0 - All step files are well formed
  1 - One or more findings
  2 - Command error (path not found)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLint(rootOpts *RootOptions, root string, cmd *cobra.Command) error {
	out := formatter(rootOpts, cmd)

	files, err := FindStepFiles(root)
	if err != nil {
		return WrapExitError(ExitCommandError, "scanning step files", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no step files found under %s", root))
	}

	result := LintResult{Checked: len(files), Findings: []LintFinding{}}
	for _, file := range files {
		out.VerboseLog("Linting %s", file)

		step, err := LoadStepFile(file)
		if err != nil {
			result.Findings = append(result.Findings, LintFinding{File: file, Message: err.Error()})
			continue
		}

		// Extraction compiles every pattern; this is where invalid
		// regular expressions surface.
		if _, err := extract.Rules(step); err != nil {
			result.Findings = append(result.Findings, LintFinding{File: file, Message: err.Error()})
		}
	}

	if rootOpts.Format == "json" {
		if err := out.JSON(result); err != nil {
			return err
		}
	} else {
		for _, finding := range result.Findings {
			fmt.Fprintf(out.Writer, "%s: %s\n", finding.File, finding.Message)
		}
		fmt.Fprintf(out.Writer, "%d file(s) checked, %d finding(s)\n", result.Checked, len(result.Findings))
	}

	if len(result.Findings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d authoring finding(s)", len(result.Findings)))
	}
	return nil
}
