package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldstone/proctor/internal/engine"
	"github.com/fieldstone/proctor/internal/extract"
	"github.com/fieldstone/proctor/internal/scenario"
	"github.com/fieldstone/proctor/internal/session"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Command    string // command to validate
	Output     string // captured output for the command
	Transcript string // transcript file supplying history + current command
	DB         string // session store path
	Session    string // session ID within the store
}

// CheckReport is the JSON payload for check results.
type CheckReport struct {
	Step   string         `json:"step"`
	Report *engine.Report `json:"report"`
	Hint   string         `json:"hint,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <step-file>",
		Short: "Validate a command submission against a step",
		Long: `Validate a command submission against a training-scenario step.

History and the current submission come from one of three sources:
a transcript file (the last entry is the current submission), a recorded
session (optionally extended with --command), or --command alone.

Exit codes:
  0 - Step requirements satisfied
  1 - Step requirements not satisfied
  2 - Command error (bad paths, malformed step, authoring errors)

Examples:
  proctor check steps/reset.yaml --command "nvidia-smi -q"
  proctor check steps/reset.yaml --transcript session.yaml
  proctor check steps/reset.cue --db sessions.db --session 4f7c... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Command, "command", "c", "", "command to validate")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "captured output of the command")
	cmd.Flags().StringVarP(&opts.Transcript, "transcript", "t", "", "transcript file to validate")
	cmd.Flags().StringVar(&opts.DB, "db", "", "session store path")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID within the store")

	return cmd
}

func runCheck(opts *CheckOptions, stepFile string, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)

	step, err := LoadStepFile(stepFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading step", err)
	}
	out.VerboseLog("Loaded step %q from %s", step.Name, stepFile)

	command, output, history, err := gatherSubmission(opts, cmd)
	if err != nil {
		return err
	}
	out.VerboseLog("Validating %q with %d prior command(s)", command, len(history))

	report, err := engine.Validate(command, output, step, nil, history)
	if err != nil {
		if extract.IsAuthoringError(err) {
			return WrapExitError(ExitCommandError, "step has malformed rules", err)
		}
		return WrapExitError(ExitCommandError, "validation", err)
	}

	payload := CheckReport{Step: step.Name, Report: report}
	if hint, ok := engine.NextHint(report); ok {
		payload.Hint = hint
	}

	if opts.Format == "json" {
		if err := out.JSON(payload); err != nil {
			return err
		}
	} else {
		writeCheckText(out, &payload)
	}

	if !report.Passed {
		return NewExitError(ExitFailure, "step requirements not satisfied")
	}
	return nil
}

// gatherSubmission resolves the current command, its output, and the
// prior history from whichever source the flags select.
func gatherSubmission(opts *CheckOptions, cmd *cobra.Command) (command, output string, history []string, err error) {
	switch {
	case opts.Transcript != "":
		tr, err := scenario.LoadTranscript(opts.Transcript)
		if err != nil {
			return "", "", nil, WrapExitError(ExitCommandError, "loading transcript", err)
		}
		if len(tr.Entries) == 0 {
			return "", "", nil, NewExitError(ExitCommandError, "transcript has no entries")
		}
		last := tr.Last()
		return last.Command, last.Output, tr.Commands()[:len(tr.Entries)-1], nil

	case opts.DB != "":
		if opts.Session == "" {
			return "", "", nil, NewExitError(ExitCommandError, "--session is required with --db")
		}
		st, err := session.Open(opts.DB)
		if err != nil {
			return "", "", nil, WrapExitError(ExitCommandError, "opening session store", err)
		}
		defer st.Close()

		entries, err := st.Entries(cmd.Context(), opts.Session)
		if err != nil {
			return "", "", nil, WrapExitError(ExitCommandError, "reading session", err)
		}
		if opts.Command != "" {
			// Recorded entries are history; the flag is the submission.
			hist := make([]string, len(entries))
			for i, e := range entries {
				hist[i] = e.Command
			}
			return opts.Command, opts.Output, hist, nil
		}
		if len(entries) == 0 {
			return "", "", nil, NewExitError(ExitCommandError, "session has no recorded commands")
		}
		last := entries[len(entries)-1]
		hist := make([]string, len(entries)-1)
		for i, e := range entries[:len(entries)-1] {
			hist[i] = e.Command
		}
		return last.Command, last.Output, hist, nil

	case opts.Command != "":
		return opts.Command, opts.Output, nil, nil

	default:
		return "", "", nil, NewExitError(ExitCommandError, "one of --command, --transcript, or --db/--session is required")
	}
}

// writeCheckText renders the human-readable verdict.
func writeCheckText(out *OutputFormatter, payload *CheckReport) {
	report := payload.Report
	fmt.Fprintf(out.Writer, "%s\n", report.Feedback)
	fmt.Fprintf(out.Writer, "Progress: %d%% (score %.2f)\n", report.Progress, report.Score)

	if len(report.RuleResults) > 0 && out.Verbose {
		fmt.Fprintln(out.Writer, "Rules:")
		for _, res := range report.RuleResults {
			mark := "✓"
			if !res.Passed {
				mark = "✗"
			}
			line := fmt.Sprintf("  %s %s", mark, res.RuleID)
			if res.Message != "" {
				line += " - " + res.Message
			}
			fmt.Fprintln(out.Writer, strings.TrimRight(line, " "))
		}
	}

	if payload.Hint != "" {
		fmt.Fprintf(out.Writer, "Hint: %s\n", payload.Hint)
	}
}
