package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldstone/proctor/internal/session"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	DB       string
	Session  string
	Scenario string
	Command  string
	Output   string
}

// RecordResult is the JSON payload for record results.
type RecordResult struct {
	Session string `json:"session"`
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append a command submission to a session store",
		Long: `Append a command submission (and its captured output) to a session store.

A new session is started when --session is omitted; the minted session ID
is printed so subsequent record and check calls can reference it.

Examples:
  proctor record --db sessions.db --scenario gpu-reset --command "nvidia-smi"
  proctor record --db sessions.db --session 4f7c... --command "nvidia-smi -r" --output "GPU has fallen off the bus"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "session store path (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID (minted when omitted)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario name for new sessions")
	cmd.Flags().StringVarP(&opts.Command, "command", "c", "", "command to record (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "captured output of the command")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("command")

	return cmd
}

func runRecord(opts *RecordOptions, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)

	st, err := session.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening session store", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	id, err := st.Begin(ctx, opts.Session, opts.Scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "starting session", err)
	}
	if err := st.Append(ctx, id, opts.Command, opts.Output); err != nil {
		return WrapExitError(ExitCommandError, "recording command", err)
	}

	if opts.Format == "json" {
		return out.JSON(RecordResult{Session: id})
	}
	fmt.Fprintf(out.Writer, "Recorded to session %s\n", id)
	return nil
}
