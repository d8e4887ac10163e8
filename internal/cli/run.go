package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/procstate/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Golden   bool
	Update   bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario file",
		Long: `Run a scenario against a fresh processor and check its expectations.

With --db the full event trace is persisted to SQLite and can be read back
with "procstate trace". With --golden the stable trace is compared against
golden/<name>.golden next to the scenario file.

Example:
  procstate run ./scenarios/counter_basic.yaml
  procstate run --db ./trace.db ./scenarios/search_latest.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for the trace (default $PROCSTATE_DB)")
	cmd.Flags().BoolVar(&opts.Golden, "golden", false, "compare the trace against its golden file")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "write the golden file instead of comparing")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}

	var st *store.Store
	if db != "" {
		var err error
		st, err = store.Open(db)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		formatter.VerboseLog("Recording trace to %s", db)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := runScenarioFile(ctx, path, runConfig{
		root:   opts.RootOptions,
		store:  st,
		golden: opts.Golden || opts.Update,
		update: opts.Update,
	})

	if err := formatter.Success(result, formatScenarioText(result)); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, "scenario failed: "+result.Name)
	}
	return nil
}
