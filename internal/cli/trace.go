package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/procstate/internal/store"
	"github.com/roach88/procstate/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Processor string
	Kind      string // optional - filter to one event kind
	Effect    string // optional - show one effect's lifecycle
	List      bool
}

// TraceResult holds the trace output for one processor.
type TraceResult struct {
	ProcessorID string         `json:"processor_id"`
	EffectID    string         `json:"effect_id,omitempty"`
	Timeline    []trace.Record `json:"timeline"`
	Stats       trace.Stats    `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show a recorded processor trace",
		Long: `Read a processor's event trace from a database written by
"procstate run --db".

Examples:
  procstate trace --db ./trace.db --list
  procstate trace --db ./trace.db --processor scenario-counter_basic
  procstate trace --db ./trace.db --processor scenario-counter_basic --kind private_action --format json
  procstate trace --db ./trace.db --processor scenario-cancel_pending --effect fx-1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $PROCSTATE_DB)")
	cmd.Flags().StringVar(&opts.Processor, "processor", "", "processor id to show")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind")
	cmd.Flags().StringVar(&opts.Effect, "effect", "", "show only records of one effect id")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded processors")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}
	if db == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if !opts.List && opts.Processor == "" {
		return NewExitError(ExitCommandError, "one of --processor or --list is required")
	}

	st, err := store.Open(db)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()

	if opts.List {
		infos, err := st.ListProcessors(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list processors", err)
		}
		var text strings.Builder
		if len(infos) == 0 {
			text.WriteString("No processors recorded.")
		}
		for i, info := range infos {
			if i > 0 {
				text.WriteString("\n")
			}
			fmt.Fprintf(&text, "%s\t%s\t%d events", info.ID, info.Label, info.Records)
		}
		return formatter.Success(infos, text.String())
	}

	var records []trace.Record
	if opts.Effect != "" {
		records, err = st.ReadEffect(ctx, opts.Processor, opts.Effect)
	} else {
		records, err = st.ReadTrace(ctx, opts.Processor)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := TraceResult{
		ProcessorID: opts.Processor,
		EffectID:    opts.Effect,
		Timeline:    filterKind(records, opts.Kind),
		Stats:       trace.Summarize(records),
	}

	if len(records) == 0 && !formatter.JSON() {
		if opts.Effect != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "No events found for effect %s of processor: %s\n", opts.Effect, opts.Processor)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No events found for processor: %s\n", opts.Processor)
		return nil
	}

	return formatter.Success(result, formatTraceText(result, opts.Verbose))
}

func filterKind(records []trace.Record, kind string) []trace.Record {
	if kind == "" {
		return records
	}
	out := []trace.Record{}
	for _, r := range records {
		if string(r.Kind) == kind {
			out = append(out, r)
		}
	}
	return out
}

func formatTraceText(result TraceResult, verbose bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processor: %s\n", result.ProcessorID)
	if result.EffectID != "" {
		fmt.Fprintf(&b, "Effect: %s\n", result.EffectID)
	}
	fmt.Fprintf(&b, "Timeline:\n")
	for _, r := range result.Timeline {
		line := fmt.Sprintf("  [%d] %s", r.Seq, r.Kind)
		if r.EffectID != "" {
			line += " " + r.EffectID
		}
		if r.Value != "" {
			line += " " + r.Value
		}
		b.WriteString(line + "\n")
	}
	st := result.Stats
	fmt.Fprintf(&b, "Stats: %d actions, %d private actions, %d effects, %d cancellations, %d dropped",
		st.Actions, st.PrivateActions, st.Effects, st.Cancellations, st.Dropped)
	if verbose {
		fmt.Fprintf(&b, "\nRecords: %d", len(result.Timeline))
	}
	return b.String()
}
