// Package cli implements the procstate command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/procstate/internal/config"
	"github.com/roach88/procstate/internal/telemetry"
)

// RootOptions holds global flags and environment config for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is loaded from the environment before any command runs.
	Config config.Config

	// LogWriter receives slog output. Defaults to stderr.
	LogWriter io.Writer

	shutdown func(context.Context) error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute runs the CLI with os.Args and flushes telemetry before returning.
func Execute(ctx context.Context) error {
	cmd, opts := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	if opts.shutdown != nil {
		if shutdownErr := opts.shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			slog.Warn("telemetry shutdown failed", "error", shutdownErr)
		}
	}
	return err
}

// NewRootCommand creates the root command for the procstate CLI.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "procstate",
		Short: "procstate - unidirectional state processors",
		Long: `Run, validate and inspect scripted sessions of reducer-driven
state processors with cancellable effects.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid environment", err)
			}
			opts.Config = cfg

			if err := setupLogging(opts, cmd.ErrOrStderr()); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			shutdown, err := telemetry.Setup(ctx, "procstate", cfg.OTelEndpoint, cfg.OTelEnabled)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to set up tracing", err)
			}
			opts.shutdown = shutdown
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd, opts
}

// setupLogging installs the default slog handler. --verbose forces debug.
func setupLogging(opts *RootOptions, fallback io.Writer) error {
	level, err := config.ParseLevel(opts.Config.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	w := opts.LogWriter
	if w == nil {
		w = fallback
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.Config.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
