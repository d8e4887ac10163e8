package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/procstate/internal/scenario"
)

// ValidationResult holds validation results for one file.
type ValidationResult struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files without running them",
		Long: `Parse and validate scenario files. YAML files are decoded strictly and
CUE files are unified with the scenario schema; both are then checked for
known domains and well-formed steps and assertions.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	results := make([]ValidationResult, 0, len(files))
	invalid := 0
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		r := ValidationResult{File: file, Valid: true}

		sc, err := scenario.LoadScenario(file)
		if err != nil {
			r.Valid = false
			r.Error = err.Error()
			r.Code = ErrCodeLoad
			if scenario.IsValidationError(err) {
				r.Code = ErrCodeValidation
			}
			invalid++
		} else {
			r.Name = sc.Name
		}
		results = append(results, r)
	}

	var text strings.Builder
	for i, r := range results {
		if i > 0 {
			text.WriteString("\n")
		}
		if r.Valid {
			fmt.Fprintf(&text, "✓ %s (%s)", r.File, r.Name)
		} else {
			fmt.Fprintf(&text, "✗ %s\n  [%s] %s", r.File, r.Code, r.Error)
		}
	}

	if err := formatter.Success(results, text.String()); err != nil {
		return err
	}
	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario file(s) invalid", invalid))
	}
	return nil
}
