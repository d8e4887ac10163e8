package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/procstate/internal/scenario"
	"github.com/roach88/procstate/internal/store"
	"github.com/roach88/procstate/internal/telemetry"
	"github.com/roach88/procstate/internal/trace"
	"github.com/roach88/procstate/processor"
)

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name        string         `json:"name"`
	File        string         `json:"file"`
	ProcessorID string         `json:"processor_id,omitempty"`
	Pass        bool           `json:"pass"`
	Golden      string         `json:"golden,omitempty"` // "match", "mismatch", "updated" or empty
	Stats       trace.Stats    `json:"stats"`
	State       map[string]any `json:"state,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
}

// runConfig carries the per-invocation settings shared by run and test.
type runConfig struct {
	root   *RootOptions
	store  *store.Store
	update bool
	golden bool
}

// runScenarioFile loads and runs one scenario file. Load and run failures are
// reported in the result rather than returned.
func runScenarioFile(ctx context.Context, path string, rc runConfig) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(path), File: path}

	sc, err := scenario.LoadScenario(path)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return res
	}
	res.Name = sc.Name

	if sc.AutoCancel == nil && rc.root.Config.AutoCancel {
		on := true
		sc.AutoCancel = &on
	}

	opts := scenario.Options{
		Store:       rc.store,
		WaitTimeout: rc.root.Config.WaitTimeout,
		Tracer:      telemetry.Tracer(),
	}
	if rc.root.Verbose {
		opts.Logger = processor.NewSlogLogger(slog.Default())
	}

	slog.Debug("running scenario", "name", sc.Name, "domain", sc.Domain, "file", path)
	result, err := scenario.Run(ctx, sc, opts)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}

	res.ProcessorID = result.ProcessorID
	res.Pass = result.Pass
	res.Stats = trace.Summarize(result.Trace)
	res.State = result.State
	res.Errors = result.Errors

	if !rc.golden {
		return res
	}

	goldenPath := goldenFilePath(path, sc.Name)
	data, err := trace.MarshalCanonical(scenario.Snapshot(sc.Name, result).CanonicalMap())
	if err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("failed to marshal trace: %v", err))
		return res
	}

	if rc.update {
		if err := writeGolden(goldenPath, data); err != nil {
			res.Pass = false
			res.Errors = append(res.Errors, err.Error())
			return res
		}
		res.Golden = "updated"
		return res
	}

	want, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		// No golden file: expectations and assertions only.
		return res
	}
	if err != nil {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return res
	}

	if bytes.Equal(want, data) {
		res.Golden = "match"
	} else {
		res.Golden = "mismatch"
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf("trace does not match %s", goldenPath))
	}
	return res
}

// goldenFilePath returns <dir>/golden/<name>.golden next to the scenario.
func goldenFilePath(scenarioFile, name string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// isScenarioFile reports whether path has a scenario extension.
func isScenarioFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// findScenarioFiles finds scenario files in dir, optionally filtered by a
// glob on the file name without extension. The golden directory is skipped.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !isScenarioFile(path) {
			return nil
		}

		if filter != "" {
			base := filepath.Base(path)
			name := strings.TrimSuffix(base, filepath.Ext(base))
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

func formatScenarioText(r ScenarioResult) string {
	var b strings.Builder
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	fmt.Fprintf(&b, "%s %s", mark, r.Name)
	if r.Golden != "" {
		fmt.Fprintf(&b, " (golden %s)", r.Golden)
	}
	fmt.Fprintf(&b, "\n  actions: %d, private actions: %d, effects: %d, cancellations: %d, dropped: %d",
		r.Stats.Actions, r.Stats.PrivateActions, r.Stats.Effects, r.Stats.Cancellations, r.Stats.Dropped)
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n  %s", e)
	}
	return b.String()
}
