package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/roach88/procstate/internal/demo"
	"github.com/roach88/procstate/internal/store"
	"github.com/roach88/procstate/internal/telemetry"
	"github.com/roach88/procstate/internal/testutil"
	"github.com/roach88/procstate/internal/trace"
	"github.com/roach88/procstate/processor"
)

// DefaultWaitTimeout bounds each wait step when Options.WaitTimeout is zero.
const DefaultWaitTimeout = 5 * time.Second

// Options configures a scenario run.
type Options struct {
	// Store persists the trace when non-nil.
	Store *store.Store

	// Logger receives processor log lines. Nil disables processor logging.
	Logger processor.Logger

	// WaitTimeout bounds each wait step and the final settle.
	WaitTimeout time.Duration

	// Observer additionally receives every event when non-nil.
	Observer processor.Observer

	// Tracer exports the run as spans when non-nil.
	Tracer oteltrace.Tracer
}

// Run executes a scenario against a fresh Processor and returns the result.
//
// Execution flow:
//  1. Start the domain's Processor with a fixed id and sequential effect ids
//  2. Execute steps in order
//  3. Settle: if no effect is registered, wait for canceled effects to return
//  4. Check expectations and assertions
//  5. Close the Processor
//
// Step failures (unknown actions, wait timeouts) are reported in the result.
// The returned error is reserved for scenarios that cannot be run at all.
func Run(ctx context.Context, sc *Scenario, opts Options) (*Result, error) {
	if err := Validate(sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	domain, err := demo.Lookup(sc.Domain)
	if err != nil {
		return nil, err
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = DefaultWaitTimeout
	}

	id := sc.ProcessorID
	if id == "" {
		id = "scenario-" + sc.Name
	}

	collector := testutil.NewCollector()
	observers := processor.MultiObserver{collector, opts.Observer}

	var recorder *store.Recorder
	if opts.Store != nil {
		// Seq restarts at 1 every run, so an earlier trace under this id
		// would collide with the new one.
		last, err := opts.Store.LastSeq(ctx, id)
		if err != nil {
			return nil, err
		}
		if last > 0 {
			slog.Info("replacing stored trace", "processor", id, "previous_events", last)
		}
		if err := opts.Store.ResetTrace(ctx, id, sc.Name); err != nil {
			return nil, err
		}
		recorder = store.NewRecorder(opts.Store, slog.Default())
		observers = append(observers, recorder)
	}

	if opts.Tracer != nil {
		spans := telemetry.NewSpanObserver(ctx, opts.Tracer, id, sc.Name)
		defer spans.End()
		observers = append(observers, spans)
	}

	procOpts := []processor.Option{
		processor.WithID(id),
		processor.WithIDGenerator(testutil.NewSequentialIDGenerator("fx")),
		processor.WithObserver(observers),
		processor.WithLogger(opts.Logger),
	}
	if sc.AutoCancel != nil {
		procOpts = append(procOpts, processor.WithAutoCancelLatestAction(*sc.AutoCancel))
	}

	drv := domain.New(procOpts...)
	defer drv.Close()

	result := NewResult()
	result.ProcessorID = id

	for i, step := range sc.Steps {
		if err := executeStep(ctx, drv, step, opts.WaitTimeout); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
		}
	}

	if len(drv.EffectIDs()) == 0 {
		if err := waitFor(ctx, drv, opts.WaitTimeout); err != nil {
			result.AddError(fmt.Sprintf("settle: %v", err))
		}
	}

	result.State = drv.Fields()
	effects := len(drv.EffectIDs())
	for _, e := range collector.Events() {
		result.Trace = append(result.Trace, trace.FromEvent(e))
	}

	checkExpect(sc.Expect, result, effects)
	for _, msg := range EvaluateAssertions(result.Trace, sc.Assertions) {
		result.AddError(msg)
	}

	if recorder != nil && recorder.Err() != nil {
		result.AddError(fmt.Sprintf("store: %d events not recorded: %v", recorder.Failed(), recorder.Err()))
	}

	return result, nil
}

func executeStep(ctx context.Context, drv demo.Driver, step Step, timeout time.Duration) error {
	switch {
	case step.Send != "":
		return drv.Send(step.Send, demo.Args(step.Args))
	case step.Wait:
		return waitFor(ctx, drv, timeout)
	case step.CancelAll:
		drv.CancelAll()
		return nil
	}
	return fmt.Errorf("empty step")
}

func waitFor(ctx context.Context, drv demo.Driver, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := drv.Wait(wctx); err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	return nil
}

func checkExpect(expect *Expect, result *Result, effects int) {
	if expect == nil {
		return
	}

	for _, key := range sortedKeys(expect.Fields) {
		want := expect.Fields[key]
		got, ok := result.State[key]
		if !ok {
			result.AddError(fmt.Sprintf("expect.fields.%s: no such field", key))
			continue
		}
		if err := compareValues(got, want); err != nil {
			result.AddError(fmt.Sprintf("expect.fields.%s: %v", key, err))
		}
	}

	if expect.Effects != nil && *expect.Effects != effects {
		result.AddError(fmt.Sprintf("expect.effects: expected %d registered effects, got %d", *expect.Effects, effects))
	}
}

// compareValues compares a projected field with its expected value through
// their canonical JSON forms, so 3 matches int64(3) and ["a"] matches
// []string{"a"}.
func compareValues(got, want any) error {
	wantJSON, err := trace.MarshalCanonical(normalize(want))
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}
	gotJSON, err := trace.MarshalCanonical(normalize(got))
	if err != nil {
		return fmt.Errorf("actual value: %w", err)
	}
	if string(gotJSON) != string(wantJSON) {
		return fmt.Errorf("expected %s, got %s", wantJSON, gotJSON)
	}
	return nil
}

// normalize converts decoded YAML and CUE values into the shapes
// MarshalCanonical accepts.
func normalize(v any) any {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
