package scenario

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/procstate/internal/store"
	"github.com/roach88/procstate/internal/testutil"
	"github.com/roach88/procstate/processor"
)

func TestRun_CounterBasic(t *testing.T) {
	sc, err := LoadScenario("testdata/counter_basic.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "scenario-counter_basic", result.ProcessorID)
	assert.Equal(t, 2, result.State["count"])
}

func TestRun_SearchFailure(t *testing.T) {
	sc, err := LoadScenario("testdata/search_failure.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	effects := 1
	sc := &Scenario{
		Name:        "wrong",
		Description: "expectations that do not hold",
		Domain:      "counter",
		Steps:       []Step{{Send: "increment"}},
		Expect: &Expect{
			Fields:  map[string]any{"count": 5, "missing": true},
			Effects: &effects,
		},
		Assertions: []Assertion{{Type: AssertTraceContains, Kind: "cancel_all"}},
	}

	result, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, "expect.fields.count: expected 5, got 1", result.Errors[0])
	assert.Equal(t, "expect.fields.missing: no such field", result.Errors[1])
	assert.Contains(t, result.Errors[2], "expected 1 registered effects, got 0")
	assert.Contains(t, result.Errors[3], "Assertion failed: trace_contains")
}

func TestRun_UnknownActionIsStepError(t *testing.T) {
	sc := &Scenario{
		Name:        "unknown_action",
		Description: "sends an action the domain does not know",
		Domain:      "counter",
		Steps:       []Step{{Send: "explode"}, {Send: "increment"}},
	}

	result, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `steps[0]: counter: unknown action "explode"`)
	assert.Equal(t, 1, result.State["count"])
}

func TestRun_WaitTimeout(t *testing.T) {
	sc := &Scenario{
		Name:        "stuck",
		Description: "waits on an effect that never fires",
		Domain:      "counter",
		Steps: []Step{
			{Send: "incrementLater", Args: map[string]any{"delay": "1h"}},
			{Wait: true},
		},
	}

	result, err := Run(context.Background(), sc, Options{WaitTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "context deadline exceeded")
}

func TestRun_AutoCancelOverride(t *testing.T) {
	off := false
	sc := &Scenario{
		Name:        "no_auto_cancel",
		Description: "search without latest-wins",
		Domain:      "search",
		AutoCancel:  &off,
		Steps: []Step{
			{Send: "query", Args: map[string]any{"q": "apple"}},
			{Send: "query", Args: map[string]any{"q": "grape"}},
			{Wait: true},
		},
		Expect: &Expect{Fields: map[string]any{"requests": 2}},
	}

	result, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidScenario(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{Name: "x"}, Options{})
	assert.ErrorContains(t, err, "invalid scenario")
}

func TestRun_PersistsTrace(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer st.Close()

	sc, err := LoadScenario("testdata/counter_basic.yaml")
	require.NoError(t, err)

	collector := testutil.NewCollector()
	result, err := Run(context.Background(), sc, Options{Store: st, Observer: collector})
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	records, err := st.ReadTrace(context.Background(), result.ProcessorID)
	require.NoError(t, err)
	assert.Len(t, records, len(result.Trace))
	assert.Len(t, collector.Events(), len(result.Trace))

	infos, err := st.ListProcessors(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "counter_basic", infos[0].Label)
}

func TestRun_RerunReplacesStoredTrace(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer st.Close()

	first := &Scenario{
		Name:        "rerun",
		Description: "three increments",
		Domain:      "counter",
		Steps:       []Step{{Send: "increment"}, {Send: "increment"}, {Send: "increment"}},
	}
	result, err := Run(context.Background(), first, Options{Store: st})
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	second := &Scenario{
		Name:        "rerun",
		Description: "one decrement",
		Domain:      "counter",
		Steps:       []Step{{Send: "decrement"}},
	}
	result, err = Run(context.Background(), second, Options{Store: st})
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	records, err := st.ReadTrace(context.Background(), "scenario-rerun")
	require.NoError(t, err)
	require.Len(t, records, len(result.Trace))
	assert.Equal(t, "decrement", records[0].Value)
}

func TestRun_LogsThroughLogger(t *testing.T) {
	var lines []string
	logger := processor.LoggerFunc(func(s string) { lines = append(lines, s) })

	sc := &Scenario{
		Name:        "logged",
		Description: "logs every dispatch",
		Domain:      "counter",
		ProcessorID: "abc123",
		Steps:       []Step{{Send: "reset"}},
	}

	_, err := Run(context.Background(), sc, Options{Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Processor ID: abc - Action - reset",
		"Processor ID: abc - PrivateAction - set",
		"Processor ID: abc -------------------------------------",
	}, lines)
}

func TestRun_ExportsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	sc, err := LoadScenario("testdata/counter_basic.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), sc, Options{Tracer: tp.Tracer("test")})
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	names := map[string]int{}
	for _, s := range sr.Ended() {
		names[s.Name()]++
	}
	assert.Equal(t, map[string]int{"processor counter_basic": 1, "effect": 1}, names)
}
