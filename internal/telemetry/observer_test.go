package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/procstate/effect"
	"github.com/roach88/procstate/internal/testutil"
	"github.com/roach88/procstate/processor"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func spanByName(spans []sdktrace.ReadOnlySpan, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func eventNames(s sdktrace.ReadOnlySpan) []string {
	names := make([]string, 0, len(s.Events()))
	for _, e := range s.Events() {
		names = append(names, e.Name)
	}
	return names
}

type step struct{ kind string }

func (s step) String() string { return s.kind }

func TestSpanObserver_EffectSpan(t *testing.T) {
	sr, tp := newRecorder(t)
	obs := NewSpanObserver(context.Background(), tp.Tracer("test"), "p1", "counter")

	obs.OnEvent(processor.Event{Seq: 1, Kind: processor.EventAction, Value: step{"start"}})
	obs.OnEvent(processor.Event{Seq: 2, Kind: processor.EventPrivateAction, Value: step{"start"}})
	obs.OnEvent(processor.Event{Seq: 3, Kind: processor.EventEffectStarted, EffectID: "fx-1"})
	obs.OnEvent(processor.Event{Seq: 4, Kind: processor.EventPrivateAction, Value: step{"finish"}})
	obs.OnEvent(processor.Event{Seq: 5, Kind: processor.EventNoop})
	obs.OnEvent(processor.Event{Seq: 6, Kind: processor.EventEffectFinished, EffectID: "fx-1"})
	obs.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	root := spanByName(spans, "processor counter")
	require.Len(t, root, 1)
	assert.Equal(t, []string{
		"action", "private_action", "effect_started", "private_action", "noop", "effect_finished",
	}, eventNames(root[0]))

	eff := spanByName(spans, "effect")
	require.Len(t, eff, 1)
	assert.Equal(t, root[0].SpanContext().SpanID(), eff[0].Parent().SpanID())
	assert.Equal(t, codes.Unset, eff[0].Status().Code)
}

func TestSpanObserver_CancelAllMarksEffects(t *testing.T) {
	sr, tp := newRecorder(t)
	obs := NewSpanObserver(context.Background(), tp.Tracer("test"), "p1", "search")

	obs.OnEvent(processor.Event{Seq: 1, Kind: processor.EventEffectStarted, EffectID: "fx-1"})
	obs.OnEvent(processor.Event{Seq: 2, Kind: processor.EventEffectStarted, EffectID: "fx-2"})
	obs.OnEvent(processor.Event{Seq: 3, Kind: processor.EventCancelAll, Value: []string{"fx-1", "fx-2"}})
	obs.End()
	obs.End()

	eff := spanByName(sr.Ended(), "effect")
	require.Len(t, eff, 2)
	for _, s := range eff {
		assert.Equal(t, codes.Error, s.Status().Code)
		assert.Contains(t, eventNames(s), "canceled")
	}
}

func TestSpanObserver_IgnoresEventsAfterEnd(t *testing.T) {
	sr, tp := newRecorder(t)
	obs := NewSpanObserver(context.Background(), tp.Tracer("test"), "p1", "counter")
	obs.End()

	obs.OnEvent(processor.Event{Seq: 1, Kind: processor.EventEffectStarted, EffectID: "fx-1"})

	assert.Len(t, sr.Ended(), 1)
}

func TestSpanObserver_WithProcessor(t *testing.T) {
	sr, tp := newRecorder(t)
	obs := NewSpanObserver(context.Background(), tp.Tracer("test"), "p1", "ticks")

	reducer := processor.NewReducer(
		func(a string) string { return a },
		func(n *int, a string) *effect.Effect[string] {
			*n++
			if a == "go" {
				return effect.Send("done")
			}
			return nil
		},
	)
	p := processor.New[int, string, string](0, reducer,
		processor.WithID("p1"),
		processor.WithIDGenerator(testutil.NewSequentialIDGenerator("fx")),
		processor.WithLogEnabled(false),
		processor.WithObserver(obs),
	)

	p.Send("go")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
	p.Close()
	obs.End()

	assert.Equal(t, 2, len(sr.Ended()))
	eff := spanByName(sr.Ended(), "effect")
	require.Len(t, eff, 1)
}
