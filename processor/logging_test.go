package processor

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procstate/effect"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineRecorder) Log(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, message)
}

func TestProcessor_LogLines(t *testing.T) {
	rec := &lineRecorder{}
	p := New[testState, testAction, testPrivate](testState{}, &testReducer{},
		WithID("abcdef"),
		WithLogger(rec),
	)
	defer p.Close()

	p.Send("increment")

	assert.Equal(t, []string{
		"Processor ID: abc - Action - increment",
		"Processor ID: abc - PrivateAction - increment",
		"Processor ID: abc -------------------------------------",
	}, rec.lines)
}

func TestProcessor_LogDumpWhenDescriptionDisabled(t *testing.T) {
	rec := &lineRecorder{}
	p := New[testState, testAction, testPrivate](testState{}, &testReducer{},
		WithID("xyz"),
		WithLogger(rec),
		WithDescriptionFirst(false),
	)
	defer p.Close()

	p.Send("increment")

	require.Len(t, rec.lines, 3)
	assert.Equal(t, "Processor ID: xyz - PrivateAction - {Kind:increment Value:0}", rec.lines[1])
}

func TestProcessor_LogDisabled(t *testing.T) {
	rec := &lineRecorder{}
	p := New[testState, testAction, testPrivate](testState{}, &testReducer{},
		WithLogger(rec),
		WithLogEnabled(false),
	)
	defer p.Close()

	p.Send("increment")
	assert.Empty(t, rec.lines)
}

func TestSlogLogger_WritesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogLogger(logger).Log("Processor ID: abc - Action - increment")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "Processor ID: abc - Action - increment")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "increment", Describe(testPrivate{Kind: "increment"}, true))
	assert.Equal(t, "{Kind:increment Value:2}", Describe(testPrivate{Kind: "increment", Value: 2}, false))
	assert.Equal(t, "42", Describe(42, true))
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func TestProcessor_ObserverEvents(t *testing.T) {
	obs := &eventRecorder{}
	r := &testReducer{effects: map[string]func() *effect.Effect[testPrivate]{
		"start": func() *effect.Effect[testPrivate] {
			return effect.Send(testPrivate{Kind: "finish"})
		},
	}}
	p := newTestProcessor(t, r, WithObserver(obs))

	p.Send("start")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, []EventKind{
		EventAction,
		EventPrivateAction,
		EventEffectStarted,
		EventPrivateAction,
		EventNoop,
		EventEffectFinished,
	}, obs.kinds())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	for i, e := range obs.events {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Equal(t, "test-processor", e.ProcessorID)
	}
	assert.Equal(t, "fx-1", obs.events[2].EffectID)
	assert.Equal(t, testAction("start"), obs.events[0].Value)
}

func TestProcessor_ObserverCancelEvents(t *testing.T) {
	obs := &eventRecorder{}
	r := &testReducer{effects: map[string]func() *effect.Effect[testPrivate]{
		"start": func() *effect.Effect[testPrivate] {
			return effect.Delay(time.Hour, testPrivate{Kind: "finish"})
		},
	}}
	p := newTestProcessor(t, r, WithObserver(obs))

	p.Send("start")
	p.Send("start")
	p.Cancel("fx-1")
	p.CancelAll()

	kinds := obs.kinds()
	assert.Contains(t, kinds, EventEffectCanceled)
	assert.Contains(t, kinds, EventCancelAll)
}

func TestProcessor_CancelReportsOnlyLiveEffects(t *testing.T) {
	obs := &eventRecorder{}
	r := &testReducer{effects: map[string]func() *effect.Effect[testPrivate]{
		"quick": func() *effect.Effect[testPrivate] {
			return effect.Send(testPrivate{Kind: "value", Value: 1})
		},
		"hold": func() *effect.Effect[testPrivate] {
			return effect.Delay(time.Hour, testPrivate{Kind: "finish"})
		},
	}}
	p := newTestProcessor(t, r, WithObserver(obs))

	p.Send("quick")
	waitIdle(t, p)
	p.Send("hold")
	require.Equal(t, []string{"fx-2"}, p.EffectIDs())

	p.Cancel("fx-1")
	p.Cancel("unknown")
	p.Cancel("fx-2")
	p.Cancel("fx-2")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	var canceled []string
	for _, e := range obs.events {
		if e.Kind == EventEffectCanceled {
			canceled = append(canceled, e.EffectID)
		}
	}
	assert.Equal(t, []string{"fx-2"}, canceled)
}

func TestMultiObserver(t *testing.T) {
	a := &eventRecorder{}
	b := &eventRecorder{}
	m := MultiObserver{a, nil, b}

	m.OnEvent(Event{Kind: EventNoop})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}
