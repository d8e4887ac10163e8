package processor

import (
	"fmt"
	"log/slog"
	"sync"
)

// Logger receives formatted dispatch lines.
type Logger interface {
	Log(message string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(message string)

func (f LoggerFunc) Log(message string) { f(message) }

// SlogLogger writes dispatch lines to a slog.Logger at debug level.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a Logger backed by l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (s *SlogLogger) Log(message string) {
	s.logger.Debug(message)
}

// EventKind identifies an observer event.
type EventKind string

const (
	EventAction         EventKind = "action"
	EventPrivateAction  EventKind = "private_action"
	EventNoop           EventKind = "noop"
	EventEffectStarted  EventKind = "effect_started"
	EventEffectFinished EventKind = "effect_finished"
	EventEffectDropped  EventKind = "effect_dropped"
	EventEffectCanceled EventKind = "effect_canceled"
	EventCancelAll      EventKind = "cancel_all"
)

// Event is a structured record of one dispatch transition.
type Event struct {
	Seq         int64
	ProcessorID string
	Kind        EventKind
	EffectID    string
	// Value is the action or private action for action events, nil otherwise.
	Value any
}

// Observer receives every dispatch event of a Processor.
//
// Calls for one Processor never overlap and arrive in Seq order. OnEvent runs
// while dispatch may be blocked on it, so it must not call back into the
// Processor's Send.
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(event Event)

func (f ObserverFunc) OnEvent(event Event) { f(event) }

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(event Event) {
	for _, o := range m {
		if o != nil {
			o.OnEvent(event)
		}
	}
}

// notifier stamps events and serializes observer calls.
type notifier struct {
	mu          sync.Mutex
	clock       Clock
	processorID string
	observer    Observer
}

func (n *notifier) notify(kind EventKind, effectID string, value any) {
	if n.observer == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.observer.OnEvent(Event{
		Seq:         n.clock.Next(),
		ProcessorID: n.processorID,
		Kind:        kind,
		EffectID:    effectID,
		Value:       value,
	})
}

// Describe renders an action for logs and traces. When preferString is true
// and v implements fmt.Stringer, its String form is used. Otherwise v is
// dumped field by field without calling any of its methods.
func Describe(v any, preferString bool) string {
	if s, ok := v.(fmt.Stringer); ok && preferString {
		return s.String()
	}
	return dump(v)
}
