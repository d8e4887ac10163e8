package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/procstate/processor"
)

// SpanObserver turns processor events into spans.
//
// One span covers the processor's lifetime and carries every dispatch event.
// Each effect gets a child span from effect_started to effect_finished;
// cancellations are recorded on the effect span and mark it with an error
// status. Call End once the processor is closed.
type SpanObserver struct {
	tracer trace.Tracer

	mu      sync.Mutex
	ctx     context.Context
	root    trace.Span
	effects map[string]trace.Span
	ended   bool
}

// NewSpanObserver starts the processor span under ctx.
func NewSpanObserver(ctx context.Context, tracer trace.Tracer, processorID, label string) *SpanObserver {
	spanCtx, root := tracer.Start(ctx, "processor "+label,
		trace.WithAttributes(
			attribute.String("procstate.processor_id", processorID),
			attribute.String("procstate.label", label),
		),
	)
	return &SpanObserver{
		tracer:  tracer,
		ctx:     spanCtx,
		root:    root,
		effects: make(map[string]trace.Span),
	}
}

// OnEvent records e. Events after End are ignored.
func (o *SpanObserver) OnEvent(e processor.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ended {
		return
	}

	attrs := []attribute.KeyValue{attribute.Int64("procstate.seq", e.Seq)}
	if e.EffectID != "" {
		attrs = append(attrs, attribute.String("procstate.effect_id", e.EffectID))
	}
	if e.Value != nil {
		attrs = append(attrs, attribute.String("procstate.value", processor.Describe(e.Value, true)))
	}

	switch e.Kind {
	case processor.EventEffectStarted:
		_, span := o.tracer.Start(o.ctx, "effect",
			trace.WithAttributes(attribute.String("procstate.effect_id", e.EffectID)))
		o.effects[e.EffectID] = span

	case processor.EventEffectFinished:
		if span, ok := o.effects[e.EffectID]; ok {
			span.End()
			delete(o.effects, e.EffectID)
		}

	case processor.EventEffectCanceled:
		o.markCanceled(e.EffectID)

	case processor.EventEffectDropped:
		if span, ok := o.effects[e.EffectID]; ok {
			span.AddEvent(string(e.Kind), trace.WithAttributes(attrs...))
		}

	case processor.EventCancelAll:
		if ids, ok := e.Value.([]string); ok {
			for _, id := range ids {
				o.markCanceled(id)
			}
		}
	}

	o.root.AddEvent(string(e.Kind), trace.WithAttributes(attrs...))
}

func (o *SpanObserver) markCanceled(id string) {
	span, ok := o.effects[id]
	if !ok {
		return
	}
	span.AddEvent("canceled")
	span.SetStatus(codes.Error, "canceled")
}

// End closes any effect spans still open and then the processor span.
// End is idempotent.
func (o *SpanObserver) End() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ended {
		return
	}
	o.ended = true

	for id, span := range o.effects {
		span.End()
		delete(o.effects, id)
	}
	o.root.End()
}
