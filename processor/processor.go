package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/roach88/procstate/cancellation"
	"github.com/roach88/procstate/effect"
)

// ErrClosed is returned by Wait once the Processor has been closed.
var ErrClosed = errors.New("processor: closed")

const useAfterClose = "processor: use after close"

// Processor owns a State value, a Reducer and the registry of in-flight
// effects.
//
// Thread-safety model:
//   - Send: safe from any goroutine; runs Transform and Reduce on the caller
//   - effect outputs: delivered one at a time on the Processor's mailbox
//     goroutine
//   - every Reduce call holds the dispatch lock, so two mutation steps never
//     interleave
//
// Reducers and observers must not call Send on their own Processor.
type Processor[S, A, P any] struct {
	id      string
	opts    options
	reducer Reducer[S, A, P]

	mu    sync.Mutex // dispatch lock; guards state
	state S

	subject  *subject[S]
	registry *cancellation.Registry
	mailbox  *queue[delivery]
	notifier *notifier

	ctx    context.Context
	cancel context.CancelFunc

	flightMu sync.Mutex
	inflight int
	idle     chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	loopDone  chan struct{}
}

// delivery is one effect output waiting for the mailbox goroutine.
type delivery struct {
	fn   func()
	done chan struct{}
}

// New creates a Processor from an initial state and a reducer and starts its
// mailbox goroutine. Call Close to release it.
func New[S, A, P any](initial S, reducer Reducer[S, A, P], opts ...Option) *Processor[S, A, P] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = o.ids.Generate()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor[S, A, P]{
		id:       o.id,
		opts:     o,
		reducer:  reducer,
		state:    initial,
		subject:  newSubject(initial),
		registry: cancellation.NewRegistry(),
		mailbox:  newQueue[delivery](),
		notifier: &notifier{processorID: o.id, observer: o.observer},
		ctx:      ctx,
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}

	go p.loop()

	return p
}

// NewWithEnvironment creates a Processor whose reducer is parameterized by env.
func NewWithEnvironment[S, A, P, E any](initial S, reducer EnvReducer[S, A, P, E], env E, opts ...Option) *Processor[S, A, P] {
	return New[S, A, P](initial, reducer.Bind(env), opts...)
}

// ID returns the Processor's identifier.
func (p *Processor[S, A, P]) ID() string {
	return p.id
}

// Send dispatches an external action.
//
// The action is transformed, every registered effect is canceled when
// auto-cancel is enabled, and the resulting private action is reduced before
// Send returns. Effects started by the reducer keep running after Send
// returns. Panics if the Processor is closed.
func (p *Processor[S, A, P]) Send(action A) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mustBeOpen()

	p.logf(kindAction, action)
	p.notifier.notify(EventAction, "", action)

	private := p.reducer.Transform(action)

	if p.opts.autoCancel {
		p.cancelAll()
	}

	p.dispatch(private)
}

// dispatch reduces one private action. It is the re-entry point for effect
// outputs and skips Transform. Caller must hold p.mu.
func (p *Processor[S, A, P]) dispatch(action P) {
	p.logf(kindPrivateAction, action)
	p.notifier.notify(EventPrivateAction, "", action)

	eff := p.reducer.Reduce(&p.state, action)
	p.subject.publish(p.state)

	if eff == nil {
		p.logDivider()
		p.notifier.notify(EventNoop, "", nil)
		return
	}

	p.start(eff)
}

// start registers eff under a fresh id and drives it on its own goroutine.
// Caller must hold p.mu.
func (p *Processor[S, A, P]) start(eff *effect.Effect[P]) {
	id := p.opts.ids.Generate()

	p.beginFlight()
	run := eff.Cancellable(id, p.registry).Subscribe(p.ctx, p.emitter(id))
	p.notifier.notify(EventEffectStarted, id, nil)

	go func() {
		defer p.endFlight()
		run()
		p.notifier.notify(EventEffectFinished, id, nil)
	}()
}

// emitter returns the emit function for effect id. Each value is handed to
// the mailbox and emit blocks until it has been delivered or dropped, which
// keeps source order and guarantees no value outlives its registration.
func (p *Processor[S, A, P]) emitter(id string) effect.Emit[P] {
	return func(v P) {
		done := make(chan struct{})
		ok := p.mailbox.Enqueue(delivery{
			fn:   func() { p.deliver(id, v) },
			done: done,
		})
		if !ok {
			return
		}

		select {
		case <-done:
		case <-p.ctx.Done():
		}
	}
}

// deliver re-enters dispatch with an effect output unless the effect was
// canceled after the value left the producer.
func (p *Processor[S, A, P]) deliver(id string, v P) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return
	}
	if !p.registry.Contains(id) {
		p.notifier.notify(EventEffectDropped, id, v)
		return
	}

	p.dispatch(v)
}

// loop is the mailbox goroutine: it runs deliveries one at a time, in
// arrival order, until the Processor is closed.
func (p *Processor[S, A, P]) loop() {
	defer close(p.loopDone)

	for {
		if d, ok := p.mailbox.TryDequeue(); ok {
			d.fn()
			close(d.done)
			continue
		}

		select {
		case <-p.ctx.Done():
			p.mailbox.Close()
			for _, d := range p.mailbox.Drain() {
				close(d.done)
			}
			return
		case <-p.mailbox.Wait():
		}
	}
}

// State returns a copy of the current state. Panics if the Processor is
// closed.
func (p *Processor[S, A, P]) State() S {
	p.mustBeOpen()
	return p.subject.load()
}

// Select projects a field of the current state without dispatching.
// Panics if the Processor is closed.
func Select[S, A, P, V any](p *Processor[S, A, P], fn func(S) V) V {
	return fn(p.State())
}

// Observe returns a channel that yields the current state, then every state
// produced by a reduce step, in order. The channel closes when ctx ends or the
// Processor is closed; it never completes otherwise.
func (p *Processor[S, A, P]) Observe(ctx context.Context) <-chan S {
	return p.subject.subscribe(ctx)
}

// CancelAll cancels every effect currently registered for this Processor.
// Values those effects have not yet delivered are dropped.
func (p *Processor[S, A, P]) CancelAll() {
	p.cancelAll()
}

func (p *Processor[S, A, P]) cancelAll() {
	ids := p.registry.CancelAll()
	if len(ids) == 0 {
		return
	}
	p.log(p.prefix() + " - CancelAll - " + Describe(ids, false))
	p.notifier.notify(EventCancelAll, "", ids)
}

// Cancel cancels the effect registered under id. Unknown ids are ignored.
func (p *Processor[S, A, P]) Cancel(id string) {
	if p.registry.Cancel(id) {
		p.notifier.notify(EventEffectCanceled, id, nil)
	}
}

// EffectIDs returns the ids of registered effects, sorted.
func (p *Processor[S, A, P]) EffectIDs() []string {
	return p.registry.IDs()
}

// Wait blocks until no effect is in flight, including effects started by
// values that other effects fed back. Returns ctx.Err() if ctx ends first and
// ErrClosed if the Processor is closed.
func (p *Processor[S, A, P]) Wait(ctx context.Context) error {
	for {
		if p.closed.Load() {
			return ErrClosed
		}

		p.flightMu.Lock()
		if p.inflight == 0 {
			p.flightMu.Unlock()
			return nil
		}
		idle := p.idle
		p.flightMu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		case <-p.ctx.Done():
			return ErrClosed
		}
	}
}

func (p *Processor[S, A, P]) beginFlight() {
	p.flightMu.Lock()
	defer p.flightMu.Unlock()

	if p.inflight == 0 {
		p.idle = make(chan struct{})
	}
	p.inflight++
}

func (p *Processor[S, A, P]) endFlight() {
	p.flightMu.Lock()
	defer p.flightMu.Unlock()

	p.inflight--
	if p.inflight == 0 {
		close(p.idle)
	}
}

// Close cancels every effect, stops the mailbox goroutine and ends all
// observation channels. After Close, State, Select and Send panic.
// Close is idempotent.
func (p *Processor[S, A, P]) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.registry.CancelAll()
		p.cancel()
		<-p.loopDone
		p.subject.close()
	})
}

func (p *Processor[S, A, P]) mustBeOpen() {
	if p.closed.Load() {
		panic(useAfterClose)
	}
}
