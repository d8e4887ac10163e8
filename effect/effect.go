// Package effect models asynchronous work that feeds values back into a
// processor.
//
// An Effect produces zero or more values over time and then finishes. It has
// no failure channel: producers that can fail must map the failure into an
// ordinary value (see Catch and Fold). Effects are lazy; nothing runs until
// Subscribe or Run is called.
//
// Producers receive a context that is canceled when the subscription is
// canceled and must return promptly once it is. Values passed to emit are
// delivered in the order they were emitted.
package effect

import (
	"context"
	"sync"
	"time"
)

// Emit hands a produced value downstream.
type Emit[P any] func(P)

// Effect is a lazily started, cancellable producer of P values.
type Effect[P any] struct {
	subscribe func(ctx context.Context, emit Emit[P]) func()
}

// New wraps an arbitrary asynchronous source. fn must stop producing and
// return once ctx is done.
func New[P any](fn func(ctx context.Context, emit Emit[P])) *Effect[P] {
	return &Effect[P]{
		subscribe: func(ctx context.Context, emit Emit[P]) func() {
			return func() { fn(ctx, emit) }
		},
	}
}

// Send emits v once, without real asynchrony.
func Send[P any](v P) *Effect[P] {
	return Sequence(v)
}

// Sequence emits vs in order, stopping early if canceled.
func Sequence[P any](vs ...P) *Effect[P] {
	return New(func(ctx context.Context, emit Emit[P]) {
		for _, v := range vs {
			if ctx.Err() != nil {
				return
			}
			emit(v)
		}
	})
}

// FromChannel forwards values from ch until it is closed or the subscription
// is canceled.
func FromChannel[P any](ch <-chan P) *Effect[P] {
	return New(func(ctx context.Context, emit Emit[P]) {
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					return
				}
				emit(v)
			}
		}
	})
}

// Delay emits v after d unless canceled first.
func Delay[P any](d time.Duration, v P) *Effect[P] {
	return New(func(ctx context.Context, emit Emit[P]) {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
			emit(v)
		}
	})
}

// Catch runs fn and maps its outcome, success or failure, to a single value.
// Nothing is emitted if the subscription was canceled while fn ran.
func Catch[T, P any](fn func(ctx context.Context) (T, error), mapFn func(T, error) P) *Effect[P] {
	return New(func(ctx context.Context, emit Emit[P]) {
		v, err := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		emit(mapFn(v, err))
	})
}

// Fold runs fn and maps success and failure through separate functions.
func Fold[T, P any](fn func(ctx context.Context) (T, error), onSuccess func(T) P, onError func(error) P) *Effect[P] {
	return Catch(fn, func(v T, err error) P {
		if err != nil {
			return onError(err)
		}
		return onSuccess(v)
	})
}

// Map transforms every value produced by e.
func Map[P, Q any](e *Effect[P], fn func(P) Q) *Effect[Q] {
	return &Effect[Q]{
		subscribe: func(ctx context.Context, emit Emit[Q]) func() {
			return e.subscribe(ctx, func(v P) { emit(fn(v)) })
		},
	}
}

// Merge runs every effect concurrently and finishes when all of them have.
// Values from one source keep their order; values from different sources
// interleave arbitrarily. Calls to emit never overlap.
func Merge[P any](effects ...*Effect[P]) *Effect[P] {
	return &Effect[P]{
		subscribe: func(ctx context.Context, emit Emit[P]) func() {
			var mu sync.Mutex
			serial := func(v P) {
				mu.Lock()
				defer mu.Unlock()
				emit(v)
			}

			runs := make([]func(), 0, len(effects))
			for _, e := range effects {
				if e == nil {
					continue
				}
				runs = append(runs, e.subscribe(ctx, serial))
			}

			return func() {
				var wg sync.WaitGroup
				for _, run := range runs {
					wg.Add(1)
					go func(run func()) {
						defer wg.Done()
						run()
					}(run)
				}
				wg.Wait()
			}
		},
	}
}

// Take finishes the effect after its first n values have been handed off.
// Take(1) turns any source into a single-shot effect.
func (e *Effect[P]) Take(n int) *Effect[P] {
	return &Effect[P]{
		subscribe: func(ctx context.Context, emit Emit[P]) func() {
			if n <= 0 {
				return func() {}
			}

			cctx, cancel := context.WithCancel(ctx)
			var mu sync.Mutex
			seen := 0
			run := e.subscribe(cctx, func(v P) {
				mu.Lock()
				defer mu.Unlock()
				if seen >= n {
					return
				}
				seen++
				emit(v)
				if seen == n {
					cancel()
				}
			})

			return func() {
				defer cancel()
				run()
			}
		},
	}
}

// Subscribe performs the subscription synchronously and returns the function
// that drives the producer. Anything the effect does on subscription, such as
// registering a cancellation handle, has happened by the time Subscribe
// returns. Callers usually invoke run on its own goroutine.
func (e *Effect[P]) Subscribe(ctx context.Context, emit Emit[P]) (run func()) {
	return e.subscribe(ctx, emit)
}

// Run subscribes and drives the producer on the calling goroutine until it
// finishes or ctx is canceled.
func (e *Effect[P]) Run(ctx context.Context, emit Emit[P]) {
	e.subscribe(ctx, emit)()
}
