package processor

import (
	"context"
	"sync"
)

// subject holds the latest state and broadcasts every change.
//
// Each subscriber gets its own unbounded queue and pump goroutine, so a slow
// reader never blocks dispatch and never misses an intermediate value.
type subject[S any] struct {
	mu     sync.Mutex
	value  S
	subs   map[uint64]*queue[S]
	nextID uint64
	done   chan struct{}
	closed bool
}

func newSubject[S any](initial S) *subject[S] {
	return &subject[S]{
		value: initial,
		subs:  make(map[uint64]*queue[S]),
		done:  make(chan struct{}),
	}
}

func (s *subject[S]) load() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *subject[S]) publish(v S) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = v
	if s.closed {
		return
	}
	for _, q := range s.subs {
		q.Enqueue(v)
	}
}

// subscribe returns a channel that yields the current value, then every
// published value. It closes when ctx ends or the subject is closed.
func (s *subject[S]) subscribe(ctx context.Context) <-chan S {
	out := make(chan S)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(out)
		return out
	}
	id := s.nextID
	s.nextID++
	q := newQueue[S]()
	q.Enqueue(s.value)
	s.subs[id] = q
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			q.Close()
			close(out)
		}()

		for {
			if v, ok := q.TryDequeue(); ok {
				select {
				case out <- v:
				case <-ctx.Done():
					return
				case <-s.done:
					return
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-q.Wait():
			}
		}
	}()

	return out
}

func (s *subject[S]) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *subject[S]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
