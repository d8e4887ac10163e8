package testutil

import (
	"sync"

	"github.com/roach88/procstate/processor"
)

// Collector is a processor.Observer that keeps every event in memory.
type Collector struct {
	mu     sync.Mutex
	events []processor.Event
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// OnEvent implements processor.Observer.
func (c *Collector) OnEvent(e processor.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []processor.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]processor.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Kinds returns the kind of each collected event in order.
func (c *Collector) Kinds() []processor.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]processor.EventKind, len(c.events))
	for i, e := range c.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns how many events of the given kind were collected.
func (c *Collector) Count(kind processor.EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset discards collected events.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
