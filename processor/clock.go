package processor

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Clock is a monotonic logical clock stamping observer events.
//
// Sequence numbers order events within one Processor; they never use wall
// time. Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// IDGenerator mints identifiers for processors and effects.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Stateless and safe for concurrent use. Panics if the system random source
// fails.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
