package store

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/procstate/internal/trace"
	"github.com/roach88/procstate/processor"
)

// Recorder is a processor.Observer that persists every event.
//
// Observer callbacks cannot fail, so write errors are logged and counted
// instead of returned. Err reports the first one.
type Recorder struct {
	store  *Store
	logger *slog.Logger
	failed atomic.Int64
	first  atomic.Pointer[error]
}

// NewRecorder returns a Recorder writing to s. A nil logger uses slog.Default.
func NewRecorder(s *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, logger: logger}
}

// OnEvent implements processor.Observer.
func (r *Recorder) OnEvent(e processor.Event) {
	rec := trace.FromEvent(e)
	if err := r.store.WriteRecord(context.Background(), rec); err != nil {
		r.failed.Add(1)
		r.first.CompareAndSwap(nil, &err)
		r.logger.Error("failed to record event",
			"processor", rec.ProcessorID,
			"seq", rec.Seq,
			"kind", rec.Kind,
			"error", err)
	}
}

// Failed returns the number of events that could not be written.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	if p := r.first.Load(); p != nil {
		return *p
	}
	return nil
}
