package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/procstate/internal/trace"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestRecord(processorID string, seq int64, kind, value string) trace.Record {
	return trace.Record{
		ProcessorID: processorID,
		Seq:         seq,
		Kind:        trace.Kind(kind),
		Value:       value,
	}
}
