package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[S any](t *testing.T, ch <-chan S) S {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed early")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero S
	return zero
}

func TestSubject_ReplaysCurrentThenChanges(t *testing.T) {
	s := newSubject(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.subscribe(ctx)
	s.publish(2)
	s.publish(3)

	assert.Equal(t, 1, receive(t, ch))
	assert.Equal(t, 2, receive(t, ch))
	assert.Equal(t, 3, receive(t, ch))
	assert.Equal(t, 3, s.load())
}

func TestSubject_SlowReaderSeesEveryChange(t *testing.T) {
	s := newSubject(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.subscribe(ctx)
	for i := 1; i <= 100; i++ {
		s.publish(i)
	}

	for i := 0; i <= 100; i++ {
		assert.Equal(t, i, receive(t, ch))
	}
}

func TestSubject_UnsubscribesOnContextEnd(t *testing.T) {
	s := newSubject("a")
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.subscribe(ctx)
	assert.Equal(t, "a", receive(t, ch))
	assert.Equal(t, 1, s.subscribers())

	cancel()
	for range ch {
	}
	assert.Equal(t, 0, s.subscribers())
}

func TestSubject_SubscribeAfterClose(t *testing.T) {
	s := newSubject(0)
	s.close()
	s.close()

	_, ok := <-s.subscribe(context.Background())
	assert.False(t, ok)

	// publish after close still updates the value for load
	s.publish(5)
	assert.Equal(t, 5, s.load())
}
