package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/procstate/processor"
)

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"counter", "search"}, Names())

	d, err := Lookup("counter")
	require.NoError(t, err)
	assert.Contains(t, d.Actions, CounterIncrementLater)

	_, err = Lookup("nope")
	assert.ErrorContains(t, err, `unknown domain "nope"`)
}

func TestDriver_Counter(t *testing.T) {
	d, err := Lookup("counter")
	require.NoError(t, err)

	drv := d.New(quiet(), processor.WithID("counter-1"))
	defer drv.Close()

	assert.Equal(t, "counter-1", drv.ID())
	require.NoError(t, drv.Send("increment", Args{"amount": 2}))
	require.NoError(t, drv.Send("incrementLater", Args{"delay": "1ms"}))
	assert.Error(t, drv.Send("bogus", nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, drv.Wait(ctx))

	assert.Equal(t, map[string]any{"count": 3, "pending": 0}, drv.Fields())
	assert.Empty(t, drv.EffectIDs())
}

func TestDriver_SearchFields(t *testing.T) {
	d, err := Lookup("search")
	require.NoError(t, err)

	drv := d.New(quiet())
	defer drv.Close()

	require.NoError(t, drv.Send("query", Args{"q": "cherry"}))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, drv.Wait(ctx))

	fields := drv.Fields()
	assert.Equal(t, []string{"cherry"}, fields["results"])
	assert.Equal(t, 1, fields["requests"])
}

func TestArgs(t *testing.T) {
	args := Args{"n": int64(3), "f": 2.0, "bad": 2.5, "s": "7", "name": "x", "d": "10ms"}

	n, err := args.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = args.Int("f", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = args.Int("bad", 0)
	assert.Error(t, err)

	n, err = args.Int("s", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = args.Int("missing", 9)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	_, err = args.String("n", "")
	assert.Error(t, err)

	d, err := args.Duration("d", 0)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, d)
}
