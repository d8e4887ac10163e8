package demo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/procstate/processor"
)

// countingClient records every query it receives.
type countingClient struct {
	mu      sync.Mutex
	queries []string
	inner   Client
}

func (c *countingClient) Search(ctx context.Context, query string) ([]string, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()
	return c.inner.Search(ctx, query)
}

func (c *countingClient) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

func TestSearch_ReturnsResults(t *testing.T) {
	p := NewSearch(SearchEnv{Client: DefaultCatalog, Debounce: 50 * time.Millisecond}, quiet())
	defer p.Close()

	p.Send(SearchAction{Kind: SearchQuery, Query: "ap"})
	assert.True(t, p.State().Loading)

	waitFor(t, p.Wait)
	st := p.State()
	assert.False(t, st.Loading)
	assert.Equal(t, []string{"apple", "apricot", "grape", "grapefruit"}, st.Results)
	assert.Equal(t, 1, st.Requests)
}

func TestSearch_LatestQueryWins(t *testing.T) {
	client := &countingClient{inner: DefaultCatalog}
	p := NewSearch(SearchEnv{Client: client, Debounce: 50 * time.Millisecond}, quiet())
	defer p.Close()

	p.Send(SearchAction{Kind: SearchQuery, Query: "b"})
	p.Send(SearchAction{Kind: SearchQuery, Query: "bl"})
	p.Send(SearchAction{Kind: SearchQuery, Query: "bla"})

	waitFor(t, p.Wait)
	assert.Equal(t, []string{"bla"}, client.seen())
	assert.Equal(t, []string{"blackberry"}, p.State().Results)
	assert.Equal(t, 1, p.State().Requests)
}

func TestSearch_SlowResponseCanceledBySecondQuery(t *testing.T) {
	slow := CatalogClient{Items: DefaultCatalog.Items, Latency: time.Hour}
	p := NewSearch(SearchEnv{Client: slow}, quiet())
	defer p.Close()

	p.Send(SearchAction{Kind: SearchQuery, Query: "cherry"})
	p.Send(SearchAction{Kind: SearchClear})

	waitFor(t, p.Wait)
	assert.Equal(t, SearchState{}, p.State())
}

func TestSearch_FailureFoldedIntoState(t *testing.T) {
	p := NewSearch(SearchEnv{Client: DefaultCatalog}, quiet())
	defer p.Close()

	p.Send(SearchAction{Kind: SearchQuery, Query: "error"})
	waitFor(t, p.Wait)

	st := p.State()
	assert.Contains(t, st.Err, ErrSearchUnavailable.Error())
	assert.Nil(t, st.Results)
	assert.False(t, st.Loading)
}

func TestSearch_MissingClient(t *testing.T) {
	p := NewSearch(SearchEnv{}, quiet())
	defer p.Close()

	p.Send(SearchAction{Kind: SearchQuery, Query: "x"})
	waitFor(t, p.Wait)
	assert.Equal(t, "no search client configured", p.State().Err)
}

func TestSearch_EmptyQueryClearsWithoutRequest(t *testing.T) {
	p := NewSearch(SearchEnv{Client: DefaultCatalog}, quiet())
	defer p.Close()

	p.Send(SearchAction{Kind: SearchQuery, Query: "   "})
	assert.Empty(t, p.EffectIDs())
	assert.False(t, p.State().Loading)
}

func TestSearch_AutoCancelCanBeDisabled(t *testing.T) {
	client := &countingClient{inner: DefaultCatalog}
	p := NewSearch(SearchEnv{Client: client, Debounce: 5 * time.Millisecond}, quiet(),
		processor.WithAutoCancelLatestAction(false))
	defer p.Close()

	p.Send(SearchAction{Kind: SearchQuery, Query: "a"})
	p.Send(SearchAction{Kind: SearchQuery, Query: "b"})
	waitFor(t, p.Wait)

	assert.ElementsMatch(t, []string{"a", "b"}, client.seen())
	assert.Equal(t, 2, p.State().Requests)
}

func TestCatalogClient_HonorsCancellation(t *testing.T) {
	c := CatalogClient{Latency: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, "x")
	assert.True(t, errors.Is(err, context.Canceled))
}
