package demo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/procstate/effect"
	"github.com/roach88/procstate/processor"
)

// Client performs searches for the search domain.
type Client interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// SearchEnv holds the search domain's collaborators.
type SearchEnv struct {
	Client   Client
	Debounce time.Duration
}

// SearchState is the state of the search domain.
type SearchState struct {
	Query    string
	Results  []string
	Loading  bool
	Err      string
	Requests int
}

// Search action kinds.
const (
	SearchQuery = "query"
	SearchClear = "clear"
)

// SearchAction is an external search action.
type SearchAction struct {
	Kind  string
	Query string
}

func (a SearchAction) String() string {
	if a.Kind == SearchQuery {
		return fmt.Sprintf("query(%q)", a.Query)
	}
	return a.Kind
}

// Search private action kinds.
const (
	SearchSetQuery  = "setQuery"
	SearchResponded = "searchResponded"
	SearchFailed    = "searchFailed"
	SearchCleared   = "cleared"
)

// SearchPrivate is the private action the search domain reduces.
type SearchPrivate struct {
	Kind    string
	Query   string
	Results []string
	Err     string
}

func (p SearchPrivate) String() string {
	switch p.Kind {
	case SearchSetQuery:
		return fmt.Sprintf("setQuery(%q)", p.Query)
	case SearchResponded:
		return fmt.Sprintf("searchResponded(%d)", len(p.Results))
	case SearchFailed:
		return fmt.Sprintf("searchFailed(%s)", p.Err)
	}
	return p.Kind
}

// SearchReducer reduces search actions. A non-empty query is debounced and
// then sent to the client; failures become SearchFailed private actions.
var SearchReducer = processor.EnvReducer[SearchState, SearchAction, SearchPrivate, SearchEnv]{
	Transform: transformSearch,
	Reduce:    reduceSearch,
}

func transformSearch(a SearchAction) SearchPrivate {
	switch a.Kind {
	case SearchQuery:
		return SearchPrivate{Kind: SearchSetQuery, Query: strings.TrimSpace(a.Query)}
	default:
		return SearchPrivate{Kind: SearchCleared}
	}
}

func reduceSearch(s *SearchState, p SearchPrivate, env SearchEnv) *effect.Effect[SearchPrivate] {
	switch p.Kind {
	case SearchSetQuery:
		s.Query = p.Query
		s.Err = ""
		if p.Query == "" {
			s.Loading = false
			s.Results = nil
			return nil
		}
		s.Loading = true
		return fetch(env, p.Query)
	case SearchResponded:
		s.Loading = false
		s.Requests++
		s.Results = p.Results
	case SearchFailed:
		s.Loading = false
		s.Requests++
		s.Results = nil
		s.Err = p.Err
	case SearchCleared:
		*s = SearchState{Requests: s.Requests}
	}
	return nil
}

// fetch waits out the debounce window, then queries the client.
func fetch(env SearchEnv, query string) *effect.Effect[SearchPrivate] {
	call := effect.Fold(
		func(ctx context.Context) ([]string, error) {
			if env.Client == nil {
				return nil, errors.New("no search client configured")
			}
			return env.Client.Search(ctx, query)
		},
		func(results []string) SearchPrivate {
			return SearchPrivate{Kind: SearchResponded, Query: query, Results: results}
		},
		func(err error) SearchPrivate {
			return SearchPrivate{Kind: SearchFailed, Query: query, Err: err.Error()}
		},
	)
	if env.Debounce <= 0 {
		return call
	}
	return effect.New(func(ctx context.Context, emit effect.Emit[SearchPrivate]) {
		timer := time.NewTimer(env.Debounce)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		call.Run(ctx, emit)
	})
}

// NewSearch starts a search processor. Auto-cancel is on by default so the
// latest query wins; pass processor.WithAutoCancelLatestAction(false) to
// disable it.
func NewSearch(env SearchEnv, opts ...processor.Option) *processor.Processor[SearchState, SearchAction, SearchPrivate] {
	opts = append([]processor.Option{processor.WithAutoCancelLatestAction(true)}, opts...)
	return processor.NewWithEnvironment(SearchState{}, SearchReducer, env, opts...)
}

// CatalogClient searches a fixed list of items by case-insensitive substring.
type CatalogClient struct {
	Items []string
	// Fail lists queries that return an error.
	Fail []string
	// Latency delays each response, honoring cancellation.
	Latency time.Duration
}

// ErrSearchUnavailable is returned for queries listed in CatalogClient.Fail.
var ErrSearchUnavailable = errors.New("search unavailable")

// Search implements Client.
func (c CatalogClient) Search(ctx context.Context, query string) ([]string, error) {
	if c.Latency > 0 {
		timer := time.NewTimer(c.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	for _, f := range c.Fail {
		if f == query {
			return nil, fmt.Errorf("query %q: %w", query, ErrSearchUnavailable)
		}
	}
	q := strings.ToLower(query)
	results := []string{}
	for _, item := range c.Items {
		if strings.Contains(strings.ToLower(item), q) {
			results = append(results, item)
		}
	}
	return results, nil
}

// DefaultCatalog backs the search domain when driven by name.
var DefaultCatalog = CatalogClient{
	Items: []string{"apple", "apricot", "banana", "blackberry", "cherry", "grape", "grapefruit"},
	Fail:  []string{"error"},
}

func parseSearchAction(name string, args Args) (SearchAction, error) {
	switch name {
	case SearchQuery:
		q, err := args.String("q", "")
		if err != nil {
			return SearchAction{}, err
		}
		return SearchAction{Kind: SearchQuery, Query: q}, nil
	case SearchClear:
		return SearchAction{Kind: SearchClear}, nil
	default:
		return SearchAction{}, fmt.Errorf("search: unknown action %q", name)
	}
}

func searchFields(s SearchState) map[string]any {
	results := s.Results
	if results == nil {
		results = []string{}
	}
	return map[string]any{
		"query":    s.Query,
		"results":  results,
		"loading":  s.Loading,
		"error":    s.Err,
		"requests": s.Requests,
	}
}

func init() {
	register(Domain{
		Name:        "search",
		Description: "debounced latest-wins search over a fixed catalog",
		Actions:     []string{SearchQuery, SearchClear},
		New: func(opts ...processor.Option) Driver {
			env := SearchEnv{Client: DefaultCatalog, Debounce: 20 * time.Millisecond}
			return &driver[SearchState, SearchAction, SearchPrivate]{
				p:      NewSearch(env, opts...),
				parse:  parseSearchAction,
				fields: searchFields,
			}
		},
	})
}
