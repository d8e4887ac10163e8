package processor

import "github.com/roach88/procstate/effect"

// Reducer turns actions into private actions and applies private actions to
// state.
//
// Transform must be pure and total. Reduce may mutate state freely and
// returns nil when there is no follow-up work, or an effect whose values are
// fed back into the same Processor. Neither step can fail; domain errors are
// modeled as private actions.
type Reducer[S, A, P any] interface {
	Transform(action A) P
	Reduce(state *S, action P) *effect.Effect[P]
}

// FuncReducer is a Reducer built from two closures.
type FuncReducer[S, A, P any] struct {
	transform func(A) P
	reduce    func(*S, P) *effect.Effect[P]
}

// NewReducer creates a closure-based reducer.
func NewReducer[S, A, P any](transform func(A) P, reduce func(*S, P) *effect.Effect[P]) FuncReducer[S, A, P] {
	return FuncReducer[S, A, P]{transform: transform, reduce: reduce}
}

func (r FuncReducer[S, A, P]) Transform(action A) P {
	return r.transform(action)
}

func (r FuncReducer[S, A, P]) Reduce(state *S, action P) *effect.Effect[P] {
	return r.reduce(state, action)
}

// EnvReducer is a reducer whose Reduce step is parameterized by an
// environment of collaborators (clients, clocks, stores).
type EnvReducer[S, A, P, E any] struct {
	Transform func(A) P
	Reduce    func(*S, P, E) *effect.Effect[P]
}

// Bind fixes env into the reduce step. The result behaves exactly like a
// closure-based reducer.
func (r EnvReducer[S, A, P, E]) Bind(env E) FuncReducer[S, A, P] {
	reduce := r.Reduce
	return NewReducer(r.Transform, func(state *S, action P) *effect.Effect[P] {
		return reduce(state, action, env)
	})
}
