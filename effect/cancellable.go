package effect

import (
	"context"

	"github.com/roach88/procstate/cancellation"
)

// Cancellable returns an effect that registers a handle for id in reg when it
// is subscribed.
//
// The derived effect stops producing when the source finishes or when the
// handle is canceled through the registry. Either way the handle then removes
// itself; the last handle to leave an id purges the id.
//
// Cancellation is checked before each hand-off, but a value that passed the
// check just before Cancel was called may still reach emit afterwards. Callers
// that need a hard cut-off must re-check registration at delivery time, as the
// processor does.
func (e *Effect[P]) Cancellable(id string, reg *cancellation.Registry) *Effect[P] {
	return &Effect[P]{
		subscribe: func(ctx context.Context, emit Emit[P]) func() {
			cctx, cancel := context.WithCancel(ctx)
			h := cancellation.NewHandle(cancel)
			reg.Insert(id, h)

			run := e.subscribe(cctx, func(v P) {
				if h.Canceled() || cctx.Err() != nil {
					return
				}
				emit(v)
			})

			return func() {
				defer reg.Remove(id, h)
				if h.Canceled() {
					return
				}
				run()
			}
		},
	}
}
