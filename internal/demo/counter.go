package demo

import (
	"fmt"
	"time"

	"github.com/roach88/procstate/effect"
	"github.com/roach88/procstate/processor"
)

// CounterState is the state of the counter domain.
type CounterState struct {
	Count   int
	Pending int
}

// Counter action kinds.
const (
	CounterIncrement      = "increment"
	CounterDecrement      = "decrement"
	CounterReset          = "reset"
	CounterIncrementLater = "incrementLater"
	CounterCountTo        = "countTo"
)

// CounterAction is an external counter action.
type CounterAction struct {
	Kind   string
	Amount int
	Delay  time.Duration
}

func (a CounterAction) String() string { return a.Kind }

// CounterPrivate is the private action the counter reduces.
type CounterPrivate struct {
	Kind   string
	Amount int
	Delay  time.Duration
}

func (p CounterPrivate) String() string {
	if p.Amount != 0 {
		return fmt.Sprintf("%s(%d)", p.Kind, p.Amount)
	}
	return p.Kind
}

const (
	counterAdd      = "add"
	counterSet      = "set"
	counterSchedule = "schedule"
	counterDelayed  = "delayedIncrement"
	counterStartTo  = "startCount"
)

// CounterReducer reduces counter actions.
//
// incrementLater schedules a single delayed increment; countTo streams one
// increment per step until Count reaches the target.
var CounterReducer = processor.NewReducer(transformCounter, reduceCounter)

func transformCounter(a CounterAction) CounterPrivate {
	switch a.Kind {
	case CounterIncrement:
		return CounterPrivate{Kind: counterAdd, Amount: max(a.Amount, 1)}
	case CounterDecrement:
		return CounterPrivate{Kind: counterAdd, Amount: -max(a.Amount, 1)}
	case CounterReset:
		return CounterPrivate{Kind: counterSet}
	case CounterIncrementLater:
		return CounterPrivate{Kind: counterSchedule, Delay: a.Delay}
	case CounterCountTo:
		return CounterPrivate{Kind: counterStartTo, Amount: a.Amount}
	default:
		return CounterPrivate{Kind: a.Kind}
	}
}

func reduceCounter(s *CounterState, p CounterPrivate) *effect.Effect[CounterPrivate] {
	switch p.Kind {
	case counterAdd:
		s.Count += p.Amount
	case counterSet:
		s.Count = p.Amount
	case counterSchedule:
		s.Pending++
		return effect.Delay(p.Delay, CounterPrivate{Kind: counterDelayed})
	case counterDelayed:
		s.Pending--
		s.Count++
	case counterStartTo:
		if p.Amount <= s.Count {
			return nil
		}
		steps := make([]CounterPrivate, p.Amount-s.Count)
		for i := range steps {
			steps[i] = CounterPrivate{Kind: counterAdd, Amount: 1}
		}
		return effect.Sequence(steps...)
	}
	return nil
}

// NewCounter starts a counter processor at zero.
func NewCounter(opts ...processor.Option) *processor.Processor[CounterState, CounterAction, CounterPrivate] {
	return processor.New[CounterState, CounterAction, CounterPrivate](CounterState{}, CounterReducer, opts...)
}

func parseCounterAction(name string, args Args) (CounterAction, error) {
	switch name {
	case CounterIncrement, CounterDecrement, CounterCountTo:
		amount, err := args.Int("amount", 0)
		if err != nil {
			return CounterAction{}, err
		}
		return CounterAction{Kind: name, Amount: amount}, nil
	case CounterReset:
		return CounterAction{Kind: name}, nil
	case CounterIncrementLater:
		delay, err := args.Duration("delay", 10*time.Millisecond)
		if err != nil {
			return CounterAction{}, err
		}
		return CounterAction{Kind: name, Delay: delay}, nil
	default:
		return CounterAction{}, fmt.Errorf("counter: unknown action %q", name)
	}
}

func counterFields(s CounterState) map[string]any {
	return map[string]any{
		"count":   s.Count,
		"pending": s.Pending,
	}
}

func init() {
	register(Domain{
		Name:        "counter",
		Description: "integer counter with delayed and streamed increments",
		Actions:     []string{CounterIncrement, CounterDecrement, CounterReset, CounterIncrementLater, CounterCountTo},
		New: func(opts ...processor.Option) Driver {
			return &driver[CounterState, CounterAction, CounterPrivate]{
				p:      NewCounter(opts...),
				parse:  parseCounterAction,
				fields: counterFields,
			}
		},
	})
}
