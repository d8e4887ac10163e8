package scenario

import (
	"github.com/roach88/procstate/internal/trace"
)

// Scenario is a scripted processor session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description" json:"description"`

	// Domain selects the demo domain (see demo.Names).
	Domain string `yaml:"domain" json:"domain"`

	// ProcessorID fixes the Processor id. Defaults to "scenario-<name>".
	ProcessorID string `yaml:"processor_id,omitempty" json:"processor_id,omitempty"`

	// AutoCancel overrides the domain's auto-cancel default when set.
	AutoCancel *bool `yaml:"auto_cancel,omitempty" json:"auto_cancel,omitempty"`

	Steps      []Step      `yaml:"steps" json:"steps"`
	Expect     *Expect     `yaml:"expect,omitempty" json:"expect,omitempty"`
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// Step is one scenario step. Exactly one of Send, Wait or CancelAll is set.
type Step struct {
	Send      string         `yaml:"send,omitempty" json:"send,omitempty"`
	Args      map[string]any `yaml:"args,omitempty" json:"args,omitempty"`
	Wait      bool           `yaml:"wait,omitempty" json:"wait,omitempty"`
	CancelAll bool           `yaml:"cancel_all,omitempty" json:"cancel_all,omitempty"`
}

// Expect holds checks against the final state.
type Expect struct {
	// Fields is a subset match against the domain's projected fields.
	Fields map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`

	// Effects is the expected number of registered effects.
	Effects *int `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// Assertion validates the event trace.
type Assertion struct {
	// Type is one of trace_contains, trace_count, trace_order.
	Type string `yaml:"type" json:"type"`

	// Kind filters records by event kind.
	Kind string `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Value filters records by rendered value (trace_contains, trace_count).
	Value string `yaml:"value,omitempty" json:"value,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Values must appear in this order, not necessarily adjacent (trace_order).
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertTraceOrder    = "trace_order"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	ProcessorID string `json:"processor_id"`

	// Trace holds every observed event in Seq order.
	Trace []trace.Record `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the domain's projected final state.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Record{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
