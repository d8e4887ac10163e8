package scenario

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/procstate/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []trace.Record
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, r := range e.Trace {
		if r.Value == "" {
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s %s\n", r.Seq, r.Kind, r.Value)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns failure messages.
func EvaluateAssertions(records []trace.Record, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(records, a)
		case AssertTraceCount:
			err = assertTraceCount(records, a)
		case AssertTraceOrder:
			err = assertTraceOrder(records, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func matches(r trace.Record, a Assertion) bool {
	if a.Kind != "" && string(r.Kind) != a.Kind {
		return false
	}
	if a.Value != "" && r.Value != a.Value {
		return false
	}
	return true
}

func describe(a Assertion) string {
	parts := []string{}
	if a.Kind != "" {
		parts = append(parts, "kind "+a.Kind)
	}
	if a.Value != "" {
		parts = append(parts, fmt.Sprintf("value %q", a.Value))
	}
	return strings.Join(parts, " with ")
}

func assertTraceContains(records []trace.Record, a Assertion) error {
	for _, r := range records {
		if matches(r, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    records,
	}
}

func assertTraceCount(records []trace.Record, a Assertion) error {
	n := 0
	for _, r := range records {
		if matches(r, a) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d x %s", a.Count, describe(a)),
		Actual:   fmt.Sprintf("%d occurrences", n),
		Trace:    records,
	}
}

// assertTraceOrder checks that values appear in order among records of the
// given kind. Intervening records are allowed.
func assertTraceOrder(records []trace.Record, a Assertion) error {
	next := 0
	for _, r := range records {
		if next == len(a.Values) {
			break
		}
		if a.Kind != "" && string(r.Kind) != a.Kind {
			continue
		}
		if r.Value == a.Values[next] {
			next++
		}
	}
	if next == len(a.Values) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Values, " -> "),
		Actual:   fmt.Sprintf("matched %d of %d (missing %q)", next, len(a.Values), a.Values[next]),
		Trace:    records,
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
