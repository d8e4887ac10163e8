package scenario

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/procstate/internal/demo"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError reports a scenario that parsed but is not runnable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// LoadScenario reads a scenario file. The format is chosen by extension:
// .yaml/.yml are decoded strictly, .cue is unified with the scenario schema.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields, or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sc *Scenario
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		sc, err = ParseYAML(data)
	case ".cue":
		sc, err = ParseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported scenario extension %q (want .yaml, .yml or .cue)", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := Validate(sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

// ParseYAML decodes a YAML scenario, rejecting unknown fields.
func ParseYAML(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &sc, nil
}

// ParseCUE compiles a CUE scenario and unifies it with the #Scenario schema.
// The filename is used in error positions only.
func ParseCUE(filename string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("scenario does not match schema: %w", err)
	}

	var sc Scenario
	if err := unified.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &sc, nil
}

// Validate checks that required fields are present and every step and
// assertion is well formed.
func Validate(s *Scenario) error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if s.Description == "" {
		return &ValidationError{Field: "description", Message: "is required"}
	}
	if s.Domain == "" {
		return &ValidationError{Field: "domain", Message: "is required"}
	}
	if _, err := demo.Lookup(s.Domain); err != nil {
		return &ValidationError{Field: "domain", Message: err.Error()}
	}
	if len(s.Steps) == 0 {
		return &ValidationError{Field: "steps", Message: "list is required and must be non-empty"}
	}

	for i, step := range s.Steps {
		set := 0
		if step.Send != "" {
			set++
		}
		if step.Wait {
			set++
		}
		if step.CancelAll {
			set++
		}
		field := fmt.Sprintf("steps[%d]", i)
		if set != 1 {
			return &ValidationError{Field: field, Message: "exactly one of send, wait or cancel_all is required"}
		}
		if step.Args != nil && step.Send == "" {
			return &ValidationError{Field: field, Message: "args are only allowed with send"}
		}
	}

	if s.Expect != nil && s.Expect.Effects != nil && *s.Expect.Effects < 0 {
		return &ValidationError{Field: "expect.effects", Message: "must be non-negative"}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}

	return nil
}

func validateAssertion(index int, a Assertion) error {
	field := fmt.Sprintf("assertions[%d]", index)
	switch a.Type {
	case "":
		return &ValidationError{Field: field, Message: "type is required"}
	case AssertTraceContains:
		if a.Kind == "" && a.Value == "" {
			return &ValidationError{Field: field, Message: "trace_contains requires kind or value"}
		}
	case AssertTraceCount:
		if a.Kind == "" && a.Value == "" {
			return &ValidationError{Field: field, Message: "trace_count requires kind or value"}
		}
		if a.Count < 0 {
			return &ValidationError{Field: field, Message: "count must be non-negative"}
		}
	case AssertTraceOrder:
		if len(a.Values) < 2 {
			return &ValidationError{Field: field, Message: "trace_order requires at least 2 values"}
		}
	default:
		return &ValidationError{Field: field, Message: fmt.Sprintf("unknown assertion type %q", a.Type)}
	}
	return nil
}
