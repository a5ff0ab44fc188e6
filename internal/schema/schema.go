// Package schema adapts google/jsonschema-go to the validation contract used by the invocation pipeline:
// a value is either accepted (possibly with defaults applied) or rejected with a list of violations.
package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/skedyul/toolserver/pkg/types"
)

// Violation describes a single reason why a value does not satisfy a schema.
type Violation = types.Violation

// ValidationError is returned when a value does not satisfy a schema.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		if v.Path == "" {
			parts[i] = v.Message
		} else {
			parts[i] = v.Path + ": " + v.Message
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator validates values against JSON schemas.
// Resolved schemas are cached by pointer, so a Validator is meant to be shared across requests.
// It is safe for concurrent use.
type Validator struct {
	resolved sync.Map // *jsonschema.Schema -> *jsonschema.Resolved
}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks input against s.
// If s is nil, input is returned unchanged.
// On success, it returns a copy of input with the schema's defaults applied.
// If input does not satisfy s, the error is a *ValidationError.
// Any other error means the schema itself is unusable.
func (v *Validator) Validate(s *jsonschema.Schema, input map[string]any) (map[string]any, error) {
	if s == nil {
		return input, nil
	}
	rs, err := v.resolve(s)
	if err != nil {
		return nil, err
	}

	if input == nil {
		input = map[string]any{}
	}
	if violations := v.collect(s, rs, input); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	validated, _ := deepCopy(input).(map[string]any)
	if err := rs.ApplyDefaults(&validated); err != nil {
		return nil, fmt.Errorf("failed to apply schema defaults: %w", err)
	}
	return validated, nil
}

// ValidateOutput checks a tool's output against s and returns the violations, if any.
// Output validation is advisory, so problems with the schema itself are reported as violations too.
func (v *Validator) ValidateOutput(s *jsonschema.Schema, output any) []Violation {
	if s == nil {
		return nil
	}
	rs, err := v.resolve(s)
	if err != nil {
		return []Violation{{Message: err.Error()}}
	}

	// handlers may return arbitrary Go values; validate what the caller will actually receive
	normalized, err := normalize(output)
	if err != nil {
		return []Violation{{Message: fmt.Sprintf("output is not JSON-serializable: %v", err)}}
	}
	return v.collect(s, rs, normalized)
}

func (v *Validator) resolve(s *jsonschema.Schema) (*jsonschema.Resolved, error) {
	if cached, ok := v.resolved.Load(s); ok {
		return cached.(*jsonschema.Resolved), nil
	}
	rs, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema: %w", err)
	}
	actual, _ := v.resolved.LoadOrStore(s, rs)
	return actual.(*jsonschema.Resolved), nil
}

// collect validates value and breaks a failure down into per-property violations where possible.
// jsonschema-go stops at the first failure, so each top-level property is checked separately
// to report every offending field at once.
func (v *Validator) collect(s *jsonschema.Schema, rs *jsonschema.Resolved, value any) []Violation {
	rootErr := rs.Validate(value)
	if rootErr == nil {
		return nil
	}

	var violations []Violation
	if obj, ok := value.(map[string]any); ok {
		for _, name := range s.Required {
			if _, present := obj[name]; !present {
				violations = append(violations, Violation{Path: name, Message: "missing required property"})
			}
		}
		for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
			val, present := obj[name]
			if !present {
				continue
			}
			sub, err := v.resolve(s.Properties[name])
			if err != nil {
				// sub-schemas that reference definitions of the root can't be resolved on their own
				continue
			}
			if err := sub.Validate(val); err != nil {
				violations = append(violations, Violation{Path: name, Message: cleanMessage(err)})
			}
		}
	}

	if len(violations) == 0 {
		violations = append(violations, Violation{Message: cleanMessage(rootErr)})
	}
	return violations
}

// cleanMessage strips the "validating <schema>: " prefixes jsonschema-go adds at every level.
func cleanMessage(err error) string {
	msg := err.Error()
	for strings.HasPrefix(msg, "validating ") {
		i := strings.Index(msg, ": ")
		if i < 0 {
			break
		}
		msg = msg[i+2:]
	}
	return msg
}

func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		c := make(map[string]any, len(v))
		for k, e := range v {
			c[k] = deepCopy(e)
		}
		return c
	case []any:
		c := make([]any, len(v))
		for i, e := range v {
			c[i] = deepCopy(e)
		}
		return c
	default:
		return v
	}
}
