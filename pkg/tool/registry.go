package tool

import (
	"errors"
	"fmt"
)

// Registry is an ordered, immutable collection of tools.
// Tools are kept in insertion order and resolved by their Name.
type Registry struct {
	tools []Tool

	// byName maps a tool's invocation name to its position in tools
	byName map[string]int
	// byKey maps a tool's registry key to its position in tools
	byKey map[string]int
}

// NewRegistry builds a registry from the given tools, preserving their order.
// It rejects tools without a name or handler and duplicate keys or names.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{
		tools:  make([]Tool, 0, len(tools)),
		byName: make(map[string]int, len(tools)),
		byKey:  make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if t.Name == "" {
			return nil, errors.New("tool name must not be empty")
		}
		if t.Handler == nil {
			return nil, fmt.Errorf("tool %s has no handler", t.Name)
		}
		if t.Key == "" {
			t.Key = t.Name
		}
		if _, exists := r.byKey[t.Key]; exists {
			return nil, fmt.Errorf("duplicate tool key: %s", t.Key)
		}
		if _, exists := r.byName[t.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s (key %s)", t.Name, t.Key)
		}
		r.byKey[t.Key] = len(r.tools)
		r.byName[t.Name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
// It is meant for statically declared tool sets.
func MustNewRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the tool registered under the given invocation name.
// Registry keys are never consulted.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Tools returns a copy of all tools in insertion order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Names returns the invocation names of all tools in insertion order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}
