// Package tool defines the tool record served by toolserver and the ordered registry that holds them.
package tool

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Mode selects whether a tool performs its real work or only computes what that work would cost.
type Mode string

const (
	// ModeExecute runs the tool for real.
	ModeExecute Mode = "execute"
	// ModeEstimate asks the tool to compute its cost, ideally without side effects.
	ModeEstimate Mode = "estimate"
)

// ValidateMode returns the Mode matching the input string.
// An empty input defaults to ModeExecute.
func ValidateMode(input string) (Mode, error) {
	switch input {
	case string(ModeExecute), "":
		return ModeExecute, nil
	case string(ModeEstimate):
		return ModeEstimate, nil
	default:
		return "", fmt.Errorf(
			"unsupported mode: %s (acceptable values: '%s', '%s')", input, ModeExecute, ModeEstimate,
		)
	}
}

// Env is a read-only snapshot of environment variables handed to a tool handler.
// A handler's view of the environment cannot change while it runs.
type Env struct {
	vars map[string]string
}

// NewEnv copies vars into a new Env.
func NewEnv(vars map[string]string) Env {
	c := make(map[string]string, len(vars))
	for k, v := range vars {
		c[k] = v
	}
	return Env{vars: c}
}

// Lookup returns the value of key and whether it was set.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Get returns the value of key, or an empty string if it is not set.
func (e Env) Get(key string) string {
	return e.vars[key]
}

// Len returns the number of variables in the snapshot.
func (e Env) Len() int {
	return len(e.vars)
}

// ExecutionContext is constructed fresh for every invocation and never shared between calls.
type ExecutionContext struct {
	Env  Env
	Mode Mode
}

// Billing is the cost of a single invocation, as reported by the tool itself.
type Billing struct {
	Credits float64 `json:"credits"`
}

// Result is what a handler returns on success.
type Result struct {
	Output  any
	Billing Billing
}

// Handler implements a tool.
// Returning an error (or panicking) marks the call as failed; it never crashes the server.
type Handler func(ctx context.Context, input map[string]any, ec ExecutionContext) (Result, error)

// Tool is a named operation exposed for remote invocation.
type Tool struct {
	// Key uniquely identifies the tool inside the registry. Defaults to Name when empty.
	Key string

	// Name is the name callers use to invoke the tool.
	// It must be unique across the registry even when it differs from Key.
	Name string

	Description string

	// InputSchema describes the arguments accepted by the tool.
	// If nil, any arguments are accepted as-is.
	InputSchema *jsonschema.Schema

	// OutputSchema describes the output produced by the tool.
	// Output validation is advisory only.
	OutputSchema *jsonschema.Schema

	Handler Handler
}
