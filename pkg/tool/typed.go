package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// TypedHandler is a handler that receives its arguments decoded into a Go value.
type TypedHandler[In any] func(ctx context.Context, input In, ec ExecutionContext) (Result, error)

// NewTyped creates a Tool whose input schema is inferred from In.
// The validated arguments are decoded into In before fn is called.
func NewTyped[In any](key, name, description string, fn TypedHandler[In]) (Tool, error) {
	s, err := jsonschema.For[In](nil)
	if err != nil {
		return Tool{}, fmt.Errorf("failed to infer input schema for tool %s: %w", name, err)
	}
	h := func(ctx context.Context, input map[string]any, ec ExecutionContext) (Result, error) {
		var in In
		raw, err := json.Marshal(input)
		if err != nil {
			return Result{}, fmt.Errorf("failed to encode arguments: %w", err)
		}
		if err := json.Unmarshal(raw, &in); err != nil {
			return Result{}, fmt.Errorf("failed to decode arguments: %w", err)
		}
		return fn(ctx, in, ec)
	}
	return Tool{
		Key:         key,
		Name:        name,
		Description: description,
		InputSchema: s,
		Handler:     h,
	}, nil
}
