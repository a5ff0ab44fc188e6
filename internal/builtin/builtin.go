// Package builtin provides the demo tools served by the toolserver binary.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/skedyul/toolserver/pkg/tool"
)

// EchoInput is the input of the echo tool.
// Value takes precedence over Message when both are set.
type EchoInput struct {
	Value   string `json:"value,omitempty" jsonschema:"text to echo back, billed one credit per character"`
	Message string `json:"message,omitempty" jsonschema:"free text to echo back when value is not set"`
}

// CalculateInput is the input of the calculate tool.
type CalculateInput struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Op string  `json:"op" jsonschema:"the operation to apply to a and b"`
}

var calculateOps = []any{"add", "sub", "mul", "div"}

// ErrDivisionByZero is returned by the calculate tool when asked to divide by zero.
var ErrDivisionByZero = errors.New("division by zero")

// Tools returns the built-in tools in the order they are served.
func Tools() ([]tool.Tool, error) {
	echo, err := tool.NewTyped("echo", "echo", "Echoes its input back, prefixed with the invocation mode", runEcho)
	if err != nil {
		return nil, err
	}
	echo.OutputSchema = &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"message": {Type: "string"}},
		Required:   []string{"message"},
	}

	calculate, err := tool.NewTyped("calculate", "calculate", "Applies an arithmetic operation to two numbers", runCalculate)
	if err != nil {
		return nil, err
	}
	calculate.InputSchema.Properties["op"].Enum = calculateOps
	calculate.OutputSchema = &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"result": {Type: "number"}},
		Required:   []string{"result"},
	}

	return []tool.Tool{echo, calculate}, nil
}

// NewRegistry returns a registry holding the built-in tools.
func NewRegistry() (*tool.Registry, error) {
	tools, err := Tools()
	if err != nil {
		return nil, fmt.Errorf("failed to build built-in tools: %w", err)
	}
	return tool.NewRegistry(tools...)
}

func runEcho(_ context.Context, in EchoInput, ec tool.ExecutionContext) (tool.Result, error) {
	text := in.Value
	if text == "" {
		text = in.Message
	}
	return tool.Result{
		Output:  map[string]any{"message": fmt.Sprintf("%s: %s", ec.Mode, text)},
		Billing: tool.Billing{Credits: float64(utf8.RuneCountInString(in.Value))},
	}, nil
}

func runCalculate(_ context.Context, in CalculateInput, ec tool.ExecutionContext) (tool.Result, error) {
	var result float64
	switch in.Op {
	case "add":
		result = in.A + in.B
	case "sub":
		result = in.A - in.B
	case "mul":
		result = in.A * in.B
	case "div":
		if in.B == 0 {
			return tool.Result{}, ErrDivisionByZero
		}
		result = in.A / in.B
	default:
		return tool.Result{}, fmt.Errorf("unsupported operation: %s", in.Op)
	}

	credits := 1.0
	if ec.Mode == tool.ModeEstimate {
		credits = 0
	}
	return tool.Result{
		Output:  map[string]any{"result": result},
		Billing: tool.Billing{Credits: credits},
	}, nil
}
