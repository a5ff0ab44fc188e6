package builtin

import (
	"context"
	"errors"
	"testing"

	"github.com/skedyul/toolserver/pkg/testhelpers"
	"github.com/skedyul/toolserver/pkg/tool"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry()
	testhelpers.AssertNoError(t, err)
	testhelpers.AssertEqual(t, []string{"echo", "calculate"}, r.Names())

	calc, ok := r.Lookup("calculate")
	testhelpers.AssertTrue(t, ok, "expected calculate to be registered")
	testhelpers.AssertEqual(t, 4, len(calc.InputSchema.Properties["op"].Enum))
	testhelpers.AssertNotNil(t, calc.OutputSchema)
}

func TestEcho(t *testing.T) {
	tests := []struct {
		name        string
		input       EchoInput
		mode        tool.Mode
		wantMessage string
		wantCredits float64
	}{
		{"value in execute mode", EchoInput{Value: "hi"}, tool.ModeExecute, "execute: hi", 2},
		{"value in estimate mode", EchoInput{Value: "hi-est"}, tool.ModeEstimate, "estimate: hi-est", 6},
		{"message only is free", EchoInput{Message: "hello"}, tool.ModeExecute, "execute: hello", 0},
		{"value wins over message", EchoInput{Value: "a", Message: "b"}, tool.ModeExecute, "execute: a", 1},
		{"credits count characters", EchoInput{Value: "héllo"}, tool.ModeExecute, "execute: héllo", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := runEcho(context.Background(), tt.input, tool.ExecutionContext{Mode: tt.mode})
			testhelpers.AssertNoError(t, err)
			out := res.Output.(map[string]any)
			testhelpers.AssertEqual(t, any(tt.wantMessage), out["message"])
			testhelpers.AssertEqual(t, tt.wantCredits, res.Billing.Credits)
		})
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name        string
		input       CalculateInput
		mode        tool.Mode
		wantResult  float64
		wantCredits float64
		wantErr     error
	}{
		{"add", CalculateInput{A: 2, B: 3, Op: "add"}, tool.ModeExecute, 5, 1, nil},
		{"sub", CalculateInput{A: 2, B: 3, Op: "sub"}, tool.ModeExecute, -1, 1, nil},
		{"mul", CalculateInput{A: 2, B: 3, Op: "mul"}, tool.ModeExecute, 6, 1, nil},
		{"div", CalculateInput{A: 3, B: 2, Op: "div"}, tool.ModeExecute, 1.5, 1, nil},
		{"estimate is free", CalculateInput{A: 2, B: 3, Op: "add"}, tool.ModeEstimate, 5, 0, nil},
		{"division by zero", CalculateInput{A: 1, B: 0, Op: "div"}, tool.ModeExecute, 0, 0, ErrDivisionByZero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := runCalculate(context.Background(), tt.input, tool.ExecutionContext{Mode: tt.mode})
			if tt.wantErr != nil {
				testhelpers.AssertTrue(t, errors.Is(err, tt.wantErr), "unexpected error: "+errString(err))
				return
			}
			testhelpers.AssertNoError(t, err)
			out := res.Output.(map[string]any)
			testhelpers.AssertEqual(t, any(tt.wantResult), out["result"])
			testhelpers.AssertEqual(t, tt.wantCredits, res.Billing.Credits)
		})
	}
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
