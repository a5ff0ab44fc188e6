package invocation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/skedyul/toolserver/internal/model"
	"github.com/skedyul/toolserver/internal/schema"
	"github.com/skedyul/toolserver/internal/telemetry"
	"github.com/skedyul/toolserver/pkg/tool"
	"github.com/skedyul/toolserver/pkg/types"
	"go.uber.org/zap"
)

// InvokeRequest describes a single tool call.
type InvokeRequest struct {
	// Name is the invocation name of the tool. Registry keys are never matched.
	Name string

	// Arguments is the raw JSON arguments object. Empty or null means no arguments.
	Arguments json.RawMessage

	Mode tool.Mode

	// Env is copied into the call's execution context.
	Env map[string]string

	// Count increments the health tracker's request counter once the handler has been reached.
	Count bool
}

// Outcome is the result of a call that reached the tool's handler.
// A failing handler does not produce an error; it produces an Outcome with Failed set.
type Outcome struct {
	InvocationID string
	Tool         string
	Mode         tool.Mode

	Output  any
	Billing tool.Billing

	Failed       bool
	HandlerError string

	// Warnings lists the ways in which Output does not match the tool's output schema.
	Warnings []types.Violation

	Duration time.Duration
}

// Invoke runs a tool call through the pipeline.
// The returned error is a *ToolNotFoundError or an *InvalidInputError when the handler could not be reached
// because of the request; any other error means the tool's input schema is unusable.
// Handler failures, including panics, are reported in the Outcome.
func (s *InvocationService) Invoke(ctx context.Context, req *InvokeRequest) (*Outcome, error) {
	t, ok := s.registry.Lookup(req.Name)
	if !ok {
		return nil, &ToolNotFoundError{Name: req.Name}
	}

	args, err := decodeArguments(req.Arguments)
	if err != nil {
		return nil, &InvalidInputError{Tool: t.Name, Violations: []types.Violation{{Message: err.Error()}}}
	}

	validated, err := s.validator.Validate(t.InputSchema, args)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return nil, &InvalidInputError{Tool: t.Name, Violations: verr.Violations}
		}
		return nil, fmt.Errorf("failed to validate arguments for tool %s: %w", t.Name, err)
	}
	if validated == nil {
		validated = map[string]any{}
	}

	mode := req.Mode
	if mode == "" {
		mode = tool.ModeExecute
	}
	ec := tool.ExecutionContext{
		Env:  tool.NewEnv(req.Env),
		Mode: mode,
	}

	outcome := &Outcome{
		InvocationID: uuid.NewString(),
		Tool:         t.Name,
		Mode:         mode,
	}
	log := s.logger.With(
		zap.String("tool", t.Name),
		zap.String("mode", string(mode)),
		zap.String("invocation_id", outcome.InvocationID),
	)
	log.Debug("invoking tool")

	started := time.Now()
	res, err := callHandler(ctx, t, validated, ec)
	outcome.Duration = time.Since(started)

	if err == nil {
		err = checkResult(res)
	}
	if err != nil {
		outcome.Failed = true
		outcome.HandlerError = err.Error()
		log.Warn("tool call failed", zap.Error(err), zap.Duration("duration", outcome.Duration))
	} else {
		outcome.Output = res.Output
		outcome.Billing = res.Billing
		if warnings := s.validator.ValidateOutput(t.OutputSchema, res.Output); len(warnings) > 0 {
			outcome.Warnings = warnings
			s.metrics.RecordOutputValidationWarning(ctx, t.Name)
			log.Warn("tool output does not match its output schema", zap.Any("violations", warnings))
		}
	}

	if req.Count {
		s.tracker.Increment()
	}

	metricOutcome := telemetry.ToolCallOutcomeSuccess
	if outcome.Failed {
		metricOutcome = telemetry.ToolCallOutcomeError
	}
	s.metrics.RecordToolCall(ctx, t.Name, string(mode), metricOutcome, outcome.Billing.Credits, outcome.Duration)

	s.recordUsage(ctx, outcome, validated)

	return outcome, nil
}

// callHandler runs the tool's handler, turning a panic into an error.
func callHandler(ctx context.Context, t tool.Tool, input map[string]any, ec tool.ExecutionContext) (res tool.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name, r)
		}
	}()
	return t.Handler(ctx, input, ec)
}

// checkResult rejects results that cannot be billed or serialized.
func checkResult(res tool.Result) error {
	c := res.Billing.Credits
	if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
		return fmt.Errorf("tool reported invalid credits: %v", c)
	}
	if _, err := json.Marshal(res.Output); err != nil {
		return fmt.Errorf("tool output is not JSON-serializable: %w", err)
	}
	return nil
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, errors.New("arguments must be a JSON object")
	}
	return args, nil
}

func (s *InvocationService) recordUsage(ctx context.Context, o *Outcome, args map[string]any) {
	if s.usage == nil {
		return
	}

	rawArgs, err := json.Marshal(args)
	if err != nil {
		rawArgs = []byte("{}")
	}
	inv := &model.Invocation{
		InvocationID: o.InvocationID,
		Tool:         o.Tool,
		Mode:         string(o.Mode),
		Outcome:      model.InvocationOutcomeSuccess,
		Credits:      o.Billing.Credits,
		Duration:     o.Duration,
		Error:        o.HandlerError,
		Arguments:    rawArgs,
	}
	if o.Failed {
		inv.Outcome = model.InvocationOutcomeFailure
	}

	// served calls are recorded even if the caller has gone away
	if err := s.usage.Record(context.WithoutCancel(ctx), inv); err != nil {
		s.logger.Error("failed to record tool invocation", zap.String("invocation_id", o.InvocationID), zap.Error(err))
	}
}
