// Package invocation implements the tool invocation pipeline:
// resolve a tool by name, validate its arguments, run its handler and account for the call.
package invocation

import (
	"errors"
	"fmt"

	"github.com/skedyul/toolserver/internal/schema"
	"github.com/skedyul/toolserver/internal/service/health"
	"github.com/skedyul/toolserver/internal/service/usage"
	"github.com/skedyul/toolserver/internal/telemetry"
	"github.com/skedyul/toolserver/pkg/tool"
	"github.com/skedyul/toolserver/pkg/types"
	"go.uber.org/zap"
)

var (
	// ErrToolNotFound is matched by errors returned for calls to unknown tools.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidInput is matched by errors returned for arguments that fail schema validation.
	ErrInvalidInput = errors.New("invalid input")
)

// ToolNotFoundError is returned when no tool is registered under the requested name.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return "tool not found: " + e.Name
}

func (e *ToolNotFoundError) Is(target error) bool {
	return target == ErrToolNotFound
}

// InvalidInputError is returned when the arguments of a call do not satisfy the tool's input schema.
type InvalidInputError struct {
	Tool       string
	Violations []types.Violation
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.Tool, (&schema.ValidationError{Violations: e.Violations}).Error())
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ServiceConfig holds the configuration parameters for initializing the InvocationService.
type ServiceConfig struct {
	Registry *tool.Registry
	Tracker  *health.Tracker

	// Validator is shared by all invocations. A new one is created if nil.
	Validator *schema.Validator

	// Metrics defaults to a no-op implementation.
	Metrics telemetry.CustomMetrics

	// Usage is optional. When set, every invocation that reaches a handler is recorded in the ledger.
	Usage *usage.UsageService

	Logger *zap.Logger
}

// InvocationService runs tool calls against an immutable registry.
// It is safe for concurrent use.
type InvocationService struct {
	registry  *tool.Registry
	tracker   *health.Tracker
	validator *schema.Validator

	metrics telemetry.CustomMetrics
	usage   *usage.UsageService

	logger *zap.Logger
}

// NewInvocationService creates a new instance of InvocationService.
func NewInvocationService(c *ServiceConfig) (*InvocationService, error) {
	if c.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if c.Tracker == nil {
		return nil, errors.New("health tracker is required")
	}
	s := &InvocationService{
		registry:  c.Registry,
		tracker:   c.Tracker,
		validator: c.Validator,
		metrics:   c.Metrics,
		usage:     c.Usage,
		logger:    c.Logger,
	}
	if s.validator == nil {
		s.validator = schema.NewValidator()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// ListTools returns the descriptors of all registered tools in registry order.
// It has no side effects.
func (s *InvocationService) ListTools() []types.ToolDescriptor {
	tools := s.registry.Tools()
	descriptors := make([]types.ToolDescriptor, len(tools))
	for i, t := range tools {
		descriptors[i] = types.ToolDescriptor{
			Name:         t.Name,
			Description:  t.Description,
			InputSchema:  t.InputSchema,
			OutputSchema: t.OutputSchema,
		}
	}
	return descriptors
}

// Health returns the current health snapshot of the server.
func (s *InvocationService) Health() *types.HealthSnapshot {
	return s.tracker.Snapshot()
}
