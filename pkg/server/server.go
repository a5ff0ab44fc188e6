// Package server assembles a tool server from a configuration and a tool registry.
// The same registry can be served by a long-running process (dedicated) or by a
// request/response function (serverless); the compute layer in the configuration decides which.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/skedyul/toolserver/internal/api"
	"github.com/skedyul/toolserver/internal/dispatch"
	"github.com/skedyul/toolserver/internal/serverless"
	"github.com/skedyul/toolserver/internal/service/health"
	"github.com/skedyul/toolserver/internal/service/invocation"
	"github.com/skedyul/toolserver/internal/service/usage"
	"github.com/skedyul/toolserver/internal/telemetry"
	"github.com/skedyul/toolserver/pkg/tool"
	"github.com/skedyul/toolserver/pkg/types"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrWrongRuntime is returned when an operation belongs to the other compute layer.
var ErrWrongRuntime = errors.New("operation is not supported by this compute layer")

// Request and Response are the serverless event types accepted and returned by Handle.
type (
	Request  = serverless.Request
	Response = serverless.Response
)

// Telemetry supplies the meter tool call metrics are recorded on.
// When IsEnabled reports false, metrics are not recorded and /metrics is not served.
type Telemetry interface {
	IsEnabled() bool
	ServiceName() string
	GetMeter() metric.Meter
}

// Options holds everything needed to assemble a Server.
type Options struct {
	Config   *types.ServerConfig
	Registry *tool.Registry

	// DB enables the usage ledger. It must already be migrated.
	DB *gorm.DB

	// Telemetry enables tool call metrics and, in the dedicated runtime, the /metrics endpoint.
	Telemetry Telemetry

	// StagePrefix is stripped from serverless event paths before routing, e.g. "/prod".
	StagePrefix string

	// Environ returns the environment handed to tool handlers. Defaults to os.Environ.
	Environ func() []string

	ShutdownTimeout time.Duration

	Logger *zap.Logger
}

// Server is a tool server bound to one compute layer.
type Server struct {
	runtime types.Runtime
	tracker *health.Tracker

	dedicated  *api.Server
	serverless *serverless.Handler
}

// New validates the configuration and builds the runtime adapter it selects.
func New(opts *Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("server config is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if opts.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}

	metrics := telemetry.NewNoopCustomMetrics()
	if opts.Telemetry != nil && opts.Telemetry.IsEnabled() {
		m, err := telemetry.NewOtelCustomMetrics(opts.Telemetry.GetMeter())
		if err != nil {
			return nil, fmt.Errorf("failed to create custom metrics: %w", err)
		}
		metrics = m
	}

	var usageService *usage.UsageService
	if opts.DB != nil {
		usageService = usage.NewUsageService(opts.DB)
	}

	runtime := opts.Config.ComputeLayer
	tracker := health.NewTracker(runtime, opts.Registry.Names())

	invocations, err := invocation.NewInvocationService(&invocation.ServiceConfig{
		Registry: opts.Registry,
		Tracker:  tracker,
		Metrics:  metrics,
		Usage:    usageService,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation service: %w", err)
	}

	d, err := dispatch.NewDispatcher(&dispatch.Config{
		Invocations: invocations,
		Environ:     environ,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	s := &Server{runtime: runtime, tracker: tracker}
	switch runtime {
	case types.RuntimeServerless:
		s.serverless, err = serverless.NewHandler(&serverless.Config{
			Dispatcher:  d,
			StagePrefix: opts.StagePrefix,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create serverless handler: %w", err)
		}
	default:
		s.dedicated, err = api.NewServer(&api.ServerOptions{
			Dispatcher:   d,
			Tracker:      tracker,
			UsageService: usageService,
			Metadata:        opts.Config.Metadata,
			OtelProviders:   opts.Telemetry,
			ShutdownTimeout: opts.ShutdownTimeout,
			Logger:          logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create dedicated server: %w", err)
		}
	}
	return s, nil
}

// Runtime returns the compute layer this server was built for.
func (s *Server) Runtime() types.Runtime {
	return s.runtime
}

// GetHealthStatus returns the current health snapshot.
func (s *Server) GetHealthStatus() *types.HealthSnapshot {
	return s.tracker.Snapshot()
}

// Listen serves on the given port until ctx is cancelled. Dedicated runtime only.
func (s *Server) Listen(ctx context.Context, port string) error {
	if s.dedicated == nil {
		return fmt.Errorf("listen: %w", ErrWrongRuntime)
	}
	return s.dedicated.Listen(ctx, port)
}

// Serve serves on ln until ctx is cancelled. Dedicated runtime only.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.dedicated == nil {
		return fmt.Errorf("serve: %w", ErrWrongRuntime)
	}
	return s.dedicated.Serve(ctx, ln)
}

// HTTPHandler returns the dedicated server's handler, or nil for the serverless runtime.
func (s *Server) HTTPHandler() http.Handler {
	if s.dedicated == nil {
		return nil
	}
	return s.dedicated.Handler()
}

// Handle serves one serverless event. Serverless runtime only.
func (s *Server) Handle(ctx context.Context, req *Request) (*Response, error) {
	if s.serverless == nil {
		return nil, fmt.Errorf("handle: %w", ErrWrongRuntime)
	}
	return s.serverless.Handle(ctx, req), nil
}

// HandleJSON serves one JSON-encoded serverless event. Serverless runtime only.
func (s *Server) HandleJSON(ctx context.Context, event []byte) ([]byte, error) {
	if s.serverless == nil {
		return nil, fmt.Errorf("handle: %w", ErrWrongRuntime)
	}
	return s.serverless.HandleJSON(ctx, event)
}
