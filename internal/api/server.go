// Package api provides the dedicated runtime adapter: a long-running HTTP server exposing the tool surfaces.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skedyul/toolserver/internal/dispatch"
	"github.com/skedyul/toolserver/internal/service/health"
	"github.com/skedyul/toolserver/internal/service/usage"
	"github.com/skedyul/toolserver/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const V0PathPrefix = "/v0"

// maxRequestBodyBytes caps the size of request bodies accepted by the tool surfaces.
const maxRequestBodyBytes = 10 << 20

// OtelProviders reports whether HTTP telemetry is collected and under which service name.
// The telemetry package's Providers satisfies it.
type OtelProviders interface {
	IsEnabled() bool
	ServiceName() string
}

type ServerOptions struct {
	Dispatcher *dispatch.Dispatcher
	Tracker    *health.Tracker

	// UsageService is optional. Without it, the usage endpoints report that the ledger is disabled.
	UsageService *usage.UsageService

	Metadata types.ServerMetadata

	OtelProviders OtelProviders

	// ShutdownTimeout bounds how long Serve waits for in-flight requests once its context is cancelled.
	// Zero means wait until they complete.
	ShutdownTimeout time.Duration

	Logger *zap.Logger
}

// Server is the dedicated runtime adapter.
// It serves the /mcp, /health and /estimate surfaces plus a few endpoints that only make sense
// for a long-running process (metadata, usage and metrics).
type Server struct {
	router *gin.Engine

	dispatcher   *dispatch.Dispatcher
	tracker      *health.Tracker
	usageService *usage.UsageService

	metadata types.ServerMetadata

	otelProviders OtelProviders

	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer initializes a new Gin server for the tool surfaces.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Tracker == nil {
		return nil, errors.New("health tracker is required")
	}
	s := &Server{
		dispatcher:      opts.Dispatcher,
		tracker:         opts.Tracker,
		usageService:    opts.UsageService,
		metadata:        opts.Metadata,
		otelProviders:   opts.OtelProviders,
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          opts.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.router = s.setupRouter()
	return s, nil
}

// Handler returns the server's HTTP handler, for callers that run their own http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetHealthStatus returns the current health snapshot without going through HTTP.
func (s *Server) GetHealthStatus() *types.HealthSnapshot {
	return s.tracker.Snapshot()
}

// Listen binds to the given TCP port on all interfaces and serves until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, port string) error {
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
// Once cancelled, the server stops accepting new connections and waits for in-flight requests
// (bounded by the shutdown timeout) before returning. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to run the server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx := context.WithoutCancel(ctx)
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.shutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server gracefully: %w", err)
	}
	<-errCh
	return nil
}

// setupRouter sets up the Gin router with the tool surfaces and the dedicated-only endpoints.
func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.recoverPanics(), s.logRequests())

	// if otel is enabled, setup prometheus metrics endpoint
	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.Any("/mcp", s.surfaceHandler(dispatch.SurfaceInvoke))
	r.Any("/health", s.surfaceHandler(dispatch.SurfaceHealth))
	r.Any("/estimate", s.surfaceHandler(dispatch.SurfaceEstimate))

	r.GET("/metadata", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metadata)
	})

	v0 := r.Group(V0PathPrefix)
	{
		v0.GET("/usage", s.usageSummaryHandler())
		v0.GET("/usage/invocations", s.listInvocationsHandler())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}

// recoverPanics keeps the listener alive when a request handler panics.
func (s *Server) recoverPanics() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		s.logger.Error(
			"recovered from panic while serving request",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug(
			"request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(started)),
		)
	}
}
