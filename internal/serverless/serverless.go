// Package serverless provides the serverless runtime adapter: a stateless function that turns one
// proxy-style HTTP event into one response.
package serverless

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/skedyul/toolserver/internal/dispatch"
	"go.uber.org/zap"
)

// Request is an HTTP event as delivered by a function-as-a-service gateway.
// When decoding JSON, "method" and "query" are accepted in place of "httpMethod" and "queryStringParameters".
type Request struct {
	Path            string            `json:"path"`
	Method          string            `json:"httpMethod"`
	Headers         map[string]string `json:"headers,omitempty"`
	Query           map[string]string `json:"queryStringParameters,omitempty"`
	Body            string            `json:"body"`
	IsBase64Encoded bool              `json:"isBase64Encoded,omitempty"`

	// RequestContext is passed through untouched. When Path is empty, requestContext.http.path is used instead.
	RequestContext map[string]any `json:"requestContext,omitempty"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var aux struct {
		plain
		Method string            `json:"method"`
		Query  map[string]string `json:"query"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Request(aux.plain)
	if r.Method == "" {
		r.Method = aux.Method
	}
	if r.Query == nil {
		r.Query = aux.Query
	}
	return nil
}

// Response is the event returned to the gateway.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Handler serves serverless events. It keeps no state between calls and is safe for concurrent use.
type Handler struct {
	dispatcher  *dispatch.Dispatcher
	stagePrefix string
	logger      *zap.Logger
}

type Config struct {
	Dispatcher *dispatch.Dispatcher

	// StagePrefix is stripped from event paths before routing, for gateways that prepend a
	// deployment stage such as "/prod". Empty means paths are routed as received.
	StagePrefix string

	Logger *zap.Logger
}

func NewHandler(c *Config) (*Handler, error) {
	if c.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	prefix := strings.TrimRight(c.StagePrefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{dispatcher: c.Dispatcher, stagePrefix: prefix, logger: logger}, nil
}

// Handle serves a single event. A nil event is answered with 400.
func (h *Handler) Handle(ctx context.Context, req *Request) (resp *Response) {
	if req == nil {
		return jsonResponse(http.StatusBadRequest, `{"error":"missing event"}`)
	}
	path := requestPath(req)
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("recovered from panic while handling event", zap.Any("panic", r), zap.String("path", path))
			resp = jsonResponse(http.StatusInternalServerError, `{"error":"internal server error"}`)
		}
	}()

	surface, ok := dispatch.SurfaceForPath(h.stripStage(path))
	if !ok {
		return jsonResponse(http.StatusNotFound, `{"error":"not found"}`)
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			h.logger.Debug("rejecting event with undecodable body", zap.Error(err))
			return jsonResponse(http.StatusBadRequest, `{"error":"request body is not valid base64"}`)
		}
		body = decoded
	}

	r := h.dispatcher.Dispatch(ctx, dispatch.Request{Surface: surface, Body: body})
	return jsonResponse(r.StatusCode, string(r.Body))
}

// HandleJSON decodes a raw event, handles it and encodes the response.
func (h *Handler) HandleJSON(ctx context.Context, event []byte) ([]byte, error) {
	var req Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, fmt.Errorf("failed to decode serverless event: %w", err)
	}
	out, err := json.Marshal(h.Handle(ctx, &req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode serverless response: %w", err)
	}
	return out, nil
}

// stripStage removes the configured stage prefix. Paths outside the stage are returned unchanged
// and fail routing.
func (h *Handler) stripStage(path string) string {
	if h.stagePrefix == "" {
		return path
	}
	rest, ok := strings.CutPrefix(path, h.stagePrefix)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return path
	}
	return rest
}

func requestPath(req *Request) string {
	if req.Path != "" {
		return req.Path
	}
	if httpCtx, ok := req.RequestContext["http"].(map[string]any); ok {
		if p, ok := httpCtx["path"].(string); ok {
			return p
		}
	}
	return ""
}

func jsonResponse(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}
