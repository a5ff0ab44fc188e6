// Package dispatch routes raw requests to the exposed surfaces (invoke, health, estimate)
// and serializes every outcome, including failures, into a response.
// It is shared by the dedicated and serverless runtime adapters.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/skedyul/toolserver/internal"
	"github.com/skedyul/toolserver/internal/service/invocation"
	"github.com/skedyul/toolserver/pkg/tool"
	"github.com/skedyul/toolserver/pkg/types"
	"go.uber.org/zap"
)

// Surface identifies one of the exposed endpoints.
type Surface string

const (
	SurfaceInvoke   Surface = "/mcp"
	SurfaceHealth   Surface = "/health"
	SurfaceEstimate Surface = "/estimate"
)

var surfaces = []Surface{SurfaceInvoke, SurfaceHealth, SurfaceEstimate}

// SurfaceForPath maps a request path onto a surface.
// Paths must match exactly; only trailing slashes are ignored, so "/mcp/" resolves to SurfaceInvoke
// while "/admin/mcp" resolves to nothing.
func SurfaceForPath(path string) (Surface, bool) {
	p := strings.TrimRight(path, "/")
	for _, s := range surfaces {
		if string(s) == p {
			return s, true
		}
	}
	return "", false
}

// Request is a raw request addressed to a surface.
type Request struct {
	Surface Surface
	Body    []byte
}

// Response is a serialized response ready to be written back by an adapter.
// Body is always JSON.
type Response struct {
	StatusCode int
	Body       []byte
}

// Config holds the configuration parameters for initializing the Dispatcher.
type Config struct {
	Invocations *invocation.InvocationService

	// Environ returns the environment handed to tool handlers, in os.Environ format.
	// Defaults to os.Environ; it is read on every call.
	Environ func() []string

	Logger *zap.Logger
}

// Dispatcher parses requests, routes them to the invocation pipeline or the health tracker
// and serializes the result. It holds no per-request state and is safe for concurrent use.
type Dispatcher struct {
	invocations *invocation.InvocationService
	environ     func() []string
	logger      *zap.Logger
}

func NewDispatcher(c *Config) (*Dispatcher, error) {
	if c.Invocations == nil {
		return nil, errors.New("invocation service is required")
	}
	d := &Dispatcher{
		invocations: c.Invocations,
		environ:     c.Environ,
		logger:      c.Logger,
	}
	if d.environ == nil {
		d.environ = os.Environ
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d, nil
}

// Dispatch serves a single request. It never fails: every error is serialized into the response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	switch req.Surface {
	case SurfaceInvoke:
		return d.dispatchInvoke(ctx, req.Body)
	case SurfaceHealth:
		return d.respond(http.StatusOK, d.invocations.Health())
	case SurfaceEstimate:
		return d.dispatchEstimate(ctx, req.Body)
	default:
		return d.respond(http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (d *Dispatcher) dispatchInvoke(ctx context.Context, body []byte) Response {
	var envelope types.Request
	if !isJSONObject(body) || json.Unmarshal(body, &envelope) != nil {
		return d.respond(http.StatusBadRequest, newErrorEnvelope(nil, mcp.PARSE_ERROR, "Parse error", nil))
	}
	id := envelope.ID

	if v := envelopeVersion(&envelope); v != "" && v != types.ProtocolVersion {
		return d.respond(http.StatusOK, newErrorEnvelope(
			id, mcp.INVALID_REQUEST, "Invalid Request: unsupported protocol version "+v, nil,
		))
	}

	switch mcp.MCPMethod(envelope.Method) {
	case mcp.MethodToolsList:
		result := &types.ListToolsResult{Tools: d.invocations.ListTools()}
		return d.respondResult(id, result)

	case mcp.MethodToolsCall:
		var params types.CallToolParams
		if len(envelope.Params) > 0 {
			if err := json.Unmarshal(envelope.Params, &params); err != nil {
				return d.respond(http.StatusOK, newErrorEnvelope(
					id, mcp.INVALID_PARAMS, "Invalid params: expected {name, arguments}", nil,
				))
			}
		}
		if params.Name == "" {
			return d.respond(http.StatusOK, newErrorEnvelope(
				id, mcp.INVALID_PARAMS, "Invalid params: tool name is required", nil,
			))
		}

		outcome, err := d.invocations.Invoke(ctx, &invocation.InvokeRequest{
			Name:      params.Name,
			Arguments: params.Arguments,
			Mode:      tool.ModeExecute,
			Env:       internal.SnapshotEnv(d.environ()),
			Count:     true,
		})
		if err != nil {
			e := d.toProtocolError(err)
			return d.respond(http.StatusOK, &types.Response{ProtocolVersion: types.ProtocolVersion, ID: id, Error: e})
		}

		result, err := invocation.NewCallToolResult(outcome)
		if err != nil {
			d.logger.Error("failed to build call result", zap.String("tool", params.Name), zap.Error(err))
			return d.respond(http.StatusOK, newErrorEnvelope(id, mcp.INTERNAL_ERROR, "Internal error", nil))
		}
		return d.respondResult(id, result)

	case "":
		return d.respond(http.StatusOK, newErrorEnvelope(id, mcp.INVALID_REQUEST, "Invalid Request: method is required", nil))

	default:
		return d.respond(http.StatusOK, newErrorEnvelope(
			id, mcp.METHOD_NOT_FOUND, "Method not found: "+envelope.Method, nil,
		))
	}
}

func (d *Dispatcher) dispatchEstimate(ctx context.Context, body []byte) Response {
	var req types.EstimateRequest
	if !isJSONObject(body) || json.Unmarshal(body, &req) != nil {
		return d.respond(http.StatusBadRequest, &types.ErrorResponse{
			Error: &types.Error{Code: mcp.PARSE_ERROR, Message: "Parse error"},
		})
	}
	if req.Name == "" {
		return d.respond(http.StatusBadRequest, &types.ErrorResponse{
			Error: &types.Error{Code: mcp.INVALID_PARAMS, Message: "Invalid params: name is required"},
		})
	}

	outcome, err := d.invocations.Invoke(ctx, &invocation.InvokeRequest{
		Name:      req.Name,
		Arguments: req.Inputs,
		Mode:      tool.ModeEstimate,
		Env:       internal.SnapshotEnv(d.environ()),
	})
	if err != nil {
		e := d.toProtocolError(err)
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, invocation.ErrToolNotFound):
			status = http.StatusNotFound
		case errors.Is(err, invocation.ErrInvalidInput):
			status = http.StatusBadRequest
		}
		return d.respond(status, &types.ErrorResponse{Error: e})
	}

	if outcome.Failed {
		return d.respond(http.StatusInternalServerError, &types.ErrorResponse{Error: &types.Error{
			Code:    mcp.INTERNAL_ERROR,
			Message: outcome.HandlerError,
			Data:    &types.ErrorData{Kind: types.ErrorKindHandlerError, Tool: outcome.Tool},
		}})
	}
	return d.respond(http.StatusOK, &types.EstimateResponse{Output: outcome.Output, Billing: outcome.Billing})
}

// toProtocolError maps a pipeline error onto the protocol error reported to the caller.
func (d *Dispatcher) toProtocolError(err error) *types.Error {
	var nf *invocation.ToolNotFoundError
	if errors.As(err, &nf) {
		return &types.Error{
			Code:    mcp.INVALID_PARAMS,
			Message: "Tool not found: " + nf.Name,
			Data:    &types.ErrorData{Kind: types.ErrorKindToolNotFound, Tool: nf.Name},
		}
	}
	var ie *invocation.InvalidInputError
	if errors.As(err, &ie) {
		return &types.Error{
			Code:    mcp.INVALID_PARAMS,
			Message: "Invalid arguments for tool " + ie.Tool,
			Data:    &types.ErrorData{Kind: types.ErrorKindInvalidInput, Tool: ie.Tool, Violations: ie.Violations},
		}
	}
	d.logger.Error("tool invocation failed before reaching the handler", zap.Error(err))
	return &types.Error{Code: mcp.INTERNAL_ERROR, Message: "Internal error"}
}

func (d *Dispatcher) respondResult(id json.RawMessage, result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		d.logger.Error("failed to serialize result", zap.Error(err))
		return d.respond(http.StatusOK, newErrorEnvelope(id, mcp.INTERNAL_ERROR, "Internal error", nil))
	}
	return d.respond(http.StatusOK, &types.Response{ProtocolVersion: types.ProtocolVersion, ID: id, Result: raw})
}

// internalErrorBody is written when a response cannot be serialized at all.
var internalErrorBody = []byte(`{"error":"internal error"}`)

func (d *Dispatcher) respond(status int, body any) Response {
	raw, err := json.Marshal(body)
	if err != nil {
		d.logger.Error("failed to serialize response", zap.Error(err))
		return Response{StatusCode: http.StatusInternalServerError, Body: internalErrorBody}
	}
	return Response{StatusCode: status, Body: raw}
}

func newErrorEnvelope(id json.RawMessage, code int, message string, data *types.ErrorData) *types.Response {
	return &types.Response{
		ProtocolVersion: types.ProtocolVersion,
		ID:              id,
		Error:           &types.Error{Code: code, Message: message, Data: data},
	}
}

// envelopeVersion returns the protocol version declared by the envelope, preferring protocolVersion over jsonrpc.
func envelopeVersion(r *types.Request) string {
	if r.ProtocolVersion != "" {
		return r.ProtocolVersion
	}
	return r.JSONRPC
}

func isJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
