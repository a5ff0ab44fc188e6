package types

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// ProtocolVersion is the version string carried by every protocol envelope.
const ProtocolVersion = mcp.JSONRPC_VERSION

// Request is the protocol envelope sent to the /mcp surface.
// JSONRPC is accepted as an alias of ProtocolVersion so that plain JSON-RPC 2.0 clients work too.
type Request struct {
	ProtocolVersion string          `json:"protocolVersion,omitempty"`
	JSONRPC         string          `json:"jsonrpc,omitempty"`
	ID              json.RawMessage `json:"id,omitempty"`
	Method          string          `json:"method"`
	Params          json.RawMessage `json:"params,omitempty"`
}

// Response is the protocol envelope returned by the /mcp surface.
// Exactly one of Result and Error is set.
// ID echoes the request's id verbatim, or is null if the request had none.
type Response struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ID              json.RawMessage `json:"id"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           *Error          `json:"error,omitempty"`
}

// Error is a protocol-level error.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorKind classifies the domain errors carried in Error.Data.
type ErrorKind string

const (
	ErrorKindToolNotFound ErrorKind = "tool_not_found"
	ErrorKindInvalidInput ErrorKind = "invalid_input"
	ErrorKindHandlerError ErrorKind = "handler_error"
)

// ErrorData carries structured details about a domain error.
type ErrorData struct {
	Kind       ErrorKind   `json:"kind"`
	Tool       string      `json:"tool,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}
