package types

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/skedyul/toolserver/pkg/tool"
)

// ToolDescriptor is the public description of a tool, as returned by tools/list.
type ToolDescriptor struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	InputSchema  *jsonschema.Schema `json:"inputSchema,omitempty"`
	OutputSchema *jsonschema.Schema `json:"outputSchema,omitempty"`
}

// ListToolsResult is the result of a tools/list call.
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallToolParams are the params of a tools/call request.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallResult represents the result of a tools/call request.
// A failed handler still produces a result, with IsError set and zero credits.
type ToolCallResult struct {
	Meta    map[string]any `json:"_meta,omitempty"`
	IsError bool           `json:"isError,omitempty"`

	Content           []map[string]any `json:"content"`
	StructuredContent any              `json:"structuredContent,omitempty"`

	Billing tool.Billing `json:"billing"`
}

// Violation describes why a value does not satisfy a tool's schema.
// Path is the offending top-level property, or empty if the value as a whole is at fault.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}
