package invocation

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/skedyul/toolserver/pkg/types"
)

// NewCallToolResult converts an invocation outcome into the result of a tools/call request.
// Failed outcomes become error results with zero credits.
func NewCallToolResult(o *Outcome) (*types.ToolCallResult, error) {
	var res *mcp.CallToolResult
	if o.Failed {
		res = mcp.NewToolResultError(o.HandlerError)
	} else {
		res = mcp.NewToolResultStructuredOnly(o.Output)
	}

	meta := map[string]any{"invocationId": o.InvocationID}
	if len(o.Warnings) > 0 {
		meta["outputWarnings"] = o.Warnings
	}
	res.Meta = &mcp.Meta{AdditionalFields: meta}

	content, err := convertToolCallRespContent(res.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to convert content: %w", err)
	}

	result := &types.ToolCallResult{
		Meta:              convertMCPMetaToMap(res.Meta),
		IsError:           res.IsError,
		Content:           content,
		StructuredContent: res.StructuredContent,
	}
	if !o.Failed {
		result.Billing = o.Billing
	}
	return result, nil
}

// convertToolCallRespContent converts []mcp.Content to []map[string]any.
func convertToolCallRespContent(content []mcp.Content) ([]map[string]any, error) {
	if len(content) == 0 {
		return []map[string]any{}, nil
	}

	contentList := make([]map[string]any, 0, len(content))
	for i, item := range content {
		serialized, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal content item %d: %w", i, err)
		}

		var contentMap map[string]any
		if err := json.Unmarshal(serialized, &contentMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content item %d: %w", i, err)
		}

		contentList = append(contentList, contentMap)
	}
	return contentList, nil
}

// convertMCPMetaToMap converts *mcp.Meta to map[string]any, returning nil when there is nothing to report.
func convertMCPMetaToMap(meta *mcp.Meta) map[string]any {
	if meta == nil {
		return nil
	}

	metaMap := make(map[string]any, len(meta.AdditionalFields)+1)
	for k, v := range meta.AdditionalFields {
		metaMap[k] = v
	}
	if meta.ProgressToken != nil {
		metaMap["progressToken"] = meta.ProgressToken
	}

	if len(metaMap) == 0 {
		return nil
	}
	return metaMap
}
