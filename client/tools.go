package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/skedyul/toolserver/pkg/types"
)

// ListTools returns the tools served by the server, in registry order.
func (c *Client) ListTools() ([]types.ToolDescriptor, error) {
	var result types.ListToolsResult
	if err := c.rpc(mcp.MethodToolsList, nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool executes a tool.
// A tool that fails still produces a result, with IsError set; an error is returned only when the
// call could not be made (unknown tool, invalid arguments, transport problems).
func (c *Client) CallTool(name string, args map[string]any) (*types.ToolCallResult, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	params := &types.CallToolParams{Name: name, Arguments: rawArgs}

	var result types.ToolCallResult
	if err := c.rpc(mcp.MethodToolsCall, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Estimate runs a tool in estimate mode and returns the output and the credits a real call would cost.
func (c *Client) Estimate(name string, inputs map[string]any) (*types.EstimateResponse, error) {
	u, _ := c.constructAPIEndpoint("/estimate")

	rawInputs, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inputs: %w", err)
	}
	body, err := json.Marshal(&types.EstimateRequest{Name: name, Inputs: rawInputs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal estimate request: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var estimate types.EstimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&estimate); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &estimate, nil
}

// Health returns the server's health snapshot.
func (c *Client) Health() (*types.HealthSnapshot, error) {
	u, _ := c.constructAPIEndpoint("/health")

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var snapshot types.HealthSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &snapshot, nil
}

// rpc sends a request envelope to the invoke surface and decodes the result into out.
func (c *Client) rpc(method mcp.MCPMethod, params any, out any) error {
	u, _ := c.constructAPIEndpoint("/mcp")

	envelope := types.Request{
		ProtocolVersion: types.ProtocolVersion,
		ID:              json.RawMessage(strconv.FormatInt(c.nextID.Add(1), 10)),
		Method:          string(method),
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		envelope.Params = raw
	}
	body, err := json.Marshal(&envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return c.parseErrorResponse(resp)
	}

	var r types.Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if r.Error != nil {
		return newRPCError(r.Error, resp.StatusCode)
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
