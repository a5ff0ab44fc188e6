package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/skedyul/toolserver/pkg/types"
)

// GetUsage returns the usage summary recorded by the server's ledger.
// An empty tool name summarizes every tool.
func (c *Client) GetUsage(tool string) (*types.UsageSummary, error) {
	u, _ := c.constructAPIEndpoint("/v0/usage")
	if tool != "" {
		u += "?" + url.Values{"tool": {tool}}.Encode()
	}

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

	var summary types.UsageSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &summary, nil
}
