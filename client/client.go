// Package client is a Go client for a running tool server.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/skedyul/toolserver/pkg/types"
)

// Client talks to the HTTP surfaces of a dedicated tool server.
type Client struct {
	baseURL    string
	httpClient *http.Client

	nextID atomic.Int64
}

// NewClient creates a client for the server at baseURL. A nil httpClient means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the base URL of the server this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RPCError is an error reported by the server in protocol form.
type RPCError struct {
	Code    int
	Message string
	Data    *types.ErrorData

	// StatusCode is the HTTP status the error arrived with.
	StatusCode int
}

func (e *RPCError) Error() string {
	msg := fmt.Sprintf("server error %d: %s", e.Code, e.Message)
	if e.Data != nil && len(e.Data.Violations) > 0 {
		parts := make([]string, len(e.Data.Violations))
		for i, v := range e.Data.Violations {
			if v.Path == "" {
				parts[i] = v.Message
			} else {
				parts[i] = v.Path + ": " + v.Message
			}
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

func newRPCError(e *types.Error, status int) *RPCError {
	return &RPCError{Code: e.Code, Message: e.Message, Data: e.Data, StatusCode: status}
}

func (c *Client) constructAPIEndpoint(suffixPath string) (string, error) {
	return url.JoinPath(c.baseURL, suffixPath)
}

func (c *Client) newRequest(method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// parseErrorResponse turns a non-successful response into an error.
// Protocol errors become *RPCError; plain {"error": "..."} bodies become ordinary errors.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d and the body could not be read: %w", resp.StatusCode, err)
	}

	var errResp struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && len(errResp.Error) > 0 {
		var rpcErr types.Error
		if json.Unmarshal(errResp.Error, &rpcErr) == nil && rpcErr.Message != "" {
			return newRPCError(&rpcErr, resp.StatusCode)
		}
		var msg string
		if json.Unmarshal(errResp.Error, &msg) == nil {
			return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, msg)
		}
	}
	return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
