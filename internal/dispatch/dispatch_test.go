package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/skedyul/toolserver/internal/builtin"
	"github.com/skedyul/toolserver/internal/service/health"
	"github.com/skedyul/toolserver/internal/service/invocation"
	"github.com/skedyul/toolserver/pkg/tool"
	"github.com/skedyul/toolserver/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dispatcher *Dispatcher
	tracker    *health.Tracker
}

func newFixture(t *testing.T, runtime types.Runtime, extra ...tool.Tool) *fixture {
	t.Helper()
	tools, err := builtin.Tools()
	require.NoError(t, err)
	registry, err := tool.NewRegistry(append(tools, extra...)...)
	require.NoError(t, err)

	tracker := health.NewTracker(runtime, registry.Names())
	svc, err := invocation.NewInvocationService(&invocation.ServiceConfig{Registry: registry, Tracker: tracker})
	require.NoError(t, err)

	d, err := NewDispatcher(&Config{
		Invocations: svc,
		Environ:     func() []string { return []string{"REGION=eu-west-1"} },
	})
	require.NoError(t, err)
	return &fixture{dispatcher: d, tracker: tracker}
}

func (f *fixture) dispatch(t *testing.T, surface Surface, body string) (int, map[string]any) {
	t.Helper()
	resp := f.dispatcher.Dispatch(context.Background(), Request{Surface: surface, Body: []byte(body)})
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &decoded), "body: %s", resp.Body)
	return resp.StatusCode, decoded
}

func (f *fixture) health(t *testing.T) *types.HealthSnapshot {
	t.Helper()
	resp := f.dispatcher.Dispatch(context.Background(), Request{Surface: SurfaceHealth})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snapshot types.HealthSnapshot
	require.NoError(t, json.Unmarshal(resp.Body, &snapshot))
	return &snapshot
}

func TestNewDispatcherRequiresInvocations(t *testing.T) {
	_, err := NewDispatcher(&Config{})
	assert.Error(t, err)
}

func TestToolsCallEchoesIDAndCredits(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	tests := []struct {
		name   string
		id     string
		wantID any
	}{
		{"numeric id", `7`, 7.0},
		{"string id", `"req-1"`, "req-1"},
		{"null id", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"protocolVersion":"2.0","id":` + tt.id +
				`,"method":"tools/call","params":{"name":"echo","arguments":{"value":"hi"}}}`
			status, resp := f.dispatch(t, SurfaceInvoke, body)

			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, "2.0", resp["protocolVersion"])
			assert.Equal(t, tt.wantID, resp["id"])
			assert.NotContains(t, resp, "error")

			result := resp["result"].(map[string]any)
			assert.Equal(t, 2.0, result["billing"].(map[string]any)["credits"])
			assert.Equal(t, map[string]any{"message": "execute: hi"}, result["structuredContent"])

			content := result["content"].([]any)
			require.Len(t, content, 1)
			text := content[0].(map[string]any)
			assert.Equal(t, "text", text["type"])
			assert.JSONEq(t, `{"message":"execute: hi"}`, text["text"].(string))

			meta := result["_meta"].(map[string]any)
			assert.NotEmpty(t, meta["invocationId"])
		})
	}
}

func TestIDIsEchoedVerbatim(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	resp := f.dispatcher.Dispatch(context.Background(), Request{
		Surface: SurfaceInvoke,
		Body:    []byte(`{"jsonrpc":"2.0","id":1.50,"method":"tools/list"}`),
	})
	var envelope types.Response
	require.NoError(t, json.Unmarshal(resp.Body, &envelope))
	assert.Equal(t, "1.50", string(envelope.ID))
}

func TestMissingIDIsNull(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	_, resp := f.dispatch(t, SurfaceInvoke, `{"method":"tools/list"}`)
	id, present := resp["id"]
	assert.True(t, present)
	assert.Nil(t, id)
}

func TestParseError(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	for _, body := range []string{``, `{`, `not json`, `[1,2,3]`, `null`, `"string"`} {
		t.Run(body, func(t *testing.T) {
			status, resp := f.dispatch(t, SurfaceInvoke, body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Nil(t, resp["id"])
			e := resp["error"].(map[string]any)
			assert.Equal(t, -32700.0, e["code"])
			assert.Equal(t, "Parse error", e["message"])
		})
	}
	assert.Equal(t, int64(0), f.tracker.Requests())
}

func TestUnknownMethod(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	status, resp := f.dispatch(t, SurfaceInvoke, `{"protocolVersion":"2.0","id":3,"method":"tools/delete"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3.0, resp["id"])
	assert.Equal(t, -32601.0, resp["error"].(map[string]any)["code"])
}

func TestInvalidRequest(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	tests := []struct {
		name string
		body string
		code float64
	}{
		{"missing method", `{"id":1}`, -32600},
		{"unsupported version", `{"protocolVersion":"1.0","id":1,"method":"tools/list"}`, -32600},
		{"params not an object", `{"id":1,"method":"tools/call","params":[1]}`, -32602},
		{"missing tool name", `{"id":1,"method":"tools/call","params":{}}`, -32602},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := f.dispatch(t, SurfaceInvoke, tt.body)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.code, resp["error"].(map[string]any)["code"])
		})
	}
}

func TestToolNotFoundDoesNotCount(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)
	before := f.health(t).Requests

	status, resp := f.dispatch(t, SurfaceInvoke,
		`{"protocolVersion":"2.0","id":1,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)

	assert.Equal(t, http.StatusOK, status)
	e := resp["error"].(map[string]any)
	assert.Equal(t, -32602.0, e["code"])
	assert.Equal(t, "Tool not found: nope", e["message"])
	assert.Equal(t, map[string]any{"kind": "tool_not_found", "tool": "nope"}, e["data"])
	assert.Equal(t, before, f.health(t).Requests)
}

func TestInvalidArguments(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	status, resp := f.dispatch(t, SurfaceInvoke,
		`{"protocolVersion":"2.0","id":1,"method":"tools/call","params":{"name":"calculate","arguments":{"a":"one"}}}`)

	assert.Equal(t, http.StatusOK, status)
	e := resp["error"].(map[string]any)
	assert.Equal(t, -32602.0, e["code"])
	assert.Equal(t, "Invalid arguments for tool calculate", e["message"])

	data := e["data"].(map[string]any)
	assert.Equal(t, "invalid_input", data["kind"])
	assert.Equal(t, "calculate", data["tool"])

	var paths []string
	for _, v := range data["violations"].([]any) {
		paths = append(paths, v.(map[string]any)["path"].(string))
	}
	assert.ElementsMatch(t, []string{"a", "b", "op"}, paths)
	assert.Equal(t, int64(0), f.tracker.Requests())
}

func TestHandlerErrorIsAFailedResult(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	status, resp := f.dispatch(t, SurfaceInvoke,
		`{"protocolVersion":"2.0","id":9,"method":"tools/call","params":{"name":"calculate","arguments":{"a":1,"b":0,"op":"div"}}}`)

	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, resp, "error")
	result := resp["result"].(map[string]any)
	assert.Equal(t, true, result["isError"])
	assert.Equal(t, 0.0, result["billing"].(map[string]any)["credits"])
	assert.Equal(t, "division by zero", result["content"].([]any)[0].(map[string]any)["text"])

	// the handler was reached, so the call is counted
	assert.Equal(t, int64(1), f.tracker.Requests())
}

func TestToolsListIsOrderedAndNotCounted(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)
	before := f.health(t)

	status, resp := f.dispatch(t, SurfaceInvoke, `{"protocolVersion":"2.0","id":1,"method":"tools/list"}`)
	assert.Equal(t, http.StatusOK, status)

	tools := resp["result"].(map[string]any)["tools"].([]any)
	var names []string
	for _, tl := range tools {
		desc := tl.(map[string]any)
		names = append(names, desc["name"].(string))
		assert.Contains(t, desc, "inputSchema")
	}
	assert.Equal(t, []string{"echo", "calculate"}, names)

	after := f.health(t)
	assert.Equal(t, before.Requests, after.Requests)
}

func TestToolsListIsIdempotent(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)
	body := []byte(`{"protocolVersion":"2.0","id":1,"method":"tools/list"}`)

	first := f.dispatcher.Dispatch(context.Background(), Request{Surface: SurfaceInvoke, Body: body})
	second := f.dispatcher.Dispatch(context.Background(), Request{Surface: SurfaceInvoke, Body: body})
	assert.Equal(t, first, second)
}

func TestHealthSurface(t *testing.T) {
	f := newFixture(t, types.RuntimeServerless)

	first := f.health(t)
	assert.Equal(t, "running", first.Status)
	assert.Equal(t, types.RuntimeServerless, first.Runtime)
	assert.Equal(t, []string{"echo", "calculate"}, first.Tools)
	assert.Equal(t, int64(0), first.Requests)

	// reading health has no side effects
	assert.Equal(t, first, f.health(t))

	f.dispatch(t, SurfaceInvoke, `{"id":1,"method":"tools/call","params":{"name":"echo","arguments":{"value":"x"}}}`)
	assert.Equal(t, int64(1), f.health(t).Requests)
}

func TestEstimateSurface(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	status, resp := f.dispatch(t, SurfaceEstimate, `{"name":"echo","inputs":{"value":"hi-est"}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"message": "estimate: hi-est"}, resp["output"])
	assert.Equal(t, 6.0, resp["billing"].(map[string]any)["credits"])

	status, resp = f.dispatch(t, SurfaceEstimate, `{"name":"calculate","inputs":{"a":2,"b":3,"op":"mul"}}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0.0, resp["billing"].(map[string]any)["credits"])

	// estimates are never counted
	assert.Equal(t, int64(0), f.tracker.Requests())
}

func TestEstimateAndInvokeDifferOnlyByMode(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	_, invoked := f.dispatch(t, SurfaceInvoke,
		`{"id":1,"method":"tools/call","params":{"name":"echo","arguments":{"message":"same"}}}`)
	_, estimated := f.dispatch(t, SurfaceEstimate, `{"name":"echo","inputs":{"message":"same"}}`)

	invokedMsg := invoked["result"].(map[string]any)["structuredContent"].(map[string]any)["message"]
	estimatedMsg := estimated["output"].(map[string]any)["message"]
	assert.Equal(t, "execute: same", invokedMsg)
	assert.Equal(t, "estimate: same", estimatedMsg)
}

func TestEstimateErrors(t *testing.T) {
	f := newFixture(t, types.RuntimeDedicated)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   float64
		wantKind   string
	}{
		{"parse error", `{"name":`, http.StatusBadRequest, -32700, ""},
		{"missing name", `{"inputs":{}}`, http.StatusBadRequest, -32602, ""},
		{"tool not found", `{"name":"nope"}`, http.StatusNotFound, -32602, "tool_not_found"},
		{"invalid input", `{"name":"calculate","inputs":{"a":1}}`, http.StatusBadRequest, -32602, "invalid_input"},
		{"handler error", `{"name":"calculate","inputs":{"a":1,"b":0,"op":"div"}}`, http.StatusInternalServerError, -32603, "handler_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := f.dispatch(t, SurfaceEstimate, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			e := resp["error"].(map[string]any)
			assert.Equal(t, tt.wantCode, e["code"])
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, e["data"].(map[string]any)["kind"])
			}
		})
	}
}

func TestKeyVersusName(t *testing.T) {
	keyed := tool.Tool{
		Key:  "custom-key",
		Name: "custom-tool-name",
		Handler: func(_ context.Context, _ map[string]any, ec tool.ExecutionContext) (tool.Result, error) {
			return tool.Result{Output: map[string]any{"region": ec.Env.Get("REGION")}, Billing: tool.Billing{Credits: 1}}, nil
		},
	}
	f := newFixture(t, types.RuntimeDedicated, keyed)

	_, resp := f.dispatch(t, SurfaceInvoke,
		`{"id":1,"method":"tools/call","params":{"name":"custom-tool-name","arguments":{}}}`)
	result := resp["result"].(map[string]any)
	assert.Equal(t, map[string]any{"region": "eu-west-1"}, result["structuredContent"])

	_, resp = f.dispatch(t, SurfaceInvoke,
		`{"id":2,"method":"tools/call","params":{"name":"custom-key","arguments":{}}}`)
	assert.Equal(t, "tool_not_found", resp["error"].(map[string]any)["data"].(map[string]any)["kind"])
}

func TestUnknownSurface(t *testing.T) {
	f := newFixture(t, types.RuntimeServerless)

	resp := f.dispatcher.Dispatch(context.Background(), Request{Surface: "/admin"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"not found"}`, string(resp.Body))
}

func TestSurfaceForPath(t *testing.T) {
	tests := []struct {
		path   string
		want   Surface
		wantOK bool
	}{
		{"/mcp", SurfaceInvoke, true},
		{"/mcp/", SurfaceInvoke, true},
		{"/mcp//", SurfaceInvoke, true},
		{"/health", SurfaceHealth, true},
		{"/estimate/", SurfaceEstimate, true},
		{"mcp", "", false},
		{"/admin/mcp", "", false},
		{"/prod/mcp", "", false},
		{"/v0/usage/health", "", false},
		{"/anything/estimate", "", false},
		{"/", "", false},
		{"", "", false},
		{"/mcp/extra", "", false},
		{"/metrics", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := SurfaceForPath(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
