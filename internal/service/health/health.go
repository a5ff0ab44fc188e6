// Package health tracks the liveness state reported by the /health surface.
package health

import (
	"sync/atomic"

	"github.com/skedyul/toolserver/pkg/types"
)

const StatusRunning = "running"

// Tracker holds the health state of a server instance.
// The tool list is fixed at construction; only the request counter changes afterwards.
type Tracker struct {
	runtime types.Runtime
	tools   []string

	requests atomic.Int64
}

// NewTracker creates a tracker for a server serving the given tools.
// toolNames is copied, so later changes to the slice are not observed.
func NewTracker(runtime types.Runtime, toolNames []string) *Tracker {
	tools := make([]string, len(toolNames))
	copy(tools, toolNames)
	return &Tracker{runtime: runtime, tools: tools}
}

// Increment counts one served tool call.
func (t *Tracker) Increment() {
	t.requests.Add(1)
}

// Requests returns the number of tool calls served so far.
func (t *Tracker) Requests() int64 {
	return t.requests.Load()
}

// Snapshot returns a point-in-time copy of the health state.
func (t *Tracker) Snapshot() *types.HealthSnapshot {
	tools := make([]string, len(t.tools))
	copy(tools, t.tools)
	return &types.HealthSnapshot{
		Status:   StatusRunning,
		Runtime:  t.runtime,
		Tools:    tools,
		Requests: t.requests.Load(),
	}
}
