package extract

import (
	"sync"

	"taskpilot/core"
)

// Collector flattens the tool calls emitted during one extraction
// invocation into an ordered sequence of call groups, one group per model
// response (including self-correction rounds). Register its OnCalls method
// as the extractor's listener; the groups feed audit rendering.
//
// A Collector is scoped to a single reconciliation invocation and then
// discarded; only the resulting records are persisted, never the trace.
type Collector struct {
	mu     sync.Mutex
	groups [][]core.ToolCall
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// OnCalls records one model response's tool calls as the next group.
func (c *Collector) OnCalls(group []core.ToolCall) {
	copied := make([]core.ToolCall, len(group))
	copy(copied, group)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = append(c.groups, copied)
}

// CallGroups returns every recorded group in emission order.
func (c *Collector) CallGroups() [][]core.ToolCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]core.ToolCall, len(c.groups))
	copy(out, c.groups)
	return out
}
