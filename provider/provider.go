// Package provider defines the model invocation boundary. The engine and
// the extraction layer only see this interface; the concrete model and its
// transport live behind it.
package provider

import (
	"context"

	"taskpilot/core"
)

// ToolChoice controls how the model may use the offered tools.
type ToolChoice int

const (
	// ToolChoiceAuto lets the model decide whether to call a tool.
	ToolChoiceAuto ToolChoice = iota

	// ToolChoiceRequired forces the model to call at least one tool.
	ToolChoiceRequired
)

// Request is one generation call: full message history, a system context,
// and an optional small tool set.
type Request struct {
	System   string
	Messages []core.Message

	// Tools offered for this call. Empty means plain text generation.
	Tools      []core.ToolDefinition
	ToolChoice ToolChoice

	// DisableParallelToolUse caps the model at one tool call per response.
	// The routing decision depends on this: exactly zero or one call.
	DisableParallelToolUse bool
}

// Reply is the model's next message: text plus any tool calls it emitted.
type Reply struct {
	Text      string
	ToolCalls []core.ToolCall
}

// Client generates the next assistant message.
type Client interface {
	Generate(ctx context.Context, req *Request) (*Reply, error)
}
