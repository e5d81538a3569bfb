package core

import "encoding/json"

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured call emitted by the model on an assistant message.
type ToolCall struct {
	// ID is the provider-assigned call id. Tool result messages reference it.
	ID string `json:"id"`

	// Name is the tool being invoked.
	Name string `json:"name"`

	// Input is the raw JSON arguments of the call.
	Input json.RawMessage `json:"input"`
}

// Message is one entry in a conversation thread.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that invoke tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is set on tool messages and references the call being answered.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// UserMessage builds a user-authored message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a plain assistant message with no tool calls.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool result message addressed to a prior tool call.
func ToolMessage(content, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// LastToolCall returns the single tool call carried by the message, if any.
func (m Message) LastToolCall() (ToolCall, bool) {
	if len(m.ToolCalls) == 0 {
		return ToolCall{}, false
	}
	return m.ToolCalls[0], true
}

// ToolDefinition describes a tool exposed to the model.
type ToolDefinition struct {
	// ToolName is the name the model uses to invoke the tool.
	ToolName string

	// ToolDescription explains when the model should invoke it.
	ToolDescription string

	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema map[string]interface{}
}
