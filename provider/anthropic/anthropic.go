// Package anthropic implements the provider boundary on the Anthropic API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"taskpilot/core"
	"taskpilot/provider"
)

const defaultMaxTokens = 4096

// Client calls the Anthropic Messages API.
type Client struct {
	api       *anthropic.Client
	model     string
	maxTokens int64
}

// Option configures the client.
type Option func(*Client)

// WithMaxTokens overrides the response token cap.
func WithMaxTokens(n int64) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// New creates a client for the given API handle and model.
func New(api *anthropic.Client, model string, opts ...Option) *Client {
	c := &Client{
		api:       api,
		model:     model,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate runs one Messages API call and converts the response.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Reply, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  convertMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
		params.ToolChoice = convertToolChoice(req.ToolChoice, req.DisableParallelToolUse)
	}

	resp, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	reply := &provider.Reply{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			reply.Text += block.Text
		case "tool_use":
			reply.ToolCalls = append(reply.ToolCalls, core.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	return reply, nil
}

// convertMessages maps conversation messages onto Anthropic params. Tool
// messages become user messages carrying tool_result blocks; consecutive
// tool messages merge into one user message because the API expects every
// tool_use answered in the message that immediately follows it.
func convertMessages(messages []core.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case core.RoleUser:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))

		case core.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
				if msg.Content != "" {
					blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
				}
				for _, tc := range msg.ToolCalls {
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    tc.ID,
							Name:  tc.Name,
							Input: tc.Input,
						},
					})
				}
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			} else {
				result = append(result, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(msg.Content),
				))
			}

		case core.RoleTool:
			blocks := []anthropic.ContentBlockParamUnion{
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			}
			for i+1 < len(messages) && messages[i+1].Role == core.RoleTool {
				i++
				blocks = append(blocks,
					anthropic.NewToolResultBlock(messages[i].ToolCallID, messages[i].Content, false))
			}
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	return result
}

func convertTools(tools []core.ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.ToolName,
				Description: anthropic.String(tool.ToolDescription),
				InputSchema: buildSchema(tool.InputSchema),
			},
		}
	}
	return result
}

func buildSchema(schema map[string]interface{}) anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: schema["properties"],
		Required:   requiredFields(schema),
	}
}

func requiredFields(schema map[string]interface{}) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []interface{}:
		result := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

func convertToolChoice(choice provider.ToolChoice, disableParallel bool) anthropic.ToolChoiceUnionParam {
	if choice == provider.ToolChoiceRequired {
		return anthropic.ToolChoiceUnionParam{
			OfAny: &anthropic.ToolChoiceAnyParam{
				DisableParallelToolUse: anthropic.Bool(disableParallel),
			},
		}
	}
	return anthropic.ToolChoiceUnionParam{
		OfAuto: &anthropic.ToolChoiceAutoParam{
			DisableParallelToolUse: anthropic.Bool(disableParallel),
		},
	}
}
