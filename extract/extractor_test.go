package extract_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"taskpilot/core"
	"taskpilot/extract"
	"taskpilot/provider"
	"taskpilot/tools"
)

// scriptedClient returns canned replies in order and records every request.
type scriptedClient struct {
	replies  []*provider.Reply
	err      error
	requests []*provider.Request
}

func (c *scriptedClient) Generate(ctx context.Context, req *provider.Request) (*provider.Reply, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.requests) > len(c.replies) {
		return &provider.Reply{}, nil
	}
	return c.replies[len(c.requests)-1], nil
}

func todoCall(id, input string) core.ToolCall {
	return core.ToolCall{ID: id, Name: tools.TodoSchema, Input: json.RawMessage(input)}
}

func patchCall(id, input string) core.ToolCall {
	return core.ToolCall{ID: id, Name: tools.PatchDocToolName, Input: json.RawMessage(input)}
}

func TestExtract_NewRecord(t *testing.T) {
	client := &scriptedClient{replies: []*provider.Reply{
		{ToolCalls: []core.ToolCall{todoCall("c1", `{"task": "buy milk", "solutions": ["store"]}`)}},
	}}

	ex := extract.New(client, tools.TodoTool(), extract.WithInserts())
	results, err := ex.Extract(context.Background(), &extract.Request{
		Instruction: "Reflect on the conversation.",
		Messages:    []core.Message{core.UserMessage("I need to buy milk")},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Key != "" {
		t.Errorf("new record key = %q, want empty", results[0].Key)
	}
	if string(results[0].Value) != `{"task": "buy milk", "solutions": ["store"]}` {
		t.Errorf("value = %s", results[0].Value)
	}

	// Without existing records only the schema tool is offered.
	if got := len(client.requests[0].Tools); got != 1 {
		t.Errorf("offered %d tools, want 1", got)
	}
	if client.requests[0].ToolChoice != provider.ToolChoiceRequired {
		t.Errorf("tool choice = %v, want required", client.requests[0].ToolChoice)
	}
}

func TestExtract_PatchExisting(t *testing.T) {
	client := &scriptedClient{replies: []*provider.Reply{
		{ToolCalls: []core.ToolCall{patchCall("c1", `{
			"json_doc_id": "todo-1",
			"planned_edits": "set the deadline",
			"patches": [{"op": "add", "path": "/deadline", "value": "2024-06-01"}]
		}`)}},
	}}

	ex := extract.New(client, tools.TodoTool(), extract.WithInserts())
	results, err := ex.Extract(context.Background(), &extract.Request{
		Instruction: "Reflect on the conversation.",
		Messages:    []core.Message{core.UserMessage("the milk run is due June 1st")},
		Existing: []extract.Existing{
			{Key: "todo-1", Schema: tools.TodoSchema, Value: json.RawMessage(`{"task": "buy milk", "solutions": ["store"]}`)},
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Key != "todo-1" {
		t.Errorf("key = %q, want todo-1", results[0].Key)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(results[0].Value, &doc); err != nil {
		t.Fatalf("patched value is not JSON: %v", err)
	}
	if doc["deadline"] != "2024-06-01" {
		t.Errorf("deadline = %v", doc["deadline"])
	}
	if doc["task"] != "buy milk" {
		t.Errorf("task = %v", doc["task"])
	}

	// With existing records PatchDoc is offered alongside the schema tool.
	if got := len(client.requests[0].Tools); got != 2 {
		t.Errorf("offered %d tools, want 2", got)
	}
}

func TestExtract_NoOpYieldsNoResults(t *testing.T) {
	client := &scriptedClient{replies: []*provider.Reply{
		{ToolCalls: []core.ToolCall{patchCall("c1", `{"json_doc_id": "todo-1", "planned_edits": "already up to date", "patches": []}`)}},
	}}

	ex := extract.New(client, tools.TodoTool())
	results, err := ex.Extract(context.Background(), &extract.Request{
		Instruction: "Reflect on the conversation.",
		Messages:    []core.Message{core.UserMessage("nothing new")},
		Existing: []extract.Existing{
			{Key: "todo-1", Schema: tools.TodoSchema, Value: json.RawMessage(`{"task": "buy milk"}`)},
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestExtract_SelfCorrection(t *testing.T) {
	client := &scriptedClient{replies: []*provider.Reply{
		{ToolCalls: []core.ToolCall{patchCall("c1", `{"json_doc_id": "nope", "planned_edits": "x", "patches": []}`)}},
		{ToolCalls: []core.ToolCall{patchCall("c2", `{"json_doc_id": "todo-1", "planned_edits": "x", "patches": []}`)}},
	}}

	var groups [][]core.ToolCall
	ex := extract.New(client, tools.TodoTool(),
		extract.WithListener(func(group []core.ToolCall) { groups = append(groups, group) }))

	results, err := ex.Extract(context.Background(), &extract.Request{
		Instruction: "Reflect on the conversation.",
		Messages:    []core.Message{core.UserMessage("hi")},
		Existing: []extract.Existing{
			{Key: "todo-1", Schema: tools.TodoSchema, Value: json.RawMessage(`{"task": "buy milk"}`)},
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
	if len(client.requests) != 2 {
		t.Fatalf("got %d generate calls, want 2", len(client.requests))
	}
	if len(groups) != 2 {
		t.Errorf("listener saw %d groups, want 2", len(groups))
	}

	// The retry conversation carries the failed assistant turn and a tool
	// error result for the bad call.
	retry := client.requests[1].Messages
	last := retry[len(retry)-1]
	if last.Role != core.RoleTool || last.ToolCallID != "c1" {
		t.Fatalf("last retry message = %+v", last)
	}
	if last.Content == "ok" {
		t.Error("bad call got an ok tool result")
	}
}

func TestExtract_ExhaustedAttempts(t *testing.T) {
	bad := patchCall("c1", `{"json_doc_id": "nope", "planned_edits": "x", "patches": []}`)
	client := &scriptedClient{replies: []*provider.Reply{
		{ToolCalls: []core.ToolCall{bad}},
		{ToolCalls: []core.ToolCall{bad}},
	}}

	ex := extract.New(client, tools.TodoTool())
	_, err := ex.Extract(context.Background(), &extract.Request{
		Instruction: "Reflect on the conversation.",
		Messages:    []core.Message{core.UserMessage("hi")},
		Existing: []extract.Existing{
			{Key: "todo-1", Schema: tools.TodoSchema, Value: json.RawMessage(`{"task": "buy milk"}`)},
		},
	})

	var exErr *core.ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if len(client.requests) != 2 {
		t.Errorf("got %d generate calls, want 2", len(client.requests))
	}
}

func TestExtract_GenerateFailure(t *testing.T) {
	cause := errors.New("boom")
	client := &scriptedClient{err: cause}

	ex := extract.New(client, tools.TodoTool())
	_, err := ex.Extract(context.Background(), &extract.Request{
		Instruction: "Reflect on the conversation.",
		Messages:    []core.Message{core.UserMessage("hi")},
	})

	var exErr *core.ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}
}
