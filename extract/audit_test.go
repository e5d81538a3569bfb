package extract

import (
	"encoding/json"
	"testing"

	"taskpilot/core"
)

func TestRenderToolInfo_PatchUpdate(t *testing.T) {
	groups := [][]core.ToolCall{{
		{
			ID:   "call_1",
			Name: "PatchDoc",
			Input: json.RawMessage(`{
				"json_doc_id": "abc",
				"planned_edits": "fix deadline",
				"patches": [{"op": "replace", "path": "/deadline", "value": {"deadline": "2024-06-01"}}]
			}`),
		},
	}}

	got := RenderToolInfo(groups, "ToDo")
	want := "Document abc updated:\nPlan: fix deadline\nAdded content: {'deadline': '2024-06-01'}"
	if got != want {
		t.Errorf("RenderToolInfo = %q, want %q", got, want)
	}
}

func TestRenderToolInfo_NewRecord(t *testing.T) {
	groups := [][]core.ToolCall{{
		{
			ID:    "call_1",
			Name:  "ToDo",
			Input: json.RawMessage(`{"task": "buy milk"}`),
		},
	}}

	got := RenderToolInfo(groups, "ToDo")
	want := "New ToDo created:\nContent: {'task': 'buy milk'}"
	if got != want {
		t.Errorf("RenderToolInfo = %q, want %q", got, want)
	}
}

func TestRenderToolInfo_NoOp(t *testing.T) {
	groups := [][]core.ToolCall{{
		{
			ID:    "call_1",
			Name:  "PatchDoc",
			Input: json.RawMessage(`{"json_doc_id": "abc", "planned_edits": "nothing to change", "patches": []}`),
		},
	}}

	got := RenderToolInfo(groups, "ToDo")
	want := "Document abc unchanged:\nnothing to change"
	if got != want {
		t.Errorf("RenderToolInfo = %q, want %q", got, want)
	}
}

func TestRenderToolInfo_MixedGroups(t *testing.T) {
	groups := [][]core.ToolCall{
		{
			{
				ID:    "call_1",
				Name:  "PatchDoc",
				Input: json.RawMessage(`{"json_doc_id": "abc", "planned_edits": "fix deadline", "patches": [{"op": "replace", "path": "/deadline", "value": "2024-06-01"}]}`),
			},
			// Unrelated tool names are ignored.
			{ID: "call_2", Name: "Profile", Input: json.RawMessage(`{"name": "Dana"}`)},
		},
		{
			{ID: "call_3", Name: "ToDo", Input: json.RawMessage(`{"task": "buy milk"}`)},
		},
	}

	got := RenderToolInfo(groups, "ToDo")
	want := "Document abc updated:\nPlan: fix deadline\nAdded content: '2024-06-01'" +
		"\n\n" +
		"New ToDo created:\nContent: {'task': 'buy milk'}"
	if got != want {
		t.Errorf("RenderToolInfo = %q, want %q", got, want)
	}
}

func TestPythonRepr(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"key order preserved", `{"b": 1, "a": 2}`, "{'b': 1, 'a': 2}"},
		{"nested", `{"task": "buy milk", "meta": {"done": false}}`, "{'task': 'buy milk', 'meta': {'done': False}}"},
		{"booleans and null", `{"a": true, "b": false, "c": null}`, "{'a': True, 'b': False, 'c': None}"},
		{"integers keep their digits", `{"m": 3, "big": 12345678901234567890}`, "{'m': 3, 'big': 12345678901234567890}"},
		{"floats normalized", `{"n": 1.50, "half": 0.5}`, "{'n': 1.5, 'half': 0.5}"},
		{"integral floats keep the point", `{"k": 1e3, "z": 2.0}`, "{'k': 1000.0, 'z': 2.0}"},
		{"tiny float in exponent form", `{"eps": 1e-5}`, "{'eps': 1e-05}"},
		{"array", `["x", 1, null]`, "['x', 1, None]"},
		{"empty object", `{}`, "{}"},
		{"string with apostrophe", `{"note": "don't forget"}`, `{'note': "don't forget"}`},
		{"string with both quote kinds", `{"note": "a 'b' \"c\""}`, `{'note': 'a \'b\' "c"'}`},
		{"bare string", `"hello"`, "'hello'"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pythonRepr(json.RawMessage(tc.in))
			if got != tc.want {
				t.Errorf("pythonRepr(%s) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCollector_GroupsInOrder(t *testing.T) {
	c := NewCollector()

	c.OnCalls([]core.ToolCall{{ID: "a", Name: "ToDo"}})
	c.OnCalls([]core.ToolCall{{ID: "b", Name: "PatchDoc"}, {ID: "c", Name: "ToDo"}})

	groups := c.CallGroups()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if len(groups[0]) != 1 || groups[0][0].ID != "a" {
		t.Errorf("first group = %+v", groups[0])
	}
	if len(groups[1]) != 2 || groups[1][0].ID != "b" || groups[1][1].ID != "c" {
		t.Errorf("second group = %+v", groups[1])
	}
}

func TestCollector_CopiesInput(t *testing.T) {
	c := NewCollector()

	group := []core.ToolCall{{ID: "a", Name: "ToDo"}}
	c.OnCalls(group)
	group[0].ID = "mutated"

	if got := c.CallGroups()[0][0].ID; got != "a" {
		t.Errorf("recorded call ID = %q, want %q", got, "a")
	}
}
