package extract

import (
	"encoding/json"
	"testing"
)

func mustPatch(t *testing.T, doc string, ops []patchOp) string {
	t.Helper()
	out, err := applyPatches(json.RawMessage(doc), ops)
	if err != nil {
		t.Fatalf("applyPatches: %v", err)
	}
	return string(out)
}

func assertSameJSON(t *testing.T, got, want string) {
	t.Helper()
	var g, w interface{}
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("got is not valid JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("want is not valid JSON: %v", err)
	}
	gb, _ := json.Marshal(g)
	wb, _ := json.Marshal(w)
	if string(gb) != string(wb) {
		t.Errorf("got %s, want %s", gb, wb)
	}
}

func TestApplyPatches_ReplaceField(t *testing.T) {
	got := mustPatch(t, `{"task": "buy milk", "deadline": "2024-01-01"}`, []patchOp{
		{Op: "replace", Path: "/deadline", Value: json.RawMessage(`"2024-06-01"`)},
	})
	assertSameJSON(t, got, `{"task": "buy milk", "deadline": "2024-06-01"}`)
}

func TestApplyPatches_AddField(t *testing.T) {
	got := mustPatch(t, `{"task": "buy milk"}`, []patchOp{
		{Op: "add", Path: "/status", Value: json.RawMessage(`"in progress"`)},
	})
	assertSameJSON(t, got, `{"task": "buy milk", "status": "in progress"}`)
}

func TestApplyPatches_RemoveField(t *testing.T) {
	got := mustPatch(t, `{"task": "buy milk", "deadline": "2024-01-01"}`, []patchOp{
		{Op: "remove", Path: "/deadline"},
	})
	assertSameJSON(t, got, `{"task": "buy milk"}`)
}

func TestApplyPatches_AppendToArray(t *testing.T) {
	got := mustPatch(t, `{"solutions": ["a"]}`, []patchOp{
		{Op: "add", Path: "/solutions/-", Value: json.RawMessage(`"b"`)},
	})
	assertSameJSON(t, got, `{"solutions": ["a", "b"]}`)
}

func TestApplyPatches_InsertAtIndex(t *testing.T) {
	got := mustPatch(t, `{"solutions": ["a", "c"]}`, []patchOp{
		{Op: "add", Path: "/solutions/1", Value: json.RawMessage(`"b"`)},
	})
	assertSameJSON(t, got, `{"solutions": ["a", "b", "c"]}`)
}

func TestApplyPatches_RemoveArrayElement(t *testing.T) {
	got := mustPatch(t, `{"solutions": ["a", "b", "c"]}`, []patchOp{
		{Op: "remove", Path: "/solutions/1"},
	})
	assertSameJSON(t, got, `{"solutions": ["a", "c"]}`)
}

func TestApplyPatches_WholeDocReplace(t *testing.T) {
	got := mustPatch(t, `{"task": "old"}`, []patchOp{
		{Op: "replace", Path: "", Value: json.RawMessage(`{"task": "new"}`)},
	})
	assertSameJSON(t, got, `{"task": "new"}`)
}

func TestApplyPatches_EscapedPointerSegments(t *testing.T) {
	got := mustPatch(t, `{"a/b": 1, "c~d": 2}`, []patchOp{
		{Op: "replace", Path: "/a~1b", Value: json.RawMessage(`10`)},
		{Op: "replace", Path: "/c~0d", Value: json.RawMessage(`20`)},
	})
	assertSameJSON(t, got, `{"a/b": 10, "c~d": 20}`)
}

func TestApplyPatches_SequentialOps(t *testing.T) {
	got := mustPatch(t, `{"task": "buy milk", "solutions": ["store"]}`, []patchOp{
		{Op: "add", Path: "/deadline", Value: json.RawMessage(`"2024-06-01"`)},
		{Op: "add", Path: "/solutions/-", Value: json.RawMessage(`"delivery"`)},
		{Op: "replace", Path: "/task", Value: json.RawMessage(`"buy oat milk"`)},
	})
	assertSameJSON(t, got, `{"task": "buy oat milk", "deadline": "2024-06-01", "solutions": ["store", "delivery"]}`)
}

func TestApplyPatches_DoesNotMutateOriginal(t *testing.T) {
	doc := json.RawMessage(`{"task": "buy milk"}`)
	_, err := applyPatches(doc, []patchOp{
		{Op: "replace", Path: "/task", Value: json.RawMessage(`"changed"`)},
	})
	if err != nil {
		t.Fatalf("applyPatches: %v", err)
	}
	if string(doc) != `{"task": "buy milk"}` {
		t.Errorf("original document mutated: %s", doc)
	}
}

func TestApplyPatches_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		op   patchOp
	}{
		{"unknown op", `{}`, patchOp{Op: "move", Path: "/a"}},
		{"remove missing field", `{"a": 1}`, patchOp{Op: "remove", Path: "/b"}},
		{"replace missing field", `{"a": 1}`, patchOp{Op: "replace", Path: "/b", Value: json.RawMessage(`1`)}},
		{"index out of range", `{"xs": [1]}`, patchOp{Op: "replace", Path: "/xs/5", Value: json.RawMessage(`2`)}},
		{"descend into scalar", `{"a": 1}`, patchOp{Op: "replace", Path: "/a/b", Value: json.RawMessage(`2`)}},
		{"remove whole document", `{"a": 1}`, patchOp{Op: "remove", Path: ""}},
		{"missing leading slash", `{"a": 1}`, patchOp{Op: "replace", Path: "a", Value: json.RawMessage(`2`)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := applyPatches(json.RawMessage(tc.doc), []patchOp{tc.op}); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
