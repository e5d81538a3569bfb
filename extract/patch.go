package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// patchOp is one JSON Patch operation from a PatchDoc call. Only the add,
// replace, and remove operations are supported; that is all the model is
// offered in the tool schema.
type patchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// applyPatches applies the operations against a copy of the document and
// returns the patched JSON. The input document is never mutated.
func applyPatches(doc json.RawMessage, ops []patchOp) (json.RawMessage, error) {
	var root interface{}
	if len(doc) == 0 {
		root = map[string]interface{}{}
	} else if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	for i, op := range ops {
		patched, err := applyOp(root, op)
		if err != nil {
			return nil, fmt.Errorf("patch %d (%s %s): %w", i, op.Op, op.Path, err)
		}
		root = patched
	}

	out, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

func applyOp(root interface{}, op patchOp) (interface{}, error) {
	switch op.Op {
	case "add", "replace", "remove":
	default:
		return nil, fmt.Errorf("unsupported operation %q", op.Op)
	}

	segments, err := parsePointer(op.Path)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if op.Op != "remove" {
		if len(op.Value) == 0 {
			return nil, fmt.Errorf("missing value")
		}
		if err := json.Unmarshal(op.Value, &value); err != nil {
			return nil, fmt.Errorf("decode value: %w", err)
		}
	}

	// An empty pointer addresses the whole document.
	if len(segments) == 0 {
		if op.Op == "remove" {
			return nil, fmt.Errorf("cannot remove the document root")
		}
		return value, nil
	}

	return applySegments(root, segments, op.Op, value)
}

// applySegments walks down the document and returns the modified node.
// Containers are rebuilt on the way back up so the original stays intact.
func applySegments(node interface{}, segments []string, op string, value interface{}) (interface{}, error) {
	seg := segments[0]
	last := len(segments) == 1

	switch container := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(container)+1)
		for k, v := range container {
			out[k] = v
		}
		if last {
			switch op {
			case "remove":
				if _, ok := out[seg]; !ok {
					return nil, fmt.Errorf("no member %q", seg)
				}
				delete(out, seg)
			case "replace":
				if _, ok := out[seg]; !ok {
					return nil, fmt.Errorf("no member %q", seg)
				}
				out[seg] = value
			default:
				out[seg] = value
			}
			return out, nil
		}
		child, ok := out[seg]
		if !ok {
			return nil, fmt.Errorf("no member %q", seg)
		}
		patched, err := applySegments(child, segments[1:], op, value)
		if err != nil {
			return nil, err
		}
		out[seg] = patched
		return out, nil

	case []interface{}:
		if last && seg == "-" {
			if op != "add" {
				return nil, fmt.Errorf("%q only valid for add", seg)
			}
			out := make([]interface{}, len(container), len(container)+1)
			copy(out, container)
			return append(out, value), nil
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(container) {
			return nil, fmt.Errorf("bad array index %q", seg)
		}
		out := make([]interface{}, len(container))
		copy(out, container)
		if last {
			switch op {
			case "remove":
				return append(out[:idx], out[idx+1:]...), nil
			case "add":
				out = append(out, nil)
				copy(out[idx+1:], out[idx:])
				out[idx] = value
				return out, nil
			default:
				out[idx] = value
				return out, nil
			}
		}
		patched, err := applySegments(out[idx], segments[1:], op, value)
		if err != nil {
			return nil, err
		}
		out[idx] = patched
		return out, nil

	default:
		return nil, fmt.Errorf("cannot descend into %T", node)
	}
}

// parsePointer splits a JSON pointer into segments, unescaping ~1 and ~0.
func parsePointer(pointer string) ([]string, error) {
	if pointer == "" {
		return nil, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("bad pointer %q", pointer)
	}
	parts := strings.Split(pointer[1:], "/")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[i] = strings.ReplaceAll(part, "~0", "~")
	}
	return parts, nil
}
