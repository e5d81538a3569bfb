package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"taskpilot/core"
	"taskpilot/tools"
)

// RenderToolInfo turns the call groups gathered during an extraction into
// the confirmation text fed back to the conversation. Patch calls with
// edits render as updates, patch calls with an empty patch list render as
// unchanged, and calls named after the record schema render as new
// records. Parts are joined with a blank line.
func RenderToolInfo(callGroups [][]core.ToolCall, schemaName string) string {
	var parts []string
	for _, group := range callGroups {
		for _, call := range group {
			switch call.Name {
			case tools.PatchDocToolName:
				var args struct {
					JSONDocID    string `json:"json_doc_id"`
					PlannedEdits string `json:"planned_edits"`
					Patches      []struct {
						Value json.RawMessage `json:"value"`
					} `json:"patches"`
				}
				if err := json.Unmarshal(call.Input, &args); err != nil {
					continue
				}
				if len(args.Patches) > 0 {
					parts = append(parts, fmt.Sprintf("Document %s updated:\nPlan: %s\nAdded content: %s",
						args.JSONDocID, args.PlannedEdits, pythonRepr(args.Patches[0].Value)))
				} else {
					parts = append(parts, fmt.Sprintf("Document %s unchanged:\n%s",
						args.JSONDocID, args.PlannedEdits))
				}
			case schemaName:
				parts = append(parts, fmt.Sprintf("New %s created:\nContent: %s",
					schemaName, pythonRepr(call.Input)))
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// pythonRepr renders a JSON value the way Python's repr prints the
// equivalent structure: single-quoted strings, True/False/None, object
// keys in their original order, and numbers as Python prints the parsed
// value rather than as written.
func pythonRepr(raw json.RawMessage) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var sb strings.Builder
	tok, err := dec.Token()
	if err != nil {
		return string(raw)
	}
	if err := writeValue(&sb, dec, tok); err != nil {
		return string(raw)
	}
	return sb.String()
}

func writeValue(sb *strings.Builder, dec *json.Decoder, tok json.Token) error {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return writeObject(sb, dec)
		case '[':
			return writeArray(sb, dec)
		}
		return fmt.Errorf("unexpected delimiter %v", v)
	case string:
		sb.WriteString(pythonStringRepr(v))
	case json.Number:
		sb.WriteString(pythonNumberRepr(v))
	case bool:
		if v {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case nil:
		sb.WriteString("None")
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

// pythonNumberRepr prints n the way Python's repr prints the value json
// parses it into. Integer literals keep their digits; anything with a
// fraction or exponent becomes a float, printed as the shortest string
// that round-trips, with a trailing ".0" on integral values ("1.50"
// prints as 1.5, "1e3" as 1000.0).
func pythonNumberRepr(n json.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', -1, 64) + ".0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeObject(sb *strings.Builder, dec *json.Decoder) error {
	sb.WriteByte('{')
	first := true
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok && d == '}' {
			break
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(pythonStringRepr(key))
		sb.WriteString(": ")
		val, err := dec.Token()
		if err != nil {
			return err
		}
		if err := writeValue(sb, dec, val); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

func writeArray(sb *strings.Builder, dec *json.Decoder) error {
	sb.WriteByte('[')
	first := true
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			break
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		if err := writeValue(sb, dec, tok); err != nil {
			return err
		}
	}
	sb.WriteByte(']')
	return nil
}

// pythonStringRepr quotes s the way Python's repr quotes str values:
// single quotes by default, double quotes when the value contains a
// single quote but no double quote.
func pythonStringRepr(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var sb strings.Builder
	sb.WriteByte(quote)
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case rune(quote):
			sb.WriteByte('\\')
			sb.WriteByte(quote)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}
