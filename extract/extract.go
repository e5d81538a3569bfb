// Package extract maps free-text conversation plus existing structured
// records onto a minimal set of mutations: patch an existing record, create
// a new one, or explicitly state that a referenced record needs no change.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"taskpilot/core"
	"taskpilot/provider"
	"taskpilot/tools"
)

// Existing references one already-stored record handed to the model so it
// can decide patch vs. insert. Rebuilt from the store on every call.
type Existing struct {
	Key    string
	Schema string
	Value  json.RawMessage
}

// Request is one reconciliation invocation.
type Request struct {
	// Instruction is the reflection instruction placed in the system
	// context ahead of the reconciliation protocol.
	Instruction string

	// Messages is the conversation to extract from. The caller strips the
	// trailing routing message before building the request.
	Messages []core.Message

	// Existing lists the records already stored in the target namespace.
	Existing []Existing
}

// Result is one mutation to persist. An empty Key means a new record; the
// caller assigns a fresh id. No-op acknowledgements produce no Result.
type Result struct {
	Key   string
	Value json.RawMessage
}

// Listener observes the raw tool calls of one model response. One call per
// response; the calls form one group for audit rendering.
type Listener func(group []core.ToolCall)

// Extractor runs the reconciliation protocol for one target schema.
type Extractor struct {
	client       provider.Client
	schema       core.ToolDefinition
	allowInserts bool
	listener     Listener
	maxAttempts  int
}

// Option configures the extractor.
type Option func(*Extractor)

// WithInserts permits wholly new records, not just patches to existing ones.
func WithInserts() Option {
	return func(e *Extractor) {
		e.allowInserts = true
	}
}

// WithListener registers a sink for the raw tool calls of every attempt.
func WithListener(l Listener) Option {
	return func(e *Extractor) {
		e.listener = l
	}
}

// WithMaxAttempts overrides how many self-correction rounds are allowed.
func WithMaxAttempts(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// New creates an extractor targeting the given schema tool.
func New(client provider.Client, schema core.ToolDefinition, opts ...Option) *Extractor {
	e := &Extractor{
		client:      client,
		schema:      schema,
		maxAttempts: 2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the model for mutations and validates them. Invalid calls
// are fed back as tool errors for one self-correction round; a round that
// still fails raises an ExtractionError. Valid mutations are returned in
// emission order and are not deduplicated across calls.
func (e *Extractor) Extract(ctx context.Context, req *Request) ([]Result, error) {
	toolset := []core.ToolDefinition{e.schema}
	if len(req.Existing) > 0 {
		toolset = append([]core.ToolDefinition{tools.PatchDocTool()}, toolset...)
	}

	system := e.buildSystem(req)
	messages := append([]core.Message(nil), req.Messages...)

	for attempt := 1; ; attempt++ {
		reply, err := e.client.Generate(ctx, &provider.Request{
			System:     system,
			Messages:   messages,
			Tools:      toolset,
			ToolChoice: provider.ToolChoiceRequired,
		})
		if err != nil {
			return nil, &core.ExtractionError{Err: err}
		}
		if e.listener != nil {
			e.listener(reply.ToolCalls)
		}

		results, faults := e.parseCalls(reply.ToolCalls, req.Existing)
		if len(faults) == 0 {
			return results, nil
		}
		if attempt >= e.maxAttempts {
			return nil, &core.ExtractionError{
				Err: fmt.Errorf("invalid tool calls after %d attempts: %s", attempt, strings.Join(faultMessages(faults), "; ")),
			}
		}

		log.Printf("[EXTRACT] attempt %d produced %d invalid calls, retrying", attempt, len(faults))
		messages = appendCorrection(messages, reply, faults)
	}
}

type callFault struct {
	call    core.ToolCall
	message string
}

func faultMessages(faults []callFault) []string {
	msgs := make([]string, len(faults))
	for i, f := range faults {
		msgs[i] = f.message
	}
	return msgs
}

// parseCalls validates every emitted call and converts it to mutations.
func (e *Extractor) parseCalls(calls []core.ToolCall, existing []Existing) ([]Result, []callFault) {
	var results []Result
	var faults []callFault

	for _, call := range calls {
		switch call.Name {
		case tools.PatchDocToolName:
			result, noop, err := e.parsePatchCall(call, existing)
			if err != nil {
				faults = append(faults, callFault{call: call, message: err.Error()})
				continue
			}
			if noop {
				continue
			}
			results = append(results, result)

		case e.schema.ToolName:
			if !json.Valid(call.Input) {
				faults = append(faults, callFault{call: call, message: fmt.Sprintf("%s: invalid JSON payload", call.Name)})
				continue
			}
			results = append(results, Result{Value: call.Input})

		default:
			faults = append(faults, callFault{call: call, message: fmt.Sprintf("unknown tool %q", call.Name)})
		}
	}
	return results, faults
}

func (e *Extractor) parsePatchCall(call core.ToolCall, existing []Existing) (Result, bool, error) {
	var args struct {
		JSONDocID    string    `json:"json_doc_id"`
		PlannedEdits string    `json:"planned_edits"`
		Patches      []patchOp `json:"patches"`
	}
	if err := json.Unmarshal(call.Input, &args); err != nil {
		return Result{}, false, fmt.Errorf("PatchDoc: decode arguments: %w", err)
	}

	var target *Existing
	for i := range existing {
		if existing[i].Key == args.JSONDocID {
			target = &existing[i]
			break
		}
	}
	if target == nil {
		return Result{}, false, fmt.Errorf("PatchDoc: no existing document with id %q", args.JSONDocID)
	}

	// An empty patch list is the explicit no-op acknowledgement.
	if len(args.Patches) == 0 {
		return Result{}, true, nil
	}

	patched, err := applyPatches(target.Value, args.Patches)
	if err != nil {
		return Result{}, false, fmt.Errorf("PatchDoc: apply to %q: %w", args.JSONDocID, err)
	}
	return Result{Key: args.JSONDocID, Value: patched}, false, nil
}

// appendCorrection extends the conversation with the failed assistant turn
// and per-call tool results so the model can self-correct.
func appendCorrection(messages []core.Message, reply *provider.Reply, faults []callFault) []core.Message {
	faultByID := make(map[string]string, len(faults))
	for _, f := range faults {
		faultByID[f.call.ID] = f.message
	}

	messages = append(messages, core.Message{
		Role:      core.RoleAssistant,
		Content:   reply.Text,
		ToolCalls: reply.ToolCalls,
	})
	for _, call := range reply.ToolCalls {
		content := "ok"
		if msg, ok := faultByID[call.ID]; ok {
			content = "Error: " + msg + ". Fix the call and try again."
		}
		messages = append(messages, core.ToolMessage(content, call.ID))
	}
	return messages
}

func (e *Extractor) buildSystem(req *Request) string {
	var b strings.Builder
	b.WriteString(req.Instruction)

	if len(req.Existing) > 0 {
		b.WriteString("\n\n<existing_documents>\n")
		for _, doc := range req.Existing {
			fmt.Fprintf(&b, "- id: %s\n  schema: %s\n  value: %s\n", doc.Key, doc.Schema, doc.Value)
		}
		b.WriteString("</existing_documents>\n\n")
		b.WriteString("Any new information already describable by one of the existing documents " +
			"must be expressed as a PatchDoc call against that document's id. ")
		if e.allowInserts {
			fmt.Fprintf(&b, "Information with no matching existing document must be emitted as a new %s call. ", e.schema.ToolName)
		} else {
			fmt.Fprintf(&b, "Do not create additional documents; keep all information within the existing %s document. ", e.schema.ToolName)
		}
		b.WriteString("If a document is relevant but nothing about it needs to change, emit a PatchDoc " +
			"call with an empty patches list and a one-line planned_edits explaining that no changes are needed.")
	} else {
		fmt.Fprintf(&b, "\n\nThere are no existing documents. Emit %s calls for the information found in the conversation.", e.schema.ToolName)
	}

	return b.String()
}
