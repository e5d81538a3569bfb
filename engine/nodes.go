package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"taskpilot/core"
	"taskpilot/extract"
	"taskpilot/provider"
	"taskpilot/store"
	"taskpilot/tools"
)

// The reconciliation nodes are only reachable through the routing
// transition, so the last conversation message always carries the routing
// tool call. Each node still checks, because entering a node without one
// is a broken invariant worth failing loudly on.

func (e *Engine) updateProfile(ctx context.Context, userID string, conversation []core.Message) (string, error) {
	if _, ok := conversation[len(conversation)-1].LastToolCall(); !ok {
		return "", core.ErrMissingToolCallID
	}
	ns := store.For(store.CollectionProfile, userID)

	existing, err := e.existingRecords(ctx, ns, tools.ProfileSchema)
	if err != nil {
		return "", err
	}

	extractor := extract.New(e.client, tools.ProfileTool())
	results, err := extractor.Extract(ctx, &extract.Request{
		Instruction: reconcileInstruction(e.now()),
		Messages:    conversation[:len(conversation)-1],
		Existing:    existing,
	})
	if err != nil {
		return "", err
	}

	if err := e.persist(ctx, ns, results); err != nil {
		return "", err
	}
	return "updated profile", nil
}

func (e *Engine) updateTodos(ctx context.Context, userID string, conversation []core.Message) (string, error) {
	if _, ok := conversation[len(conversation)-1].LastToolCall(); !ok {
		return "", core.ErrMissingToolCallID
	}
	ns := store.For(store.CollectionTodo, userID)

	existing, err := e.existingRecords(ctx, ns, tools.TodoSchema)
	if err != nil {
		return "", err
	}

	collector := extract.NewCollector()
	extractor := extract.New(e.client, tools.TodoTool(),
		extract.WithInserts(),
		extract.WithListener(collector.OnCalls),
	)
	results, err := extractor.Extract(ctx, &extract.Request{
		Instruction: reconcileInstruction(e.now()),
		Messages:    conversation[:len(conversation)-1],
		Existing:    existing,
	})
	if err != nil {
		return "", err
	}

	if err := e.persist(ctx, ns, results); err != nil {
		return "", err
	}
	return extract.RenderToolInfo(collector.CallGroups(), tools.TodoSchema), nil
}

func (e *Engine) updateInstructions(ctx context.Context, userID string, conversation []core.Message) (string, error) {
	if _, ok := conversation[len(conversation)-1].LastToolCall(); !ok {
		return "", core.ErrMissingToolCallID
	}
	ns := store.For(store.CollectionInstructions, userID)

	raw, ok, err := e.store.Get(ctx, ns, core.InstructionsKey)
	if err != nil {
		return "", &core.StoreError{Op: "get instructions", Err: err}
	}
	current := ""
	if ok {
		var ins core.Instructions
		if err := json.Unmarshal(raw, &ins); err == nil {
			current = ins.Memory
		}
	}

	// The routing message is stripped and replaced with an explicit
	// request, so the model answers with the rewritten text alone.
	messages := append([]core.Message(nil), conversation[:len(conversation)-1]...)
	messages = append(messages, core.UserMessage(instructionsUpdateRequest))

	reply, err := e.client.Generate(ctx, &provider.Request{
		System:   rewriteInstructionsSystem(current),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("rewrite instructions: %w", err)
	}

	value, err := json.Marshal(core.Instructions{Memory: reply.Text})
	if err != nil {
		return "", fmt.Errorf("encode instructions: %w", err)
	}
	if err := e.store.Put(ctx, ns, core.InstructionsKey, value); err != nil {
		return "", &core.StoreError{Op: "put instructions", Err: err}
	}
	return "updated instructions", nil
}

// existingRecords loads a namespace's records as extractor references.
func (e *Engine) existingRecords(ctx context.Context, ns store.Namespace, schema string) ([]extract.Existing, error) {
	items, err := e.store.Search(ctx, ns)
	if err != nil {
		return nil, &core.StoreError{Op: "search " + string(ns.Collection), Err: err}
	}
	existing := make([]extract.Existing, len(items))
	for i, item := range items {
		existing[i] = extract.Existing{Key: item.Key, Schema: schema, Value: item.Value}
	}
	return existing, nil
}

// persist writes extractor results into the namespace. Results without a
// key are new records and get a fresh id.
func (e *Engine) persist(ctx context.Context, ns store.Namespace, results []extract.Result) error {
	for _, r := range results {
		key := r.Key
		if key == "" {
			key = uuid.NewString()
		}
		if err := e.store.Put(ctx, ns, key, r.Value); err != nil {
			return &core.StoreError{Op: "put " + string(ns.Collection), Err: err}
		}
	}
	if len(results) > 0 {
		log.Printf("[ENGINE] persisted %d %s record(s)", len(results), ns.Collection)
	}
	return nil
}
