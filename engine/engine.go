// Package engine runs the conversation loop: answer the user, decide
// whether a memory collection needs updating, reconcile it, and resume
// with the refreshed context.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"taskpilot/core"
	"taskpilot/history"
	"taskpilot/provider"
	"taskpilot/store"
	"taskpilot/tools"
)

const defaultMaxSteps = 10

// Engine is the per-turn state machine. One Engine serves many users;
// turns within a single (user, thread) pair are serialized.
type Engine struct {
	client   provider.Client
	store    store.Store
	history  history.Saver
	now      func() time.Time
	maxSteps int
	threads  sync.Map // thread key -> *sync.Mutex
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the wall clock used in reflection instructions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMaxSteps caps how many assistant steps one turn may take.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// NewEngine creates an engine over the given model client, record store,
// and conversation history backend.
func NewEngine(client provider.Client, st store.Store, hist history.Saver, opts ...Option) *Engine {
	e := &Engine{
		client:   client,
		store:    st,
		history:  hist,
		now:      time.Now,
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// routeKind is the assistant step's decision: end the turn or hand off to
// one of the reconciliation nodes.
type routeKind int

const (
	routeNone routeKind = iota
	routeProfile
	routeTodos
	routeInstructions
)

// routing pairs the decision with the tool call that carried it, so the
// confirmation can answer that call's id.
type routing struct {
	kind routeKind
	call core.ToolCall
}

// routeOf reads the routing decision off a model reply. No tool call
// means the turn ends; anything other than a well-formed UpdateMemory
// call is a fatal routing error.
func routeOf(reply *provider.Reply) (routing, error) {
	if len(reply.ToolCalls) == 0 {
		return routing{kind: routeNone}, nil
	}

	call := reply.ToolCalls[0]
	if call.Name != tools.RoutingToolName {
		return routing{}, &core.InvalidRoutingDecisionError{Value: call.Name}
	}

	var args struct {
		UpdateType string `json:"update_type"`
	}
	if err := json.Unmarshal(call.Input, &args); err != nil {
		return routing{}, &core.InvalidRoutingDecisionError{Value: string(call.Input)}
	}

	switch args.UpdateType {
	case tools.UpdateUser:
		return routing{kind: routeProfile, call: call}, nil
	case tools.UpdateTodo:
		return routing{kind: routeTodos, call: call}, nil
	case tools.UpdateInstructions:
		return routing{kind: routeInstructions, call: call}, nil
	default:
		return routing{}, &core.InvalidRoutingDecisionError{Value: args.UpdateType}
	}
}

// ProcessTurn runs one full conversational turn for the given user and
// thread and returns the assistant's final text. The turn either succeeds
// completely, with history saved and all requested memory updates
// persisted, or fails with an error and leaves history untouched.
func (e *Engine) ProcessTurn(ctx context.Context, userID, threadID, text string) (string, error) {
	if userID == "" {
		return "", core.ErrMissingUserContext
	}

	threadKey := userID + "_" + threadID
	lock := e.threadLock(threadKey)
	lock.Lock()
	defer lock.Unlock()

	messages, err := e.history.Load(ctx, threadKey)
	if err != nil {
		return "", fmt.Errorf("load history for %s: %w", threadKey, err)
	}
	messages = append(messages, core.UserMessage(text))

	for step := 1; step <= e.maxSteps; step++ {
		system, err := e.buildAssistantSystem(ctx, userID)
		if err != nil {
			return "", err
		}

		reply, err := e.client.Generate(ctx, &provider.Request{
			System:                 system,
			Messages:               messages,
			Tools:                  []core.ToolDefinition{tools.RoutingTool()},
			ToolChoice:             provider.ToolChoiceAuto,
			DisableParallelToolUse: true,
		})
		if err != nil {
			return "", fmt.Errorf("assistant step %d: %w", step, err)
		}

		route, err := routeOf(reply)
		if err != nil {
			return "", err
		}

		messages = append(messages, core.Message{
			Role:      core.RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})

		if route.kind == routeNone {
			if err := e.history.Save(ctx, threadKey, messages); err != nil {
				return "", fmt.Errorf("save history for %s: %w", threadKey, err)
			}
			return reply.Text, nil
		}

		confirmation, err := e.dispatch(ctx, route.kind, userID, messages)
		if err != nil {
			return "", err
		}
		messages = append(messages, core.ToolMessage(confirmation, route.call.ID))
	}

	return "", fmt.Errorf("turn did not settle after %d assistant steps", e.maxSteps)
}

func (e *Engine) dispatch(ctx context.Context, kind routeKind, userID string, conversation []core.Message) (string, error) {
	switch kind {
	case routeProfile:
		log.Printf("[ENGINE] routing to profile update for user %s", userID)
		return e.updateProfile(ctx, userID, conversation)
	case routeTodos:
		log.Printf("[ENGINE] routing to todo update for user %s", userID)
		return e.updateTodos(ctx, userID, conversation)
	case routeInstructions:
		log.Printf("[ENGINE] routing to instructions update for user %s", userID)
		return e.updateInstructions(ctx, userID, conversation)
	default:
		return "", fmt.Errorf("unhandled route %d", kind)
	}
}

// buildAssistantSystem loads the three memory collections and renders the
// assistant-step system context from them.
func (e *Engine) buildAssistantSystem(ctx context.Context, userID string) (string, error) {
	profileItems, err := e.store.Search(ctx, store.For(store.CollectionProfile, userID))
	if err != nil {
		return "", &core.StoreError{Op: "search profile", Err: err}
	}
	profile := ""
	if len(profileItems) > 0 {
		profile = string(profileItems[0].Value)
	}

	todoItems, err := e.store.Search(ctx, store.For(store.CollectionTodo, userID))
	if err != nil {
		return "", &core.StoreError{Op: "search todo", Err: err}
	}
	lines := make([]string, len(todoItems))
	for i, item := range todoItems {
		lines[i] = string(item.Value)
	}
	todos := strings.Join(lines, "\n")

	raw, ok, err := e.store.Get(ctx, store.For(store.CollectionInstructions, userID), core.InstructionsKey)
	if err != nil {
		return "", &core.StoreError{Op: "get instructions", Err: err}
	}
	instructions := ""
	if ok {
		var ins core.Instructions
		if err := json.Unmarshal(raw, &ins); err == nil {
			instructions = ins.Memory
		}
	}

	return assistantSystem(profile, todos, instructions), nil
}

func (e *Engine) threadLock(key string) *sync.Mutex {
	actual, _ := e.threads.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
