package history_test

import (
	"context"
	"testing"

	"taskpilot/core"
	"taskpilot/history"
)

func TestInMemory_LoadEmptyThread(t *testing.T) {
	h := history.NewInMemory()

	messages, err := h.Load(context.Background(), "u1_t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("got %d messages, want 0", len(messages))
	}
}

func TestInMemory_SaveThenLoad(t *testing.T) {
	h := history.NewInMemory()
	ctx := context.Background()

	saved := []core.Message{
		core.UserMessage("hi"),
		core.AssistantMessage("hello"),
	}
	if err := h.Save(ctx, "u1_t1", saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := h.Load(ctx, "u1_t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d messages, want 2", len(loaded))
	}
	if loaded[0].Content != "hi" || loaded[1].Content != "hello" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestInMemory_ThreadsAreIsolated(t *testing.T) {
	h := history.NewInMemory()
	ctx := context.Background()

	if err := h.Save(ctx, "u1_t1", []core.Message{core.UserMessage("hi")}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other, err := h.Load(ctx, "u2_t1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("thread u2_t1 sees %d messages", len(other))
	}
}

func TestInMemory_SaveOverwrites(t *testing.T) {
	h := history.NewInMemory()
	ctx := context.Background()

	h.Save(ctx, "u1_t1", []core.Message{core.UserMessage("one")})
	h.Save(ctx, "u1_t1", []core.Message{
		core.UserMessage("one"),
		core.AssistantMessage("two"),
	})

	loaded, _ := h.Load(ctx, "u1_t1")
	if len(loaded) != 2 {
		t.Errorf("got %d messages, want 2", len(loaded))
	}
}

func TestInMemory_LoadReturnsCopy(t *testing.T) {
	h := history.NewInMemory()
	ctx := context.Background()

	h.Save(ctx, "u1_t1", []core.Message{core.UserMessage("hi")})

	loaded, _ := h.Load(ctx, "u1_t1")
	loaded[0].Content = "mutated"

	again, _ := h.Load(ctx, "u1_t1")
	if again[0].Content != "hi" {
		t.Errorf("stored history mutated: %q", again[0].Content)
	}
}
