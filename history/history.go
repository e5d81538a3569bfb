// Package history persists per-thread conversation state between turns.
package history

import (
	"context"
	"sync"

	"taskpilot/core"
)

// Saver loads and stores the message history of one conversation thread.
// Implementations: InMemory (local), redis.Saver.
//
// The controller serializes turns within a thread, so Saver implementations
// only need to be safe for concurrent use across distinct threads.
type Saver interface {
	// Load returns the thread's messages, oldest first. A thread that has
	// never been saved loads as empty, not as an error.
	Load(ctx context.Context, threadID string) ([]core.Message, error)

	// Save replaces the thread's messages.
	Save(ctx context.Context, threadID string, messages []core.Message) error
}

// InMemory keeps thread history in process memory.
type InMemory struct {
	mu      sync.RWMutex
	threads map[string][]core.Message
}

// NewInMemory creates an empty in-memory saver.
func NewInMemory() *InMemory {
	return &InMemory{threads: make(map[string][]core.Message)}
}

// Load returns a copy of the thread's messages.
func (s *InMemory) Load(ctx context.Context, threadID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.threads[threadID]
	out := make([]core.Message, len(messages))
	copy(out, messages)
	return out, nil
}

// Save replaces the thread's messages.
func (s *InMemory) Save(ctx context.Context, threadID string, messages []core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]core.Message, len(messages))
	copy(stored, messages)
	s.threads[threadID] = stored
	return nil
}
