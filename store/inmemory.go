package store

import (
	"context"
	"encoding/json"
	"sync"
)

// InMemory is the in-process Store implementation, suitable for local
// development and tests. Records are kept per namespace in insertion order.
type InMemory struct {
	mu         sync.RWMutex
	namespaces map[string]*namespaceData
}

type namespaceData struct {
	values map[string]json.RawMessage
	order  []string
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		namespaces: make(map[string]*namespaceData),
	}
}

// Search returns all records in the namespace in insertion order.
func (s *InMemory) Search(ctx context.Context, ns Namespace) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.namespaces[ns.String()]
	if !ok {
		return nil, nil
	}

	items := make([]Item, 0, len(data.order))
	for _, key := range data.order {
		items = append(items, Item{Key: key, Value: cloneValue(data.values[key])})
	}
	return items, nil
}

// Get retrieves a single record by key.
func (s *InMemory) Get(ctx context.Context, ns Namespace, key string) (json.RawMessage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.namespaces[ns.String()]
	if !ok {
		return nil, false, nil
	}
	value, ok := data.values[key]
	if !ok {
		return nil, false, nil
	}
	return cloneValue(value), true, nil
}

// Put creates or replaces a record. Replacing keeps the original position.
func (s *InMemory) Put(ctx context.Context, ns Namespace, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.namespaces[ns.String()]
	if !ok {
		data = &namespaceData{values: make(map[string]json.RawMessage)}
		s.namespaces[ns.String()] = data
	}
	if _, exists := data.values[key]; !exists {
		data.order = append(data.order, key)
	}
	data.values[key] = cloneValue(value)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemory) Close() error {
	return nil
}

// cloneValue copies a raw value so callers cannot mutate stored bytes.
func cloneValue(value json.RawMessage) json.RawMessage {
	if value == nil {
		return nil
	}
	out := make(json.RawMessage, len(value))
	copy(out, value)
	return out
}
