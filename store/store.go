package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection names the three durable memory collections.
type Collection string

const (
	CollectionProfile      Collection = "profile"
	CollectionTodo         Collection = "todo"
	CollectionInstructions Collection = "instructions"
)

// Namespace isolates one user's records within one collection. Records in
// one namespace never leak into another.
type Namespace struct {
	Collection Collection
	UserID     string
}

// For builds the namespace for a collection and user.
func For(collection Collection, userID string) Namespace {
	return Namespace{Collection: collection, UserID: userID}
}

func (n Namespace) String() string {
	return fmt.Sprintf("%s/%s", n.Collection, n.UserID)
}

// Item is one persisted record: its id within the namespace and its value.
type Item struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Store is the namespaced key-value persistence backend.
// Implementations: InMemory (local), mongo.Store, postgres.Store.
//
// Writes are exactly-once-visible after Put returns. Each record write is
// its own atomic unit; there is no transaction spanning multiple records.
// Concurrent writes to the same (namespace, key) have last-write-wins
// ordering.
type Store interface {
	// Search returns every record in the namespace, ordered by creation time.
	Search(ctx context.Context, ns Namespace) ([]Item, error)

	// Get retrieves a single record. The second return reports presence.
	Get(ctx context.Context, ns Namespace, key string) (json.RawMessage, bool, error)

	// Put creates or replaces a record.
	Put(ctx context.Context, ns Namespace, key string, value json.RawMessage) error

	// Close releases resources.
	Close() error
}
