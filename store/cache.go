package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/dgraph-io/ristretto"
)

// Cached is a read-through cache over another Store. Each chat turn reads
// the profile, todo, and instructions namespaces before every assistant
// step, so repeated turns against the same thread hit the backend once per
// mutation rather than once per read.
//
// Cache keys carry a per-namespace generation that Put bumps after writing
// through. A fill computed from a pre-Put backend read lands under the old
// generation and is never read again, so a Get or Search racing a Put can
// not resurrect the old value: reads after a returned Put always observe
// the write (the exactly-once-visible contract of the Store boundary).
type Cached struct {
	backend Store
	cache   *ristretto.Cache

	mu   sync.Mutex
	gens map[string]uint64
}

// NewCached wraps backend with a ristretto cache.
func NewCached(backend Store) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     64 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cached{
		backend: backend,
		cache:   cache,
		gens:    make(map[string]uint64),
	}, nil
}

func (c *Cached) generation(ns Namespace) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[ns.String()]
}

func (c *Cached) bumpGeneration(ns Namespace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[ns.String()]++
}

func itemKey(ns Namespace, gen uint64, key string) string {
	return "item:" + strconv.FormatUint(gen, 10) + ":" + ns.String() + "/" + key
}

func searchKey(ns Namespace, gen uint64) string {
	return "search:" + strconv.FormatUint(gen, 10) + ":" + ns.String()
}

// Search returns the namespace's records, serving from cache when possible.
// Returned items are copies; callers cannot mutate cached state.
func (c *Cached) Search(ctx context.Context, ns Namespace) ([]Item, error) {
	gen := c.generation(ns)
	if cached, ok := c.cache.Get(searchKey(ns, gen)); ok {
		if items, ok := cached.([]Item); ok {
			return cloneItems(items), nil
		}
	}

	items, err := c.backend.Search(ctx, ns)
	if err != nil {
		return nil, err
	}
	c.cache.Set(searchKey(ns, gen), cloneItems(items), searchCost(items))
	return items, nil
}

// Get retrieves a single record, serving from cache when possible.
func (c *Cached) Get(ctx context.Context, ns Namespace, key string) (json.RawMessage, bool, error) {
	gen := c.generation(ns)
	if cached, ok := c.cache.Get(itemKey(ns, gen, key)); ok {
		if value, ok := cached.(json.RawMessage); ok {
			return cloneValue(value), true, nil
		}
	}

	value, found, err := c.backend.Get(ctx, ns, key)
	if err != nil || !found {
		return value, found, err
	}
	c.cache.Set(itemKey(ns, gen, key), cloneValue(value), int64(len(value)))
	return value, true, nil
}

// Put writes through to the backend, then retires the namespace's cached
// generation. In-flight fills from pre-Put reads land under the retired
// generation and stay unreachable until evicted.
func (c *Cached) Put(ctx context.Context, ns Namespace, key string, value json.RawMessage) error {
	if err := c.backend.Put(ctx, ns, key, value); err != nil {
		return err
	}
	c.bumpGeneration(ns)
	return nil
}

// Close releases the cache and the backend.
func (c *Cached) Close() error {
	c.cache.Close()
	return c.backend.Close()
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = Item{Key: item.Key, Value: cloneValue(item.Value)}
	}
	return out
}

func searchCost(items []Item) int64 {
	cost := int64(1)
	for _, item := range items {
		cost += int64(len(item.Key) + len(item.Value))
	}
	return cost
}
