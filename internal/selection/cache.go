// Package selection keeps the set of followed coin ids: at most MaxFollowed,
// unique, in follow order, persisted after every change.
package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

const (
	// MaxFollowed caps how many coins can be followed at once.
	MaxFollowed = 5
	// StorageKey is the single key the followed ids are stored under.
	StorageKey = "selected_coins"
)

// Store is the durable key-value store the cache persists to.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Result is what Toggle reports back. LimitReached means the id was not
// added because MaxFollowed coins are already followed; the caller should
// ask the user to unfollow one first.
type Result struct {
	IDs          []string `json:"ids"`
	LimitReached bool     `json:"limitReached"`
}

// Cache is the followed set, safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	store  Store
	ids    []string
	logger *zap.Logger
}

// New creates a Cache and loads the persisted set once.
func New(ctx context.Context, store Store, logger *zap.Logger) *Cache {
	c := &Cache{store: store, logger: logger}
	c.Load(ctx)
	return c
}

// Load re-reads the store. Missing, unreadable or corrupt data is treated
// as an empty selection and is never reported as an error.
func (c *Cache) Load(ctx context.Context) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.read(ctx)
	if err != nil {
		c.logger.Warn("failed to read followed set, treating as empty", zap.Error(err))
	}
	c.ids = ids
	return slices.Clone(c.ids)
}

// Toggle unfollows id if it is followed, otherwise follows it if there is
// room. Removal is always allowed. The error is non-nil only when the store
// rejects the write, in which case the followed set is left as it was.
func (c *Cache) Toggle(ctx context.Context, id string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.read(ctx)
	if err != nil {
		// keep working from memory rather than overwrite the stored set
		c.logger.Warn("failed to re-read followed set, using cached ids", zap.Error(err))
		current = slices.Clone(c.ids)
	}

	var next []string
	switch {
	case slices.Contains(current, id):
		next = slices.DeleteFunc(slices.Clone(current), func(s string) bool { return s == id })
	case len(current) >= MaxFollowed:
		c.ids = current
		return Result{IDs: slices.Clone(current), LimitReached: true}, nil
	default:
		next = append(slices.Clone(current), id)
	}

	if err := c.write(ctx, next); err != nil {
		c.ids = current
		return Result{IDs: slices.Clone(current)}, err
	}

	c.ids = next
	c.logger.Debug("followed set changed", zap.String("id", id), zap.Strings("ids", next))
	return Result{IDs: slices.Clone(next)}, nil
}

// IDs returns a copy of the followed ids in follow order.
func (c *Cache) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ids)
}

// read returns an error only when the store itself fails; corrupt data
// reads as an empty set.
func (c *Cache) read(ctx context.Context) ([]string, error) {
	raw, ok, err := c.store.Get(ctx, StorageKey)
	if err != nil {
		return []string{}, fmt.Errorf("read followed set: %w", err)
	}
	if !ok {
		return []string{}, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		c.logger.Warn("corrupt followed set in storage, treating as empty", zap.Error(err))
		return []string{}, nil
	}
	return normalize(ids), nil
}

func (c *Cache) write(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode followed set: %w", err)
	}
	if err := c.store.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("persist followed set: %w", err)
	}
	return nil
}

// normalize drops duplicates (keeping the first occurrence) and anything
// past MaxFollowed, so hand-edited storage cannot break the invariants.
func normalize(ids []string) []string {
	out := make([]string, 0, min(len(ids), MaxFollowed))
	for _, id := range ids {
		if len(out) == MaxFollowed {
			break
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
