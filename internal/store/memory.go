package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"wavecrest-planner/models"
)

// MemoryCollection keeps records in a map guarded by a RWMutex. It backs
// tests and the STORE_BACKEND=memory development mode.
type MemoryCollection[T models.Record[T]] struct {
	mu      sync.RWMutex
	records map[string]T
}

func NewMemoryCollection[T models.Record[T]]() *MemoryCollection[T] {
	return &MemoryCollection[T]{records: make(map[string]T)}
}

func (c *MemoryCollection[T]) Create(ctx context.Context, rec T) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored := rec.Clone()
	if stored.RecordID() == "" {
		stored.SetRecordID(NewID())
	}
	stored.SetRecordVersion(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.records[stored.RecordID()]; exists {
		return "", fmt.Errorf("create %s: %w", stored.RecordID(), ErrConflict)
	}
	c.records[stored.RecordID()] = stored
	return stored.RecordID(), nil
}

func (c *MemoryCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	if !ok {
		return zero, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return rec.Clone(), nil
}

func (c *MemoryCollection[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	id := rec.RecordID()

	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.records[id]
	if !ok {
		return zero, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if current.RecordVersion() != rec.RecordVersion() {
		return zero, fmt.Errorf("update %s at version %d (stored %d): %w",
			id, rec.RecordVersion(), current.RecordVersion(), ErrConflict)
	}
	stored := rec.Clone()
	stored.SetRecordVersion(current.RecordVersion() + 1)
	c.records[id] = stored
	return stored.Clone(), nil
}

func (c *MemoryCollection[T]) List(ctx context.Context, f models.ListFilter) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	out := make([]T, 0, len(c.records))
	for _, rec := range c.records {
		if rec.Matches(f) {
			out = append(out, rec.Clone())
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SortKey() < out[j].SortKey() })
	return out, nil
}

func (c *MemoryCollection[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(c.records, id)
	return nil
}
