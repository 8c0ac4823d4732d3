// Package store persists plannable entities keyed by id. It carries no
// business rules: callers enforce lifecycle and placement semantics.
package store

import (
	"context"
	"errors"

	"wavecrest-planner/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an id is unknown to the collection.
	ErrNotFound = errors.New("entity not found")
	// ErrConflict is returned when an update was prepared against a version
	// that is no longer the stored one.
	ErrConflict = errors.New("conflict detected: entity was modified concurrently")
)

// Collection is the entity store contract. Every mutation is atomic per
// entity, reads return detached copies, and List is stable-ordered by the
// record's sort key (date then id for dated records, id otherwise).
type Collection[T models.Record[T]] interface {
	// Create assigns a fresh id and version 1, then stores rec.
	Create(ctx context.Context, rec T) (string, error)
	Get(ctx context.Context, id string) (T, error)
	// Update replaces the stored record when rec's version matches the stored
	// version, and returns the stored copy with its version incremented.
	Update(ctx context.Context, rec T) (T, error)
	List(ctx context.Context, f models.ListFilter) ([]T, error)
	Delete(ctx context.Context, id string) error
}

// Entities groups the collections a planning session works against.
type Entities struct {
	Ideas       Collection[*models.Idea]
	Scripts     Collection[*models.Script]
	Posts       Collection[*models.Post]
	Metrics     Collection[*models.MetricSnapshot]
	Competitors Collection[*models.CompetitorSnapshot]
	Transitions Collection[*models.TransitionEvent]
}

// NewMemoryEntities builds a fully in-memory entity set.
func NewMemoryEntities() *Entities {
	return &Entities{
		Ideas:       NewMemoryCollection[*models.Idea](),
		Scripts:     NewMemoryCollection[*models.Script](),
		Posts:       NewMemoryCollection[*models.Post](),
		Metrics:     NewMemoryCollection[*models.MetricSnapshot](),
		Competitors: NewMemoryCollection[*models.CompetitorSnapshot](),
		Transitions: NewMemoryCollection[*models.TransitionEvent](),
	}
}

// NewID returns a time-ordered UUID so id order follows creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
