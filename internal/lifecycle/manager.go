package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wavecrest-planner/internal/store"
	"wavecrest-planner/models"
)

// Manager applies transitions through the entity store. A failed request
// leaves the stored entity untouched.
type Manager struct {
	entities *store.Entities
	logger   *slog.Logger
	clock    func() time.Time
}

func NewManager(entities *store.Entities, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		entities: entities,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Transition moves one entity to req.To.
func (m *Manager) Transition(ctx context.Context, req models.TransitionRequest) (models.TransitionResult, error) {
	switch req.Kind {
	case models.KindIdea:
		return apply(ctx, m, m.entities.Ideas, req,
			func(i *models.Idea) string { return string(i.Status) },
			func(i *models.Idea) error { return CheckIdea(i.Status, models.IdeaStatus(req.To), req.Demote) },
			func(i *models.Idea, at time.Time) {
				i.Status = models.IdeaStatus(req.To)
				i.UpdatedAt = at
			})
	case models.KindScript:
		return apply(ctx, m, m.entities.Scripts, req,
			func(s *models.Script) string { return string(s.Status) },
			func(s *models.Script) error { return CheckScript(s.Status, models.ScriptStatus(req.To), req.Demote) },
			func(s *models.Script, at time.Time) {
				s.Status = models.ScriptStatus(req.To)
				s.UpdatedAt = at
			})
	case models.KindPost:
		return apply(ctx, m, m.entities.Posts, req,
			func(p *models.Post) string { return string(p.Status) },
			func(p *models.Post) error { return CheckPost(p, models.PostStatus(req.To), req.Demote, req.Now) },
			func(p *models.Post, at time.Time) {
				p.Status = models.PostStatus(req.To)
				p.UpdatedAt = at
				if p.Status == models.PostPublished {
					published := at
					p.PublishedAt = &published
				}
			})
	}
	return models.TransitionResult{}, fmt.Errorf("%w: unknown entity kind %q", ErrInvalidTransition, req.Kind)
}

func apply[T models.Record[T]](
	ctx context.Context,
	m *Manager,
	col store.Collection[T],
	req models.TransitionRequest,
	status func(T) string,
	validate func(T) error,
	mutate func(T, time.Time),
) (models.TransitionResult, error) {
	current, err := col.Get(ctx, req.ID)
	if err != nil {
		return models.TransitionResult{}, err
	}
	if req.ExpectedVersion != 0 && req.ExpectedVersion != current.RecordVersion() {
		return models.TransitionResult{}, fmt.Errorf("%s %s expected version %d, stored %d: %w",
			req.Kind, req.ID, req.ExpectedVersion, current.RecordVersion(), store.ErrConflict)
	}
	from := status(current)
	if err := validate(current); err != nil {
		return models.TransitionResult{}, fmt.Errorf("%s %s: %w", req.Kind, req.ID, err)
	}

	at := req.Now
	if at.IsZero() {
		at = m.clock()
	}
	next := current.Clone()
	mutate(next, at)

	saved, err := col.Update(ctx, next)
	if err != nil {
		return models.TransitionResult{}, err
	}

	result := models.TransitionResult{
		Kind:    req.Kind,
		ID:      req.ID,
		From:    from,
		To:      req.To,
		Version: saved.RecordVersion(),
		Demoted: req.Demote,
		At:      at,
	}
	m.record(ctx, req, result)
	return result, nil
}

// record appends the transition to the log. The entity write has already
// succeeded, so a log failure is reported but does not fail the request.
func (m *Manager) record(ctx context.Context, req models.TransitionRequest, res models.TransitionResult) {
	attrs := []any{"kind", res.Kind, "id", res.ID, "from", res.From, "to", res.To, "version", res.Version}
	if res.Demoted {
		m.logger.Warn("entity demoted", append(attrs, "actor", req.Actor, "reason", req.Reason)...)
	} else {
		m.logger.Info("entity transitioned", attrs...)
	}

	if m.entities.Transitions == nil {
		return
	}
	event := &models.TransitionEvent{
		Kind:     res.Kind,
		EntityID: res.ID,
		From:     res.From,
		To:       res.To,
		Demoted:  res.Demoted,
		Actor:    req.Actor,
		Reason:   req.Reason,
		At:       res.At.UTC().Truncate(time.Millisecond),
	}
	history, err := m.entities.Transitions.List(ctx, models.ListFilter{SourceID: res.ID})
	if err != nil {
		m.logger.Error("failed to read transition history", "id", res.ID, "error", err)
		return
	}
	if len(history) > 0 {
		event.PreviousHash = history[len(history)-1].CurrentHash
	}
	event.CurrentHash = event.ComputeHash()
	if _, err := m.entities.Transitions.Create(ctx, event); err != nil {
		m.logger.Error("failed to log transition", "id", res.ID, "error", err)
	}
}

// History returns the logged transitions for one entity, oldest first.
func (m *Manager) History(ctx context.Context, id string) ([]*models.TransitionEvent, error) {
	if m.entities.Transitions == nil {
		return nil, nil
	}
	return m.entities.Transitions.List(ctx, models.ListFilter{SourceID: id})
}

// VerifyHistory recomputes the hash chain of events.
func VerifyHistory(events []*models.TransitionEvent) error {
	prev := ""
	for _, e := range events {
		if e.PreviousHash != prev {
			return fmt.Errorf("transition %s: chain broken", e.ID)
		}
		if e.ComputeHash() != e.CurrentHash {
			return fmt.Errorf("transition %s: hash mismatch", e.ID)
		}
		prev = e.CurrentHash
	}
	return nil
}
