// Package calendar places caller-chosen candidates into a month of posts.
// It never picks dates, platforms or pillars itself.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wavecrest-planner/internal/store"
	"wavecrest-planner/models"
)

var (
	// ErrSourceNotSelected marks a candidate whose script or idea is not in
	// Selected status. It is reported on the rejection, never returned.
	ErrSourceNotSelected = errors.New("source not selected")
	ErrMissingSource     = errors.New("candidate has no source script or idea")
	ErrPillarMismatch    = errors.New("candidate pillar does not match its source")
	ErrOutOfMonth        = errors.New("candidate date outside target month")
	ErrInvalidCandidate  = errors.New("invalid candidate")
)

type Builder struct {
	entities *store.Entities
	logger   *slog.Logger
	clock    func() time.Time
}

func NewBuilder(entities *store.Entities, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		entities: entities,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// occupancy tracks which active posts hold each (date, platform) slot.
type occupancy map[string][]string

func slotKey(date time.Time, p models.Platform) string {
	return models.DateOf(date).Format(models.DateLayout) + "|" + string(p)
}

func (o occupancy) holders(date time.Time, p models.Platform) []string {
	var ids []string
	for _, slot := range p.Slots() {
		for _, id := range o[slotKey(date, slot)] {
			if !containsID(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (o occupancy) take(date time.Time, p models.Platform, id string) {
	for _, slot := range p.Slots() {
		key := slotKey(date, slot)
		o[key] = append(o[key], id)
	}
}

// SlotHolders returns the ids of active posts, other than self, that hold
// date on any slot of platform. Both occupies Instagram and Facebook.
func SlotHolders(posts []*models.Post, self string, date time.Time, platform models.Platform) []string {
	occupied := occupancy{}
	for _, p := range posts {
		if p.ID == self || !p.Active() {
			continue
		}
		occupied.take(p.Date, p.Platform, p.ID)
	}
	return occupied.holders(date, platform)
}

// CollisionWarning reports post sharing its slot with holders. index is -1
// outside a build.
func CollisionWarning(index int, post *models.Post, holders []string) models.PlacementWarning {
	date := post.Date
	return models.PlacementWarning{
		Kind:           models.WarnCollision,
		CandidateIndex: index,
		Date:           &date,
		Platform:       post.Platform,
		PostID:         post.ID,
		ConflictingIDs: holders,
		Message: fmt.Sprintf("%s on %s already holds %d active post(s); placed anyway for manual resolution",
			post.Platform, date.Format(models.DateLayout), len(holders)),
	}
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Build places every eligible candidate in order, persisting one post per
// placed candidate. Ineligible candidates are rejected with a warning and
// the build continues; colliding candidates are still placed and flagged.
// Only store failures abort the build, and an aborted build deletes the posts
// it already created.
func (b *Builder) Build(ctx context.Context, req models.BuildRequest) (models.BuildResult, error) {
	result := models.BuildResult{
		Created:  []string{},
		Rejected: []models.Rejection{},
		Warnings: []models.PlacementWarning{},
	}
	if req.Month.IsZero() {
		return result, fmt.Errorf("%w: target month is required", ErrInvalidCandidate)
	}

	activeFilter := models.MonthFilter(req.Month)
	activeFilter.ExcludeStatus = string(models.PostSkipped)
	existing, err := b.entities.Posts.List(ctx, activeFilter)
	if err != nil {
		return result, fmt.Errorf("failed to load existing posts for %s: %w", req.Month, err)
	}
	occupied := occupancy{}
	for _, p := range existing {
		occupied.take(p.Date, p.Platform, p.ID)
	}

	for i, cand := range req.Candidates {
		post, kind, err := b.resolve(ctx, req.Month, cand)
		if err != nil {
			if kind != "" {
				b.reject(&result, i, cand, kind, err)
				continue
			}
			return b.abort(ctx, result, err)
		}

		holders := occupied.holders(post.Date, post.Platform)
		id, err := b.entities.Posts.Create(ctx, post)
		if err != nil {
			return b.abort(ctx, result, fmt.Errorf("failed to create post for candidate %d: %w", i, err))
		}
		if len(holders) > 0 {
			post.ID = id
			result.Warnings = append(result.Warnings, CollisionWarning(i, post, holders))
			b.logger.Warn("placement collision", "post_id", id, "date", post.Date.Format(models.DateLayout),
				"platform", post.Platform, "conflicts", holders)
		}
		occupied.take(post.Date, post.Platform, id)
		result.Created = append(result.Created, id)
	}

	planned, err := b.entities.Posts.List(ctx, models.MonthFilter(req.Month))
	if err != nil {
		return b.abort(ctx, result, fmt.Errorf("failed to reload plan for %s: %w", req.Month, err))
	}
	result.Plan = models.MonthlyPlan{Month: req.Month, Posts: make([]models.Post, 0, len(planned))}
	for _, p := range planned {
		result.Plan.Posts = append(result.Plan.Posts, *p)
	}
	result.Warnings = append(result.Warnings, FrequencyWarnings(result.Plan, req.Frequency)...)
	return result, nil
}

// abort removes the posts created so far and returns err with an empty
// Created list. Deletes run even when ctx is already cancelled.
func (b *Builder) abort(ctx context.Context, result models.BuildResult, err error) (models.BuildResult, error) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range result.Created {
		if derr := b.entities.Posts.Delete(ctx, id); derr != nil && !errors.Is(derr, store.ErrNotFound) {
			b.logger.Error("failed to roll back created post", "post_id", id, "error", derr)
		}
	}
	if len(result.Created) > 0 {
		b.logger.Warn("build aborted, created posts rolled back", "count", len(result.Created), "error", err)
	}
	result.Created = []string{}
	return result, err
}

// resolve validates a candidate and turns it into an unsaved post. A non-empty
// kind marks the error as a rejection rather than a build failure.
func (b *Builder) resolve(ctx context.Context, month models.Month, cand models.Candidate) (*models.Post, models.WarningKind, error) {
	if !cand.Platform.Valid() {
		return nil, models.WarnInvalidCandidate, fmt.Errorf("%w: platform %q", ErrInvalidCandidate, cand.Platform)
	}
	if !cand.ContentType.Valid() {
		return nil, models.WarnInvalidCandidate, fmt.Errorf("%w: content type %q", ErrInvalidCandidate, cand.ContentType)
	}
	date, err := models.ParseDate(strings.TrimSpace(cand.Date))
	if err != nil {
		return nil, models.WarnInvalidCandidate, fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}
	if !month.Contains(date) {
		return nil, models.WarnOutOfMonth, fmt.Errorf("%w: %s not in %s", ErrOutOfMonth, cand.Date, month)
	}
	if cand.SourceScriptID == "" && cand.SourceIdeaID == "" {
		return nil, models.WarnMissingSource, ErrMissingSource
	}

	var pillar models.Pillar
	if cand.SourceScriptID != "" {
		script, err := b.entities.Scripts.Get(ctx, cand.SourceScriptID)
		if err != nil {
			return nil, sourceErrKind(err), err
		}
		if script.Status != models.ScriptSelected {
			return nil, models.WarnSourceNotSelected, fmt.Errorf("script %s is %s: %w", script.ID, script.Status, ErrSourceNotSelected)
		}
		pillar = script.Pillar
	}
	if cand.SourceIdeaID != "" {
		idea, err := b.entities.Ideas.Get(ctx, cand.SourceIdeaID)
		if err != nil {
			return nil, sourceErrKind(err), err
		}
		if idea.Status != models.IdeaSelected {
			return nil, models.WarnSourceNotSelected, fmt.Errorf("idea %s is %s: %w", idea.ID, idea.Status, ErrSourceNotSelected)
		}
		if pillar != "" && pillar != idea.Pillar {
			return nil, models.WarnPillarMismatch, fmt.Errorf("%w: script is %s, idea is %s", ErrPillarMismatch, pillar, idea.Pillar)
		}
		pillar = idea.Pillar
	}
	if cand.Pillar != "" && cand.Pillar != pillar {
		return nil, models.WarnPillarMismatch, fmt.Errorf("%w: requested %s, source is %s", ErrPillarMismatch, cand.Pillar, pillar)
	}

	now := b.clock()
	return &models.Post{
		Date:           date,
		ScheduledTime:  cand.ScheduledTime,
		Platform:       cand.Platform,
		ContentType:    cand.ContentType,
		Pillar:         pillar,
		Caption:        cand.Caption,
		Hashtags:       models.NormalizeHashtags(cand.Hashtags),
		SourceScriptID: cand.SourceScriptID,
		SourceIdeaID:   cand.SourceIdeaID,
		Status:         models.PostPlanned,
		MediaPath:      cand.MediaPath,
		Notes:          cand.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, "", nil
}

func sourceErrKind(err error) models.WarningKind {
	if errors.Is(err, store.ErrNotFound) {
		return models.WarnSourceNotFound
	}
	return ""
}

func (b *Builder) reject(result *models.BuildResult, i int, cand models.Candidate, kind models.WarningKind, err error) {
	result.Rejected = append(result.Rejected, models.Rejection{
		CandidateIndex: i,
		SourceScriptID: cand.SourceScriptID,
		SourceIdeaID:   cand.SourceIdeaID,
		Reason:         kind,
		Error:          err.Error(),
	})
	result.Warnings = append(result.Warnings, models.PlacementWarning{
		Kind:           kind,
		CandidateIndex: i,
		Platform:       cand.Platform,
		Message:        err.Error(),
	})
	b.logger.Info("candidate rejected", "index", i, "reason", kind, "error", err)
}
