package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wavecrest-planner/internal/cache"
	"wavecrest-planner/internal/calendar"
	"wavecrest-planner/internal/compliance"
	"wavecrest-planner/internal/lifecycle"
	"wavecrest-planner/internal/store"
	"wavecrest-planner/internal/telemetry"
	"wavecrest-planner/models"
)

var (
	// ErrValidation marks malformed input. Handlers answer it with 400.
	ErrValidation = errors.New("validation failed")
	// ErrPublishedImmutable is returned when a change would rewrite a
	// published post beyond its metadata corrections.
	ErrPublishedImmutable = errors.New("published post is immutable")
)

// PlanningServiceOptions carries the optional collaborators of a
// PlanningService. Zero values disable the matching feature.
type PlanningServiceOptions struct {
	Compliance compliance.Config
	Cache      *cache.ReportCache
	Metrics    *telemetry.Metrics
	Logger     *slog.Logger
}

// PlanningService is the single entry point the API, CLI and worker share.
// Every exported method maps to one operator command.
type PlanningService struct {
	entities   *store.Entities
	lifecycle  *lifecycle.Manager
	builder    *calendar.Builder
	cache      *cache.ReportCache
	compliance compliance.Config
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	clock      func() time.Time
}

func NewPlanningService(entities *store.Entities, opts PlanningServiceOptions) *PlanningService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Compliance
	if len(cfg.Targets) == 0 {
		cfg = compliance.DefaultConfig()
	}
	return &PlanningService{
		entities:   entities,
		lifecycle:  lifecycle.NewManager(entities, logger),
		builder:    calendar.NewBuilder(entities, logger),
		cache:      opts.Cache,
		compliance: cfg,
		metrics:    opts.Metrics,
		logger:     logger,
		tracer:     otel.Tracer("wavecrest-planner/services"),
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// ComplianceConfig returns the targets the service evaluates against.
func (s *PlanningService) ComplianceConfig() compliance.Config {
	return s.compliance
}

func spanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// BuildMonthPlan places candidates into req.Month. When req.Frequency is
// unset the configured weekly range is used for the advisory warnings.
func (s *PlanningService) BuildMonthPlan(ctx context.Context, req models.BuildRequest) (models.BuildResult, error) {
	ctx, span := s.tracer.Start(ctx, "planner.build_month_plan")
	defer span.End()
	span.SetAttributes(
		attribute.String("plan.month", req.Month.String()),
		attribute.Int("plan.candidates", len(req.Candidates)),
	)

	if req.Frequency.IsZero() {
		req.Frequency = s.compliance.Weekly
	}
	result, err := s.builder.Build(ctx, req)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidCandidate) {
			err = fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return result, spanError(span, err)
	}
	if err := s.attachNeighbours(ctx, &result.Plan); err != nil {
		return result, spanError(span, err)
	}

	collisions := 0
	for _, w := range result.Warnings {
		if w.Kind == models.WarnCollision {
			collisions++
		}
	}
	span.SetAttributes(
		attribute.Int("plan.created", len(result.Created)),
		attribute.Int("plan.rejected", len(result.Rejected)),
		attribute.Int("plan.collisions", collisions),
	)
	s.metrics.RecordPlacements(ctx, req.Month.String(), len(result.Created), len(result.Rejected), collisions)
	if err := s.cache.InvalidateMonth(ctx, req.Month); err != nil {
		s.logger.Debug("report cache invalidation failed", "month", req.Month.String(), "error", err)
	}
	s.logger.Info("month plan built", "month", req.Month.String(), "created", len(result.Created),
		"rejected", len(result.Rejected), "collisions", collisions)
	return result, nil
}

// MonthlyPlan loads every post dated inside month, Skipped included, plus
// the nearest active posts in the neighbouring months.
func (s *PlanningService) MonthlyPlan(ctx context.Context, month models.Month) (models.MonthlyPlan, error) {
	if month.IsZero() {
		return models.MonthlyPlan{}, fmt.Errorf("%w: month is required", ErrValidation)
	}
	posts, err := s.entities.Posts.List(ctx, models.MonthFilter(month))
	if err != nil {
		return models.MonthlyPlan{}, fmt.Errorf("failed to load posts for %s: %w", month, err)
	}
	plan := models.MonthlyPlan{Month: month, Posts: make([]models.Post, 0, len(posts))}
	for _, p := range posts {
		plan.Posts = append(plan.Posts, *p)
	}
	if err := s.attachNeighbours(ctx, &plan); err != nil {
		return models.MonthlyPlan{}, err
	}
	return plan, nil
}

// attachNeighbours looks one month back and one month ahead for the active
// posts closest to the plan month.
func (s *PlanningService) attachNeighbours(ctx context.Context, plan *models.MonthlyPlan) error {
	prev := models.MonthOf(plan.Month.First().AddDate(0, 0, -1))
	before := models.ListFilter{ExcludeStatus: string(models.PostSkipped), From: prev.First(), To: prev.Last()}
	earlier, err := s.entities.Posts.List(ctx, before)
	if err != nil {
		return fmt.Errorf("failed to load lead-in posts: %w", err)
	}
	plan.LeadIn = nil
	if n := len(earlier); n > 0 {
		d := earlier[n-1].Date
		plan.LeadIn = &d
	}

	next := plan.Month.Next()
	after := models.ListFilter{ExcludeStatus: string(models.PostSkipped), From: next.First(), To: next.Last()}
	later, err := s.entities.Posts.List(ctx, after)
	if err != nil {
		return fmt.Errorf("failed to load lead-out posts: %w", err)
	}
	plan.LeadOut = nil
	if len(later) > 0 {
		d := later[0].Date
		plan.LeadOut = &d
	}
	return nil
}

// CheckCompliance evaluates the stored plan for month. A nil cfg uses the
// service configuration. Reports are served from the cache when the plan,
// config and snapshots are unchanged.
func (s *PlanningService) CheckCompliance(ctx context.Context, month models.Month, cfg *compliance.Config) (models.ComplianceReport, error) {
	ctx, span := s.tracer.Start(ctx, "planner.check_compliance")
	defer span.End()
	span.SetAttributes(attribute.String("plan.month", month.String()))

	effective := s.compliance
	if cfg != nil {
		effective = *cfg
	}
	if err := effective.Validate(); err != nil {
		return models.ComplianceReport{}, spanError(span, err)
	}
	plan, err := s.MonthlyPlan(ctx, month)
	if err != nil {
		return models.ComplianceReport{}, spanError(span, err)
	}
	snaps, err := s.snapshotsFor(ctx, month)
	if err != nil {
		return models.ComplianceReport{}, spanError(span, err)
	}

	key, keyErr := cache.Key(plan, effective, snaps)
	if keyErr == nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			span.SetAttributes(attribute.Bool("compliance.cached", true))
			s.metrics.RecordCompliance(ctx, string(cached.OverallStatus), true)
			return *cached, nil
		}
	}

	report, err := compliance.Check(plan, effective, snaps)
	if err != nil {
		return report, spanError(span, err)
	}
	if keyErr == nil {
		s.cache.Set(ctx, key, report)
	}
	span.SetAttributes(
		attribute.String("compliance.status", string(report.OverallStatus)),
		attribute.Int("compliance.reasons", len(report.Reasons)),
	)
	s.metrics.RecordCompliance(ctx, string(report.OverallStatus), false)
	return report, nil
}

func (s *PlanningService) snapshotsFor(ctx context.Context, month models.Month) (models.SnapshotSet, error) {
	var set models.SnapshotSet
	metrics, err := s.entities.Metrics.List(ctx, models.MonthFilter(month))
	if err != nil {
		return set, fmt.Errorf("failed to load metric snapshots: %w", err)
	}
	for _, m := range metrics {
		set.Metrics = append(set.Metrics, *m)
	}
	competitors, err := s.entities.Competitors.List(ctx, models.MonthFilter(month))
	if err != nil {
		return set, fmt.Errorf("failed to load competitor snapshots: %w", err)
	}
	for _, c := range competitors {
		set.Competitors = append(set.Competitors, *c)
	}
	return set, nil
}

// Transition applies one lifecycle move.
func (s *PlanningService) Transition(ctx context.Context, req models.TransitionRequest) (models.TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "planner.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity.kind", string(req.Kind)),
		attribute.String("entity.id", req.ID),
		attribute.String("entity.to", req.To),
	)

	res, err := s.lifecycle.Transition(ctx, req)
	if err != nil {
		return res, spanError(span, err)
	}
	s.metrics.RecordTransition(ctx, string(res.Kind), res.To, res.Demoted)
	return res, nil
}

// History returns the transition log of one entity.
func (s *PlanningService) History(ctx context.Context, id string) ([]*models.TransitionEvent, error) {
	events, err := s.lifecycle.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.VerifyHistory(events); err != nil {
		s.logger.Error("transition history failed verification", "id", id, "error", err)
	}
	return events, nil
}

// EntityList is the result of a list query. Exactly one slice is populated,
// matching Kind.
type EntityList struct {
	Kind    models.EntityKind `json:"kind"`
	Count   int               `json:"count"`
	Ideas   []*models.Idea    `json:"ideas,omitempty"`
	Scripts []*models.Script  `json:"scripts,omitempty"`
	Posts   []*models.Post    `json:"posts,omitempty"`
}

// ListByStatus lists entities of kind. An empty f.Status lists every status.
// byPriority orders ideas high to low priority, then by id.
func (s *PlanningService) ListByStatus(ctx context.Context, kind models.EntityKind, f models.ListFilter, byPriority bool) (EntityList, error) {
	out := EntityList{Kind: kind}
	if f.Status != "" && !lifecycle.KnownStatus(kind, f.Status) {
		return out, fmt.Errorf("%w: %q is not a %s status", ErrValidation, f.Status, kind)
	}
	var err error
	switch kind {
	case models.KindIdea:
		out.Ideas, err = s.entities.Ideas.List(ctx, f)
		if byPriority {
			sort.SliceStable(out.Ideas, func(i, j int) bool {
				return out.Ideas[i].Priority.Rank() < out.Ideas[j].Priority.Rank()
			})
		}
		out.Count = len(out.Ideas)
	case models.KindScript:
		out.Scripts, err = s.entities.Scripts.List(ctx, f)
		out.Count = len(out.Scripts)
	case models.KindPost:
		out.Posts, err = s.entities.Posts.List(ctx, f)
		out.Count = len(out.Posts)
	default:
		return out, fmt.Errorf("%w: unknown entity kind %q", ErrValidation, kind)
	}
	if err != nil {
		return out, fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	return out, nil
}

// GetEntity returns one idea, script or post.
func (s *PlanningService) GetEntity(ctx context.Context, kind models.EntityKind, id string) (any, error) {
	switch kind {
	case models.KindIdea:
		return s.entities.Ideas.Get(ctx, id)
	case models.KindScript:
		return s.entities.Scripts.Get(ctx, id)
	case models.KindPost:
		return s.entities.Posts.Get(ctx, id)
	}
	return nil, fmt.Errorf("%w: unknown entity kind %q", ErrValidation, kind)
}

func (s *PlanningService) CreateIdea(ctx context.Context, req models.CreateIdeaRequest) (*models.Idea, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	pillar, err := models.ParsePillar(string(req.Pillar))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: priority %q", ErrValidation, req.Priority)
	}
	if req.ContentType != "" {
		ct, err := models.ParseContentType(req.ContentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		req.ContentType = string(ct)
	}
	if err := validURL(req.InspirationURL); err != nil {
		return nil, err
	}

	now := s.clock()
	idea := &models.Idea{
		Title:             title,
		Pillar:            pillar,
		Priority:          priority,
		Status:            models.IdeaNew,
		ContentType:       req.ContentType,
		InspirationSource: req.InspirationSource,
		InspirationURL:    req.InspirationURL,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	id, err := s.entities.Ideas.Create(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("failed to create idea: %w", err)
	}
	return s.entities.Ideas.Get(ctx, id)
}

func validURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: inspiration_url must be an http(s) URL", ErrValidation)
	}
	return nil
}

// CreateScript stores a new Draft script. A linked idea must exist.
func (s *PlanningService) CreateScript(ctx context.Context, req models.CreateScriptRequest) (*models.Script, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	pillar, err := models.ParsePillar(string(req.Pillar))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !req.Source.Valid() {
		return nil, fmt.Errorf("%w: source %q", ErrValidation, req.Source)
	}
	now := s.clock()
	session := models.DateOf(now)
	if req.SessionDate != "" {
		if session, err = models.ParseDate(req.SessionDate); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if req.LinkedIdeaID != "" {
		if _, err := s.entities.Ideas.Get(ctx, req.LinkedIdeaID); err != nil {
			return nil, fmt.Errorf("linked idea %s: %w", req.LinkedIdeaID, err)
		}
	}

	script := &models.Script{
		Title:        title,
		Body:         req.Body,
		Pillar:       pillar,
		Source:       req.Source,
		ScriptType:   req.ScriptType,
		SessionDate:  session,
		Status:       models.ScriptDraft,
		LinkedIdeaID: req.LinkedIdeaID,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.entities.Scripts.Create(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("failed to create script: %w", err)
	}
	return s.entities.Scripts.Get(ctx, id)
}

// PostUpdate is the stored post after a patch, with any collision the new
// date or platform caused.
type PostUpdate struct {
	*models.Post
	Warnings []models.PlacementWarning `json:"warnings"`
}

// UpdatePost applies a partial update. Published posts accept only notes
// and meta_post_id. Moving an active post onto an occupied slot succeeds
// and is reported as a collision warning.
func (s *PlanningService) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (PostUpdate, error) {
	out := PostUpdate{Warnings: []models.PlacementWarning{}}
	post, err := s.entities.Posts.Get(ctx, id)
	if err != nil {
		return out, err
	}
	if patch.Version != post.Version {
		return out, fmt.Errorf("post %s expected version %d, stored %d: %w", id, patch.Version, post.Version, store.ErrConflict)
	}
	if post.Status == models.PostPublished && patch.TouchesContent() {
		return out, fmt.Errorf("post %s: %w", id, ErrPublishedImmutable)
	}

	if patch.Date != nil {
		d, err := models.ParseDate(*patch.Date)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		post.Date = d
	}
	if patch.ScheduledTime != nil {
		if *patch.ScheduledTime != "" {
			if _, err := time.Parse("15:04", *patch.ScheduledTime); err != nil {
				return out, fmt.Errorf("%w: scheduled_time must be HH:MM", ErrValidation)
			}
		}
		post.ScheduledTime = *patch.ScheduledTime
	}
	if patch.Platform != nil {
		if !patch.Platform.Valid() {
			return out, fmt.Errorf("%w: platform %q", ErrValidation, *patch.Platform)
		}
		post.Platform = *patch.Platform
	}
	if patch.ContentType != nil {
		if !patch.ContentType.Valid() {
			return out, fmt.Errorf("%w: content type %q", ErrValidation, *patch.ContentType)
		}
		post.ContentType = *patch.ContentType
	}
	if patch.Caption != nil {
		post.Caption = *patch.Caption
	}
	if patch.Hashtags != nil {
		post.Hashtags = models.NormalizeHashtags(patch.Hashtags)
	}
	if patch.MediaPath != nil {
		post.MediaPath = *patch.MediaPath
	}
	if patch.Notes != nil {
		post.Notes = *patch.Notes
	}
	if patch.MetaPostID != nil {
		post.MetaPostID = *patch.MetaPostID
	}
	post.UpdatedAt = s.clock()

	var holders []string
	if post.Active() && (patch.Date != nil || patch.Platform != nil) {
		filter := models.MonthFilter(models.MonthOf(post.Date))
		filter.ExcludeStatus = string(models.PostSkipped)
		existing, err := s.entities.Posts.List(ctx, filter)
		if err != nil {
			return out, fmt.Errorf("failed to load posts around %s: %w", post.Date.Format(models.DateLayout), err)
		}
		holders = calendar.SlotHolders(existing, post.ID, post.Date, post.Platform)
	}

	saved, err := s.entities.Posts.Update(ctx, post)
	if err != nil {
		return out, err
	}
	out.Post = saved
	if len(holders) > 0 {
		out.Warnings = append(out.Warnings, calendar.CollisionWarning(-1, saved, holders))
		s.logger.Warn("post moved onto an occupied slot", "post_id", saved.ID,
			"date", saved.Date.Format(models.DateLayout), "platform", saved.Platform, "conflicts", holders)
	}
	return out, nil
}

// RemovePost deletes a post that has not been published. A non-zero
// version must match the stored one.
func (s *PlanningService) RemovePost(ctx context.Context, id string, version int64) error {
	post, err := s.entities.Posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if version != 0 && version != post.Version {
		return fmt.Errorf("post %s expected version %d, stored %d: %w", id, version, post.Version, store.ErrConflict)
	}
	if post.Status == models.PostPublished {
		return fmt.Errorf("post %s: %w", id, ErrPublishedImmutable)
	}
	if err := s.entities.Posts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("post removed", "id", id, "date", post.Date.Format(models.DateLayout), "platform", post.Platform)
	return nil
}

// ArchiveStaleScripts archives Draft scripts created more than olderThanDays
// days before now. Each archive is an ordinary logged transition.
func (s *PlanningService) ArchiveStaleScripts(ctx context.Context, olderThanDays int, now time.Time) ([]models.TransitionResult, error) {
	if olderThanDays < 1 {
		return nil, fmt.Errorf("%w: older_than_days must be at least 1", ErrValidation)
	}
	if now.IsZero() {
		now = s.clock()
	}
	cutoff := now.AddDate(0, 0, -olderThanDays)
	drafts, err := s.entities.Scripts.List(ctx, models.ListFilter{Status: string(models.ScriptDraft)})
	if err != nil {
		return nil, fmt.Errorf("failed to list draft scripts: %w", err)
	}

	results := []models.TransitionResult{}
	for _, script := range drafts {
		if !script.CreatedAt.Before(cutoff) {
			continue
		}
		res, err := s.Transition(ctx, models.TransitionRequest{
			Kind:            models.KindScript,
			ID:              script.ID,
			To:              string(models.ScriptArchived),
			ExpectedVersion: script.Version,
			Now:             now,
			Actor:           "archive-stale",
			Reason:          fmt.Sprintf("draft older than %d days", olderThanDays),
		})
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
