package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"wavecrest-planner/internal/store"
	"wavecrest-planner/models"
)

// deleteCreated removes the records a failed batch already stored, so a
// batch is stored whole or not at all.
func deleteCreated[T models.Record[T]](ctx context.Context, coll store.Collection[T], ids []string, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range ids {
		if err := coll.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Error("failed to roll back snapshot", "id", id, "error", err)
		}
	}
}

// IngestMetrics stores already-materialized platform metrics. The batch is
// validated as a whole before anything is written, and a store failure
// removes the snapshots written so far.
func (s *PlanningService) IngestMetrics(ctx context.Context, snaps []models.MetricSnapshot) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "planner.ingest_metrics")
	defer span.End()
	span.SetAttributes(attribute.Int("snapshot.count", len(snaps)))

	for i, snap := range snaps {
		if snap.Date.IsZero() {
			return nil, spanError(span, fmt.Errorf("%w: metric %d has no date", ErrValidation, i))
		}
		if !snap.Platform.Valid() {
			return nil, spanError(span, fmt.Errorf("%w: metric %d platform %q", ErrValidation, i, snap.Platform))
		}
		if snap.Impressions < 0 || snap.Engagements < 0 {
			return nil, spanError(span, fmt.Errorf("%w: metric %d has negative counts", ErrValidation, i))
		}
	}

	ids := make([]string, 0, len(snaps))
	for i := range snaps {
		snap := snaps[i]
		snap.ID = ""
		snap.Date = models.DateOf(snap.Date)
		id, err := s.entities.Metrics.Create(ctx, &snap)
		if err != nil {
			deleteCreated(ctx, s.entities.Metrics, ids, s.logger)
			return nil, spanError(span, fmt.Errorf("failed to store metric snapshot %d: %w", i, err))
		}
		ids = append(ids, id)
	}
	s.metrics.RecordSnapshots(ctx, "metrics", len(ids))
	s.logger.Info("metric snapshots ingested", "count", len(ids))
	return ids, nil
}

// IngestCompetitors stores competitor follower snapshots.
func (s *PlanningService) IngestCompetitors(ctx context.Context, snaps []models.CompetitorSnapshot) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "planner.ingest_competitors")
	defer span.End()
	span.SetAttributes(attribute.Int("snapshot.count", len(snaps)))

	for i, snap := range snaps {
		if strings.TrimSpace(snap.CompetitorName) == "" {
			return nil, spanError(span, fmt.Errorf("%w: competitor %d has no name", ErrValidation, i))
		}
		if snap.Date.IsZero() {
			return nil, spanError(span, fmt.Errorf("%w: competitor %d has no date", ErrValidation, i))
		}
		if snap.FollowerCount < 0 {
			return nil, spanError(span, fmt.Errorf("%w: competitor %d has a negative follower count", ErrValidation, i))
		}
	}

	ids := make([]string, 0, len(snaps))
	for i := range snaps {
		snap := snaps[i]
		snap.ID = ""
		snap.CompetitorName = strings.TrimSpace(snap.CompetitorName)
		snap.Date = models.DateOf(snap.Date)
		snap.NotablePostURLs = append([]string(nil), snap.NotablePostURLs...)
		id, err := s.entities.Competitors.Create(ctx, &snap)
		if err != nil {
			deleteCreated(ctx, s.entities.Competitors, ids, s.logger)
			return nil, spanError(span, fmt.Errorf("failed to store competitor snapshot %d: %w", i, err))
		}
		ids = append(ids, id)
	}
	s.metrics.RecordSnapshots(ctx, "competitors", len(ids))
	s.logger.Info("competitor snapshots ingested", "count", len(ids))
	return ids, nil
}
