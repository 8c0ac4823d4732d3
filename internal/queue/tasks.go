package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"wavecrest-planner/internal/compliance"
	"wavecrest-planner/models"
	"wavecrest-planner/services"
)

const (
	TaskIngestMetrics     = "snapshot:metrics"
	TaskIngestCompetitors = "snapshot:competitors"
	TaskComplianceRefresh = "compliance:refresh"
)

type MetricsPayload struct {
	Snapshots []models.MetricSnapshot `json:"snapshots"`
}

type CompetitorsPayload struct {
	Snapshots []models.CompetitorSnapshot `json:"snapshots"`
}

type ComplianceRefreshPayload struct {
	Month models.Month `json:"month"`
}

// Task creators
func NewIngestMetricsTask(snaps []models.MetricSnapshot) (*asynq.Task, error) {
	payload, err := json.Marshal(MetricsPayload{Snapshots: snaps})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestMetrics,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("default"),
	), nil
}

func NewIngestCompetitorsTask(snaps []models.CompetitorSnapshot) (*asynq.Task, error) {
	payload, err := json.Marshal(CompetitorsPayload{Snapshots: snaps})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestCompetitors,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("default"),
	), nil
}

// NewComplianceRefreshTask is unique per month for an hour so overlapping
// schedules collapse into one evaluation.
func NewComplianceRefreshTask(month models.Month) (*asynq.Task, error) {
	payload, err := json.Marshal(ComplianceRefreshPayload{Month: month})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskComplianceRefresh,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("low"),
		asynq.Unique(time.Hour),
	), nil
}

// Planner is the slice of the planning service the task handlers drive.
type Planner interface {
	IngestMetrics(ctx context.Context, snaps []models.MetricSnapshot) ([]string, error)
	IngestCompetitors(ctx context.Context, snaps []models.CompetitorSnapshot) ([]string, error)
	CheckCompliance(ctx context.Context, month models.Month, cfg *compliance.Config) (models.ComplianceReport, error)
}

// Task handlers
type TaskProcessor struct {
	planner Planner
	logger  *slog.Logger
}

func NewTaskProcessor(planner Planner, logger *slog.Logger) *TaskProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskProcessor{planner: planner, logger: logger}
}

// Register wires every handler into mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIngestMetrics, p.IngestMetrics)
	mux.HandleFunc(TaskIngestCompetitors, p.IngestCompetitors)
	mux.HandleFunc(TaskComplianceRefresh, p.RefreshCompliance)
}

// permanent stops asynq from retrying input that can never succeed.
func permanent(err error) error {
	if errors.Is(err, services.ErrValidation) || errors.Is(err, compliance.ErrInvalidTargetMix) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

func (p *TaskProcessor) IngestMetrics(ctx context.Context, t *asynq.Task) error {
	var payload MetricsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}
	ids, err := p.planner.IngestMetrics(ctx, payload.Snapshots)
	if err != nil {
		return permanent(err)
	}
	p.logger.Info("metrics task done", "stored", len(ids))
	return nil
}

func (p *TaskProcessor) IngestCompetitors(ctx context.Context, t *asynq.Task) error {
	var payload CompetitorsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}
	ids, err := p.planner.IngestCompetitors(ctx, payload.Snapshots)
	if err != nil {
		return permanent(err)
	}
	p.logger.Info("competitors task done", "stored", len(ids))
	return nil
}

// RefreshCompliance re-evaluates one month so the cached report is warm
// when the dashboard asks for it.
func (p *TaskProcessor) RefreshCompliance(ctx context.Context, t *asynq.Task) error {
	var payload ComplianceRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.Month.IsZero() {
		return fmt.Errorf("invalid compliance refresh payload: %w", asynq.SkipRetry)
	}
	report, err := p.planner.CheckCompliance(ctx, payload.Month, nil)
	if err != nil {
		return permanent(err)
	}
	level := slog.LevelInfo
	if report.OverallStatus != models.StatusCompliant {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "compliance refreshed", "month", payload.Month.String(),
		"status", report.OverallStatus, "reasons", len(report.Reasons))
	return nil
}

// Enqueuer is the producer side used by the API. A nil Enqueuer means
// snapshots are ingested inline.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(opt asynq.RedisConnOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt)}
}

func (e *Enqueuer) Close() error {
	if e == nil {
		return nil
	}
	return e.client.Close()
}

func (e *Enqueuer) EnqueueMetrics(ctx context.Context, snaps []models.MetricSnapshot) (string, error) {
	task, err := NewIngestMetricsTask(snaps)
	if err != nil {
		return "", err
	}
	return e.enqueue(ctx, task)
}

func (e *Enqueuer) EnqueueCompetitors(ctx context.Context, snaps []models.CompetitorSnapshot) (string, error) {
	task, err := NewIngestCompetitorsTask(snaps)
	if err != nil {
		return "", err
	}
	return e.enqueue(ctx, task)
}

// EnqueueComplianceRefresh treats a duplicate of a still-pending refresh as
// success.
func (e *Enqueuer) EnqueueComplianceRefresh(ctx context.Context, month models.Month) (string, error) {
	task, err := NewComplianceRefreshTask(month)
	if err != nil {
		return "", err
	}
	id, err := e.enqueue(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", nil
	}
	return id, err
}

func (e *Enqueuer) enqueue(ctx context.Context, task *asynq.Task) (string, error) {
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}
	return info.ID, nil
}
