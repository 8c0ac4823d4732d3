package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"wavecrest-planner/internal/compliance"
	"wavecrest-planner/models"
	"wavecrest-planner/services"
)

type fakePlanner struct {
	metrics     []models.MetricSnapshot
	competitors []models.CompetitorSnapshot
	checked     []models.Month
	err         error
}

func (f *fakePlanner) IngestMetrics(_ context.Context, snaps []models.MetricSnapshot) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.metrics = append(f.metrics, snaps...)
	return make([]string, len(snaps)), nil
}

func (f *fakePlanner) IngestCompetitors(_ context.Context, snaps []models.CompetitorSnapshot) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.competitors = append(f.competitors, snaps...)
	return make([]string, len(snaps)), nil
}

func (f *fakePlanner) CheckCompliance(_ context.Context, m models.Month, _ *compliance.Config) (models.ComplianceReport, error) {
	if f.err != nil {
		return models.ComplianceReport{}, f.err
	}
	f.checked = append(f.checked, m)
	return models.ComplianceReport{Month: m, OverallStatus: models.StatusNonCompliant}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestMetricsTaskRoundTrip(t *testing.T) {
	snap := models.MetricSnapshot{Date: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), Platform: models.PlatformInstagram, Impressions: 10}
	task, err := NewIngestMetricsTask([]models.MetricSnapshot{snap})
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TaskIngestMetrics {
		t.Fatalf("unexpected type %s", task.Type())
	}

	planner := &fakePlanner{}
	p := NewTaskProcessor(planner, quietLogger())
	if err := p.IngestMetrics(context.Background(), task); err != nil {
		t.Fatalf("IngestMetrics: %v", err)
	}
	if len(planner.metrics) != 1 || planner.metrics[0].Impressions != 10 {
		t.Fatalf("snapshot not handed to planner: %+v", planner.metrics)
	}
}

func TestHandlersSkipRetryOnBadInput(t *testing.T) {
	p := NewTaskProcessor(&fakePlanner{}, quietLogger())
	bad := asynq.NewTask(TaskIngestCompetitors, []byte("{not json"))
	if err := p.IngestCompetitors(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	invalid := &fakePlanner{err: fmt.Errorf("%w: metric 0 has no date", services.ErrValidation)}
	task, _ := NewIngestMetricsTask([]models.MetricSnapshot{{}})
	if err := NewTaskProcessor(invalid, quietLogger()).IngestMetrics(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("validation errors should not retry, got %v", err)
	}

	transient := &fakePlanner{err: errors.New("connection reset")}
	if err := NewTaskProcessor(transient, quietLogger()).IngestMetrics(context.Background(), task); err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("transient errors should retry, got %v", err)
	}
}

func TestRefreshComplianceTask(t *testing.T) {
	june := models.Month{Year: 2025, Month: 6}
	task, err := NewComplianceRefreshTask(june)
	if err != nil {
		t.Fatal(err)
	}
	var payload ComplianceRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.Month != june {
		t.Fatalf("payload month = %v (%v)", payload.Month, err)
	}

	planner := &fakePlanner{}
	if err := NewTaskProcessor(planner, quietLogger()).RefreshCompliance(context.Background(), task); err != nil {
		t.Fatalf("RefreshCompliance: %v", err)
	}
	if len(planner.checked) != 1 || planner.checked[0] != june {
		t.Fatalf("unexpected checks %v", planner.checked)
	}

	empty := asynq.NewTask(TaskComplianceRefresh, []byte(`{}`))
	if err := NewTaskProcessor(planner, quietLogger()).RefreshCompliance(context.Background(), empty); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("missing month should not retry, got %v", err)
	}
}

type fakeEnqueuer struct {
	months []models.Month
}

func (f *fakeEnqueuer) EnqueueComplianceRefresh(_ context.Context, m models.Month) (string, error) {
	f.months = append(f.months, m)
	return m.String(), nil
}

func TestRefreshMonthsCoversCurrentAndNext(t *testing.T) {
	enq := &fakeEnqueuer{}
	now := time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC)
	if err := RefreshMonths(context.Background(), enq, now, quietLogger()); err != nil {
		t.Fatalf("RefreshMonths: %v", err)
	}
	want := []models.Month{{Year: 2025, Month: 12}, {Year: 2026, Month: 1}}
	if len(enq.months) != 2 || enq.months[0] != want[0] || enq.months[1] != want[1] {
		t.Fatalf("got %v want %v", enq.months, want)
	}
}

func TestScheduleComplianceRefresh(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.ScheduleComplianceRefresh("0 6 * * *", &fakeEnqueuer{}, nil, quietLogger()); err != nil {
		t.Fatalf("ScheduleComplianceRefresh: %v", err)
	}
	if s.Jobs() != 1 {
		t.Fatalf("expected one job, got %d", s.Jobs())
	}
	if err := s.ScheduleComplianceRefresh("not a cron", &fakeEnqueuer{}, nil, quietLogger()); err == nil {
		t.Fatal("invalid cron expression should fail")
	}
}

type fakeArchiver struct {
	calls []time.Time
	days  int
}

func (f *fakeArchiver) ArchiveStaleScripts(_ context.Context, days int, now time.Time) ([]models.TransitionResult, error) {
	f.calls = append(f.calls, now)
	f.days = days
	return nil, nil
}

func TestScheduleArchiveStale(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	arch := &fakeArchiver{}
	if err := s.ScheduleArchiveStale("30 2 * * *", 60, arch, nil, quietLogger()); err != nil {
		t.Fatalf("ScheduleArchiveStale: %v", err)
	}
	if err := s.ScheduleComplianceRefresh("0 6 * * *", &fakeEnqueuer{}, nil, quietLogger()); err != nil {
		t.Fatalf("ScheduleComplianceRefresh: %v", err)
	}
	if s.Jobs() != 2 {
		t.Fatalf("expected two jobs, got %d", s.Jobs())
	}
	if err := s.RemoveJob("archive-stale-scripts"); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}
	if s.Jobs() != 1 {
		t.Fatalf("expected one job after removal, got %d", s.Jobs())
	}
}
