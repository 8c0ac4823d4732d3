package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"wavecrest-planner/models"
)

// Scheduler runs periodic jobs for the worker
type Scheduler struct {
	scheduler *gocron.Scheduler
	cancel    context.CancelFunc
	ctx       context.Context
}

// NewScheduler creates a new UTC scheduler
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &Scheduler{
		scheduler: s,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	if s.cancel != nil {
		s.cancel()
	}
}

// ScheduleJob schedules a job on a cron expression
func (s *Scheduler) ScheduleJob(tag string, cronExpr string, job func() error) error {
	_, err := s.scheduler.Cron(cronExpr).Tag(tag).Do(job)
	return err
}

// RemoveJob removes a scheduled job by tag
func (s *Scheduler) RemoveJob(tag string) error {
	return s.scheduler.RemoveByTag(tag)
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

// RefreshEnqueuer is satisfied by *Enqueuer.
type RefreshEnqueuer interface {
	EnqueueComplianceRefresh(ctx context.Context, month models.Month) (string, error)
}

// ScheduleComplianceRefresh enqueues a refresh of the current and the next
// month on every tick. The months come from clock, never from the job
// itself, so tests can pin them.
func (s *Scheduler) ScheduleComplianceRefresh(cronExpr string, enq RefreshEnqueuer, clock func() time.Time, logger *slog.Logger) error {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return s.ScheduleJob("compliance-refresh", cronExpr, func() error {
		return RefreshMonths(s.ctx, enq, clock(), logger)
	})
}

// RefreshMonths enqueues the month containing now and the one after it.
func RefreshMonths(ctx context.Context, enq RefreshEnqueuer, now time.Time, logger *slog.Logger) error {
	current := models.MonthOf(now)
	for _, m := range []models.Month{current, current.Next()} {
		if _, err := enq.EnqueueComplianceRefresh(ctx, m); err != nil {
			logger.Error("failed to enqueue compliance refresh", "month", m.String(), "error", err)
			return err
		}
	}
	logger.Debug("compliance refresh enqueued", "from", current.String())
	return nil
}

// StaleArchiver is satisfied by *services.PlanningService.
type StaleArchiver interface {
	ArchiveStaleScripts(ctx context.Context, olderThanDays int, now time.Time) ([]models.TransitionResult, error)
}

// ScheduleArchiveStale archives Draft scripts older than olderThanDays on
// every tick. It runs in-process; the archive is a handful of transitions.
func (s *Scheduler) ScheduleArchiveStale(cronExpr string, olderThanDays int, archiver StaleArchiver, clock func() time.Time, logger *slog.Logger) error {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return s.ScheduleJob("archive-stale-scripts", cronExpr, func() error {
		archived, err := archiver.ArchiveStaleScripts(s.ctx, olderThanDays, clock())
		if err != nil {
			logger.Error("archive-stale run failed", "archived", len(archived), "error", err)
			return err
		}
		logger.Info("archive-stale run finished", "archived", len(archived), "older_than_days", olderThanDays)
		return nil
	})
}
