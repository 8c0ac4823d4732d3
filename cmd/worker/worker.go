package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"wavecrest-planner/internal/app"
	"wavecrest-planner/internal/config"
	"wavecrest-planner/internal/logger"
	"wavecrest-planner/internal/queue"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	slogger := logger.InitLogger(cfg)

	a, err := app.New(cfg, slogger)
	if err != nil {
		log.Fatal("Failed to initialize planner:", err)
	}
	defer a.Close()

	// Redis options for Asynq
	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Failed to configure task queue:", err)
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"default": 3, // snapshot ingestion
				"low":     1, // scheduled compliance refresh
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
			Logger: newAsynqLogger(slogger),
		},
	)

	// Create task processor and register handlers
	mux := asynq.NewServeMux()
	queue.NewTaskProcessor(a.Planner, slogger).Register(mux)

	enq := queue.NewEnqueuer(redisOpt)
	defer enq.Close()

	scheduler := queue.NewScheduler()
	if err := scheduler.ScheduleComplianceRefresh(cfg.ComplianceRefreshCron, enq, nil, slogger); err != nil {
		log.Fatalf("Invalid COMPLIANCE_REFRESH_CRON %q: %v", cfg.ComplianceRefreshCron, err)
	}
	if cfg.ArchiveStaleCron != "" {
		if err := scheduler.ScheduleArchiveStale(cfg.ArchiveStaleCron, cfg.ArchiveStaleDays, a.Planner, nil, slogger); err != nil {
			log.Fatalf("Invalid ARCHIVE_STALE_CRON %q: %v", cfg.ArchiveStaleCron, err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("Starting Asynq worker",
		"concurrency", cfg.WorkerConcurrency,
		"refresh_cron", cfg.ComplianceRefreshCron,
		"store", cfg.StoreBackend,
	)

	if err := server.Start(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")
	server.Shutdown()
}
