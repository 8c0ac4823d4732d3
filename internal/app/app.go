// Package app wires the planner's collaborators from configuration. The API
// server, the worker and the operator CLI all start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"wavecrest-planner/internal/cache"
	"wavecrest-planner/internal/compliance"
	"wavecrest-planner/internal/config"
	"wavecrest-planner/internal/store"
	"wavecrest-planner/internal/telemetry"
	"wavecrest-planner/services"
)

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Mongo    *mongo.Client
	DB       *mongo.Database
	Redis    *redis.Client
	Entities *store.Entities
	Metrics  *telemetry.Metrics
	Planner  *services.PlanningService
}

// New connects the configured store backend and Redis and builds the
// planning service. Redis is optional: without it reports are not cached.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	targets, err := compliance.LoadConfig(cfg.ComplianceConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load compliance targets from %s: %w", cfg.ComplianceConfigPath, err)
	}

	switch cfg.StoreBackend {
	case "memory":
		a.Entities = store.NewMemoryEntities()
		logger.Warn("using in-memory store; data is lost on exit")
	default:
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, err
		}
		a.Mongo = client
		a.DB = client.Database(cfg.DBName)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := config.EnsureIndexes(ctx, a.DB); err != nil {
			logger.Warn("index creation failed", "error", err)
		}
		a.Entities = store.NewMongoEntities(a.DB)
	}

	if rdb, err := config.NewRedisClient(cfg); err != nil {
		logger.Warn("redis unavailable, compliance reports will not be cached", "error", err)
	} else {
		a.Redis = rdb
	}

	if a.Metrics, err = telemetry.InitMetrics(); err != nil {
		logger.Warn("metrics disabled", "error", err)
		a.Metrics = nil
	}

	var onState func(name, state string)
	if a.Metrics != nil {
		onState = a.Metrics.RecordCircuitBreakerState
	}
	a.Planner = services.NewPlanningService(a.Entities, services.PlanningServiceOptions{
		Compliance: targets,
		Cache:      cache.NewReportCache(a.Redis, time.Duration(cfg.ReportCacheTTL)*time.Second, logger, onState),
		Metrics:    a.Metrics,
		Logger:     logger,
	})
	return a, nil
}

// Close releases the Mongo and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", "error", err)
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Mongo.Disconnect(ctx); err != nil {
			a.Logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}
