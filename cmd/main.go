package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"wavecrest-planner/internal/app"
	"wavecrest-planner/internal/config"
	"wavecrest-planner/internal/logger"
	"wavecrest-planner/internal/queue"
	"wavecrest-planner/internal/telemetry"
	"wavecrest-planner/middleware"
	"wavecrest-planner/routes"
	"wavecrest-planner/services"
)

const serviceName = "wavecrest-planner"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	slogger := logger.InitLogger(cfg)

	if cfg.OTELEnabled {
		shutdown, err := telemetry.InitTracer(serviceName, cfg.OTELEndpoint, cfg.OTELSampleRatio)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	a, err := app.New(cfg, slogger)
	if err != nil {
		log.Fatal("Failed to initialize planner:", err)
	}
	defer a.Close()

	deps := routes.Deps{
		Planner:  a.Planner,
		Exporter: services.NewExportService(a.Planner),
		Backend:  cfg.StoreBackend,
	}
	if a.Redis != nil {
		redisOpt, err := config.AsynqRedisOpt(cfg)
		if err != nil {
			log.Fatal("Failed to configure task queue:", err)
		}
		enq := queue.NewEnqueuer(redisOpt)
		defer enq.Close()
		deps.Enqueuer = enq
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if cfg.OTELEnabled {
		router.Use(middleware.TracingMiddleware(serviceName))
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(a.Metrics))
	router.Use(middleware.RequestSizeLimit(cfg.MaxBodySize))
	limiter := middleware.NewRateLimiter(a.Redis, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second)
	router.Use(limiter.Middleware())

	routes.SetupPlannerRoutes(router, deps)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited")
}
