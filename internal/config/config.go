package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI     string
	DBName       string
	StoreBackend string // "mongo" or "memory"
	Port         string
	GinMode      string
	CORSOrigins  []string
	MaxBodySize  int64

	RateLimitReqs   int
	RateLimitWindow int

	// Redis Configuration
	RedisURL       string
	RedisPassword  string
	RedisDB        int
	ReportCacheTTL int // seconds

	// Compliance targets
	ComplianceConfigPath  string
	ComplianceRefreshCron string

	// Maintenance
	ArchiveStaleCron string // empty disables the job
	ArchiveStaleDays int

	// Worker
	WorkerConcurrency int

	// Telemetry
	OTELEnabled     bool
	OTELEndpoint    string
	OTELSampleRatio float64
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017/wavecrest"),
		DBName:       getEnv("DB_NAME", "wavecrest"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "mongo")),
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		MaxBodySize:  getEnvInt64("MAX_BODY_SIZE", 1048576), // 1MB; candidate lists and snapshot batches are small

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		// Redis Configuration
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		ReportCacheTTL: getEnvInt("REPORT_CACHE_TTL", 600),

		ComplianceConfigPath:  getEnv("COMPLIANCE_CONFIG", "compliance.yaml"),
		ComplianceRefreshCron: getEnv("COMPLIANCE_REFRESH_CRON", "0 6 * * *"),

		ArchiveStaleCron: getEnv("ARCHIVE_STALE_CRON", ""),
		ArchiveStaleDays: getEnvInt("ARCHIVE_STALE_DAYS", 90),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 5),

		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OTELSampleRatio: getEnvFloat64("OTEL_SAMPLE_RATIO", 0.1),
	}

	if cfg.StoreBackend != "mongo" && cfg.StoreBackend != "memory" {
		return nil, fmt.Errorf("STORE_BACKEND must be mongo or memory, got %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == "mongo" && cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required when STORE_BACKEND=mongo")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
