// Package cache keeps computed compliance reports in Redis. Reports are keyed
// by a digest of everything the checker reads, so a changed plan, config or
// snapshot set is simply a different key.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"wavecrest-planner/models"
)

const keyPrefix = "compliance:report:"

type ReportCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewReportCache returns nil when rdb is nil; a nil cache misses on every
// lookup and drops every store. onState, when set, observes breaker state
// changes.
func NewReportCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger, onState func(name, state string)) *ReportCache {
	if rdb == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ReportCache",
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if onState != nil {
				onState(name, to.String())
			}
		},
	})
	return &ReportCache{rdb: rdb, ttl: ttl, breaker: breaker, logger: logger}
}

// Key digests the checker inputs. encoding/json sorts map keys, so equal
// inputs always give equal keys.
func Key(plan models.MonthlyPlan, cfg any, snaps models.SnapshotSet) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, part := range []any{plan, cfg, snaps} {
		if err := enc.Encode(part); err != nil {
			return "", fmt.Errorf("failed to digest report inputs: %w", err)
		}
	}
	return keyPrefix + plan.Month.String() + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the cached report for key. Redis errors and an open breaker
// are reported as a miss.
func (c *ReportCache) Get(ctx context.Context, key string) (*models.ComplianceReport, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		b, err := c.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return []byte(nil), nil
		}
		return b, err
	})
	if err != nil {
		c.logger.Debug("report cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	b, _ := raw.([]byte)
	if len(b) == 0 {
		return nil, false
	}
	var report models.ComplianceReport
	if err := json.Unmarshal(b, &report); err != nil {
		c.logger.Warn("dropping unreadable cached report", "key", key, "error", err)
		return nil, false
	}
	return &report, true
}

func (c *ReportCache) Set(ctx context.Context, key string, report models.ComplianceReport) {
	if c == nil {
		return
	}
	b, err := json.Marshal(report)
	if err != nil {
		c.logger.Warn("failed to encode report for cache", "error", err)
		return
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, key, b, c.ttl).Err()
	})
	if err != nil {
		c.logger.Debug("report cache store failed", "key", key, "error", err)
	}
}

// InvalidateMonth drops every cached report for month.
func (c *ReportCache) InvalidateMonth(ctx context.Context, month models.Month) error {
	if c == nil {
		return nil
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		iter := c.rdb.Scan(ctx, 0, keyPrefix+month.String()+":*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return nil, c.rdb.Del(ctx, keys...).Err()
	})
	return err
}
