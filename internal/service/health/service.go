// Package health aggregates delivery outcomes into a success
// percentage. Summaries are cached in Redis for a short TTL since the
// underlying counts scan the whole notifications table.
package health

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"notification-service/internal/common/logger"
	"notification-service/internal/repository"
)

// NoDataPercentage is returned when no delivery has been recorded
// yet, avoiding a divide by zero.
const NoDataPercentage = "-"

const cacheKeyAll = "health:summary:all"

// Summary is the caller-visible health report.
type Summary struct {
	SuccessfulNotifications int64  `json:"successfulNotifications"`
	FailedNotifications     int64  `json:"failedNotifications"`
	HealthPercentage        string `json:"healthPercentage"`
}

// DeliveryCounter supplies the per-status totals.
type DeliveryCounter interface {
	CountAllByStatus(ctx context.Context) (repository.StatusCounts, error)
	CountByStatus(ctx context.Context, tenantID int64) (repository.StatusCounts, error)
}

// Cache is the subset of the Redis client used here. A nil Cache
// disables caching entirely.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type Service struct {
	counter DeliveryCounter
	cache   Cache
	log     logger.Logger
	ttl     time.Duration
}

func NewService(counter DeliveryCounter, cache Cache, log logger.Logger, ttl time.Duration) *Service {
	return &Service{counter: counter, cache: cache, log: log, ttl: ttl}
}

// GetHealth reports overall delivery health across all tenants.
func (s *Service) GetHealth(ctx context.Context) (*Summary, error) {
	if cached := s.fromCache(ctx, cacheKeyAll); cached != nil {
		return cached, nil
	}

	counts, err := s.counter.CountAllByStatus(ctx)
	if err != nil {
		return nil, err
	}

	summary := buildSummary(counts)
	s.toCache(ctx, cacheKeyAll, summary)
	return summary, nil
}

// GetTenantHealth reports delivery health for a single tenant. Tenant
// summaries are not cached; they are cheap and rarely polled.
func (s *Service) GetTenantHealth(ctx context.Context, tenantID int64) (*Summary, error) {
	counts, err := s.counter.CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return buildSummary(counts), nil
}

func buildSummary(counts repository.StatusCounts) *Summary {
	return &Summary{
		SuccessfulNotifications: counts.Sent,
		FailedNotifications:     counts.Failed,
		HealthPercentage:        formatPercentage(counts.Sent, counts.Failed),
	}
}

// formatPercentage renders SENT/(SENT+FAILED) with up to two decimal
// places, trailing zeros trimmed, so 3 of 4 yields "75%" and 2 of 3
// yields "66.67%". Midpoints round half to even, so 1 of 32 yields
// "3.12%" and 3 of 32 yields "9.38%".
func formatPercentage(sent, failed int64) string {
	total := sent + failed
	if total == 0 {
		return NoDataPercentage
	}
	pct := float64(sent) / float64(total) * 100
	rounded := math.RoundToEven(pct*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + "%"
}

func (s *Service) fromCache(ctx context.Context, key string) *Summary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("health cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil
	}
	var summary Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		s.log.Warn("health cache entry corrupt", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return &summary
}

func (s *Service) toCache(ctx context.Context, key string, summary *Summary) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.log.Warn("health cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
