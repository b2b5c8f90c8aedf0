package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/internlens/internlens-api/pkg/config"
)

// RateLimitResult reports the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimitService enforces per-identity sliding windows over Redis
// sorted sets. When Redis is unreachable the limiter fails open: a
// broken cache must not block submissions.
type RateLimitService struct {
	client *redis.Client
	logger *zap.Logger
	config config.RateLimitConfig
}

// NewRateLimitService constructs a RateLimitService.
func NewRateLimitService(client *redis.Client, logger *zap.Logger, cfg config.RateLimitConfig) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitService{client: client, logger: logger, config: cfg}
}

// RuleFor returns the configured rule for a purpose, or false when the
// purpose is unknown.
func (s *RateLimitService) RuleFor(purpose string) (config.RateLimitRule, bool) {
	switch purpose {
	case "reviews":
		return s.config.Reviews, true
	case "reports":
		return s.config.Reports, true
	case "company-requests":
		return s.config.CompanyRequests, true
	}
	return config.RateLimitRule{}, false
}

// Allow records one hit for identity under purpose and reports whether
// it fits in the window. identity is a user id or, for anonymous
// endpoints, a client IP.
func (s *RateLimitService) Allow(ctx context.Context, purpose, identity string) RateLimitResult {
	open := RateLimitResult{Allowed: true}
	if !s.config.Enabled || s.client == nil {
		return open
	}

	rule, ok := s.RuleFor(purpose)
	if !ok || rule.Limit <= 0 {
		return open
	}

	key := fmt.Sprintf("rl:%s:%s", purpose, identity)
	now := time.Now().UTC()
	windowStart := now.Add(-rule.Window)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixMilli()))
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("rate limit check failed, allowing request",
			zap.String("purpose", purpose),
			zap.Error(err))
		return open
	}

	count := int(countCmd.Val())
	if count >= rule.Limit {
		retryAfter := rule.Window
		if oldest := oldestCmd.Val(); len(oldest) > 0 {
			oldestAt := time.UnixMilli(int64(oldest[0].Score))
			retryAfter = oldestAt.Add(rule.Window).Sub(now)
			if retryAfter < time.Second {
				retryAfter = time.Second
			}
		}
		return RateLimitResult{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}

	record := s.client.TxPipeline()
	record.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
	record.PExpire(ctx, key, rule.Window)
	if _, err := record.Exec(ctx); err != nil {
		s.logger.Warn("rate limit record failed",
			zap.String("purpose", purpose),
			zap.Error(err))
	}

	return RateLimitResult{Allowed: true, Remaining: rule.Limit - count - 1}
}
