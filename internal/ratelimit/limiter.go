package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/voicemetrics/updrs-meter/internal/monitoring"
)

// Config holds rate limiter configuration.
type Config struct {
	IPLimitPerMin   int
	BurstMultiplier int
}

// DefaultConfig returns the default per-IP limits.
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:   60,
		BurstMultiplier: 2,
	}
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter provides per-IP rate limiting backed by Redis when available,
// with in-memory token buckets as fallback.
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*rate.Limiter
	fallbackMutex    sync.RWMutex
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*rate.Limiter),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
	}

	go rl.cleanupFallbackLimiters()

	return rl
}

// AllowIP checks whether an IP may make another request this minute.
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	limit := rl.config.IPLimitPerMin

	if rl.redisLimiter != nil {
		key := fmt.Sprintf("ratelimit:ip:%s", ip)
		res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.PerMinute(limit))
		if err == nil {
			return &Result{
				Allowed:    res.Allowed > 0,
				Limit:      limit,
				Remaining:  res.Remaining,
				RetryAfter: res.RetryAfter,
			}, nil
		}
		// Redis failure degrades to the in-memory path rather than
		// blocking the request.
	}

	return rl.allowFallback(ip, limit), nil
}

func (rl *RateLimiter) allowFallback(ip string, limit int) *Result {
	limiter := rl.fallbackLimiter(ip, limit)

	if limiter.Allow() {
		return &Result{Allowed: true, Limit: limit, Remaining: int(limiter.Tokens())}
	}
	return &Result{Allowed: false, Limit: limit, Remaining: 0, RetryAfter: time.Minute / time.Duration(limit)}
}

func (rl *RateLimiter) fallbackLimiter(ip string, limit int) *rate.Limiter {
	rl.fallbackMutex.RLock()
	limiter, ok := rl.fallbackLimiters[ip]
	rl.fallbackMutex.RUnlock()
	if ok {
		return limiter
	}

	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()
	if limiter, ok = rl.fallbackLimiters[ip]; ok {
		return limiter
	}

	burst := limit * rl.config.BurstMultiplier / 60
	if burst < 1 {
		burst = 1
	}
	limiter = rate.NewLimiter(rate.Limit(float64(limit)/60.0), burst)
	rl.fallbackLimiters[ip] = limiter
	return limiter
}

// cleanupFallbackLimiters drops idle in-memory limiters periodically so the
// map cannot grow without bound.
func (rl *RateLimiter) cleanupFallbackLimiters() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.fallbackMutex.Lock()
		for ip, limiter := range rl.fallbackLimiters {
			if limiter.Tokens() >= float64(limiter.Burst()) {
				delete(rl.fallbackLimiters, ip)
			}
		}
		rl.fallbackMutex.Unlock()
	}
}
