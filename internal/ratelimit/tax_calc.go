package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/mercato/internal/config"
)

const keyTaxCalcStore = "tax:calc:store:%s"

// TaxCalcLimiter throttles the public tax-calculation endpoint per
// store. Disabled (allow-all) when no redis address is configured.
type TaxCalcLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewTaxCalcLimiter(cfg config.Config) (*TaxCalcLimiter, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &TaxCalcLimiter{}, nil
	}
	if cfg.TaxCalcRatePerSec <= 0 || cfg.TaxCalcBurst <= 0 {
		return nil, fmt.Errorf("tax calc rate limit must be positive, got rate=%v burst=%d", cfg.TaxCalcRatePerSec, cfg.TaxCalcBurst)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &TaxCalcLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    cfg.TaxCalcRatePerSec,
		burst:   cfg.TaxCalcBurst,
	}, nil
}

func (l *TaxCalcLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *TaxCalcLimiter) AllowStore(ctx context.Context, storeID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyTaxCalcStore, strings.TrimSpace(storeID)), l.rate, l.burst)
}
