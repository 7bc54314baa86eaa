// Package ratelimit gates the login endpoints with per-IP and
// per-account token buckets.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/passage/internal/config"
	"go.uber.org/zap"
)

const (
	keyLoginIP      = "login:ip:%s"
	keyLoginAccount = "login:account:%s"
)

var ErrRateLimited = errors.New("too many attempts")

// LoginLimiter throttles login attempts. With redis configured the
// buckets are shared across instances; without it a per-process bucket
// still bounds local abuse. Limiter infrastructure failures fail open:
// a redis outage must not lock every user out.
type LoginLimiter struct {
	log      *zap.Logger
	security *config.SecurityConfigHolder
	bucket   *TokenBucket
	memory   *memoryBucket
}

func NewLoginLimiter(log *zap.Logger, cfg config.Config, security *config.SecurityConfigHolder) *LoginLimiter {
	limiter := &LoginLimiter{
		log:      log.Named("ratelimit"),
		security: security,
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: strings.TrimSpace(cfg.RedisPassword),
		})
		limiter.bucket = NewTokenBucket(client)
	} else {
		limiter.memory = newMemoryBucket()
	}
	return limiter
}

// AllowIP consumes one attempt for a source IP.
func (l *LoginLimiter) AllowIP(ctx context.Context, ip string) error {
	cfg := l.security.Get()
	return l.allow(ctx, fmt.Sprintf(keyLoginIP, ip), cfg.LoginAttemptsPerIPPerMinute/60, cfg.LoginAttemptsPerIPBurst)
}

// AllowAccount consumes one attempt for a target account identifier.
func (l *LoginLimiter) AllowAccount(ctx context.Context, account string) error {
	cfg := l.security.Get()
	return l.allow(ctx, fmt.Sprintf(keyLoginAccount, strings.ToLower(strings.TrimSpace(account))), cfg.LoginAttemptsPerAccountPerMinute/60, cfg.LoginAttemptsPerAccountBurst)
}

func (l *LoginLimiter) allow(ctx context.Context, key string, rate float64, burst int) error {
	if l.bucket != nil {
		result, err := l.bucket.Allow(ctx, key, rate, burst)
		if err != nil {
			l.log.Warn("rate limiter unavailable", zap.Error(err))
			return nil
		}
		if !result.Allowed {
			return ErrRateLimited
		}
		return nil
	}

	if !l.memory.Allow(key, rate, burst) {
		return ErrRateLimited
	}
	return nil
}
