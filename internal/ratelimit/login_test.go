package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/passage/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T) *LoginLimiter {
	t.Helper()
	holder := config.NewStaticSecurityConfigHolder(config.SecurityConfig{
		VerificationCodeTimeoutMinutes:   10,
		VerificationCodeResendMinutes:    1,
		LoginAttemptsPerIPPerMinute:      20,
		LoginAttemptsPerIPBurst:          3,
		LoginAttemptsPerAccountPerMinute: 5,
		LoginAttemptsPerAccountBurst:     2,
		GeolocationCacheSize:             16,
		APIKeyCacheSize:                  16,
	})
	// No redis address: the in-process bucket backs the limiter.
	return NewLoginLimiter(zap.NewNop(), config.Config{}, holder)
}

func TestAllowIPExhaustsBurst(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.AllowIP(ctx, "203.0.113.7"))
	}
	assert.ErrorIs(t, l.AllowIP(ctx, "203.0.113.7"), ErrRateLimited)

	// Another IP has its own bucket.
	assert.NoError(t, l.AllowIP(ctx, "198.51.100.1"))
}

func TestAllowAccountNormalizesIdentifier(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.AllowAccount(ctx, "Alice@Example.com"))
	require.NoError(t, l.AllowAccount(ctx, "alice@example.com "))
	assert.ErrorIs(t, l.AllowAccount(ctx, "ALICE@EXAMPLE.COM"), ErrRateLimited)
}

func TestMemoryBucketRefills(t *testing.T) {
	b := newMemoryBucket()
	// 1000 tokens/second refills fast enough to observe in-test.
	for i := 0; i < 2; i++ {
		assert.True(t, b.Allow("k", 1000, 2))
	}
	assert.Eventually(t, func() bool { return b.Allow("k", 1000, 2) }, time.Second, time.Millisecond)
}
