package config

import (
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadArbiterConfigDefaults(t *testing.T) {
	t.Setenv("ARBITER_MAX_ATTEMPTS", "")
	t.Setenv("ARBITER_BASE_DELAY", "")
	t.Setenv("BOOKING_CUTOFF", "")

	cfg := LoadArbiterConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 30*time.Minute, cfg.BookingCutoff)
}

func TestLoadArbiterConfigOverrides(t *testing.T) {
	t.Setenv("ARBITER_MAX_ATTEMPTS", "0")
	t.Setenv("ARBITER_BASE_DELAY", "250ms")
	t.Setenv("BOOKING_CUTOFF", "45m")

	cfg := LoadArbiterConfig()
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 45*time.Minute, cfg.BookingCutoff)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "")
	t.Setenv("RATE_LIMIT_TTL", "")
	t.Setenv("RATE_LIMIT_SCOPE", "")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Burst)
	assert.Equal(t, 6*time.Second, cfg.RefillEvery)
	assert.Equal(t, 10*time.Minute, cfg.TTL)
	assert.Equal(t, LimitPerUserShow, cfg.Scope)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_SCOPE", "route")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Burst)
	assert.Equal(t, 2*time.Second, cfg.TTL)
	assert.Equal(t, LimitPerUserShow, cfg.Scope)

	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("RATE_LIMIT_SCOPE", LimitPerIP)
	cfg = LoadRateLimitConfig()
	assert.Equal(t, 8*time.Second, cfg.TTL)
	assert.Equal(t, LimitPerIP, cfg.Scope)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "off")
	t.Setenv("CACHE_TTL", "-5s")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.Equal(t, "cache", cfg.Prefix)
	assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TLS", "true")

	opts, err := LoadRedisConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, "cache.internal", opts.TLSConfig.ServerName)

	t.Setenv("REDIS_URL", "redis://:s3cret@redis:6379/4")
	opts, err = LoadRedisConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, "s3cret", opts.Password)
	assert.Equal(t, 4, opts.DB)
	assert.Nil(t, opts.TLSConfig)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "Yes")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", " 3s ")
	assert.True(t, envBool("X_BOOL", false))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, 3*time.Second, envDur("X_DUR", 0))
	assert.Equal(t, "fallback", envStr("X_UNSET_FOR_TEST", "fallback"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DEBUG, ParseLevel("debug"))
	assert.Equal(t, log.WARN, ParseLevel(" WARN "))
	assert.Equal(t, log.INFO, ParseLevel(""))
	assert.Equal(t, log.INFO, ParseLevel("verbose"))
}
