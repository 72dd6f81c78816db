package config

import "time"

// Booking limiter scopes.  A bucket per user and show matches the resource
// users actually contend for; anonymous callers fall back to their IP.
const (
	LimitPerUserShow = "user_show"
	LimitPerUser     = "user"
	LimitPerIP       = "ip"
)

// RateLimitConfig drives the Redis token bucket guarding reservation
// writes.  Each bucket holds Burst attempts and regains one every
// RefillEvery.
type RateLimitConfig struct {
	Enabled     bool
	Burst       int
	RefillEvery time.Duration
	TTL         time.Duration // idle buckets expire after this
	Scope       string
	Prefix      string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  The defaults allow 5
// booking attempts per user and show, then one every 6s.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		Burst:       envInt("RATE_LIMIT_BURST", 5),
		RefillEvery: envDur("RATE_LIMIT_REFILL_EVERY", 6*time.Second),
		TTL:         envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Scope:       envStr("RATE_LIMIT_SCOPE", LimitPerUserShow),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillEvery <= 0 {
		cfg.RefillEvery = time.Second
	}
	// A bucket must outlive the time it takes to refill completely.
	if full := time.Duration(cfg.Burst) * cfg.RefillEvery; cfg.TTL < full {
		cfg.TTL = full
	}
	switch cfg.Scope {
	case LimitPerUserShow, LimitPerUser, LimitPerIP:
	default:
		cfg.Scope = LimitPerUserShow
	}
	return cfg
}
