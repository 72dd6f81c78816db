package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auditorium-seat-reservation/internal/config"
)

// bookingScript takes one token from the bucket at KEYS[1], first adding
// one token per elapsed refill period. It returns
// {allowed, remaining, retry_after_ms}.
var bookingScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local every = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'at')
local tokens = tonumber(state[1]) or burst
local at = tonumber(state[2]) or now

local gained = math.floor(math.max(0, now - at) / every)
if gained > 0 then
	tokens = math.min(burst, tokens + gained)
	at = at + gained * every
end
if tokens >= burst then
	at = now
end

local allowed = 0
local retry = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry = every - (now - at)
end

redis.call('HSET', key, 'tokens', tokens, 'at', at)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry}
`)

// Decision is the outcome of one booking attempt against its bucket.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// BookingLimiter throttles reservation attempts with a Redis token bucket.
// By default each user gets a bucket per show, the seat pool they compete
// for; see config.RateLimitConfig for the other scopes.
type BookingLimiter struct {
	cfg    config.RateLimitConfig
	rdb    *redis.Client
	now    func() time.Time
	logger *log.Logger
}

func NewBookingLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *BookingLimiter {
	return &BookingLimiter{cfg: cfg, rdb: rdb, now: time.Now, logger: log.New("ratelimit")}
}

// Allow spends one token from the bucket at key.
func (l *BookingLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := bookingScript.Run(ctx, l.rdb, []string{key},
		l.now().UnixMilli(),
		l.cfg.Burst,
		l.cfg.RefillEvery.Milliseconds(),
		int64(l.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// bucketKey picks the bucket for the request. Anonymous callers are keyed
// by IP whatever the scope.
func (l *BookingLimiter) bucketKey(c echo.Context) string {
	uid := userID(c)
	if uid == "anon" || l.cfg.Scope == config.LimitPerIP {
		return l.cfg.Prefix + ":book:ip:" + c.RealIP()
	}
	key := l.cfg.Prefix + ":book:user:" + uid
	if id := c.Param("id"); id != "" && l.cfg.Scope == config.LimitPerUserShow {
		key += ":show:" + id
	}
	return key
}

// Middleware rejects attempts beyond the bucket with 429. Redis errors fail
// open so an outage never blocks bookings.
func (l *BookingLimiter) Middleware() echo.MiddlewareFunc {
	if !l.cfg.Enabled || l.rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := l.bucketKey(c)
			d, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				l.logger.Warnf("bucket %s: %v", key, err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Burst))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if d.Allowed {
				return next(c)
			}

			secs := int((d.RetryAfter + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			l.logger.Debugf("bucket %s empty, retry in %s", key, d.RetryAfter)
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too many booking attempts",
				"code":        "rate_limited",
				"retry_after": secs,
			})
		}
	}
}
