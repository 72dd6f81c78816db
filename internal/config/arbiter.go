package config

import (
	"time"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// ArbiterConfig tunes the reservation arbitration engine.
type ArbiterConfig struct {
	MaxAttempts   int           // attempts per request before giving up on transient failures
	BaseDelay     time.Duration // first retry delay; doubles after each failed attempt
	BookingCutoff time.Duration // online booking closes this long before a show starts
}

func LoadArbiterConfig() ArbiterConfig {
	cfg := ArbiterConfig{
		MaxAttempts:   envInt("ARBITER_MAX_ATTEMPTS", 3),
		BaseDelay:     envDur("ARBITER_BASE_DELAY", 100*time.Millisecond),
		BookingCutoff: envDur("BOOKING_CUTOFF", model.DefaultBookingCutoff),
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}
	if cfg.BookingCutoff < 0 {
		cfg.BookingCutoff = 0
	}
	return cfg
}
