package service

import (
	"time"

	"github.com/iliyamo/auditorium-seat-reservation/internal/clock"
	"github.com/iliyamo/auditorium-seat-reservation/internal/layout"
	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// Evaluator decides whether a reservation request is legal for a show and
// user. It performs no I/O; callers load the show, the user and the
// user's existing reservations for the show.
type Evaluator struct {
	clock  clock.Clock
	cutoff time.Duration
}

// NewEvaluator returns an evaluator closing bookings cutoff before each
// show starts.
func NewEvaluator(clk clock.Clock, cutoff time.Duration) *Evaluator {
	if cutoff < 0 {
		cutoff = 0
	}
	return &Evaluator{clock: clk, cutoff: cutoff}
}

// PrepareSeats normalizes identifiers, drops blanks and duplicates while
// keeping request order.
func PrepareSeats(seats []string) ([]string, error) {
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		s = layout.Normalize(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, reject(KindNoSeats)
	}
	return out, nil
}

// Check applies the admission rules in order and returns the first
// failure. seats must come from PrepareSeats. existing holds the user's
// reservations for this show. administrative marks an edit made by an
// administrator, which may pass the booking cutoff but not the show start.
func (e *Evaluator) Check(show model.Show, user model.User, seats []string, administrative bool, existing []model.Reservation) error {
	parsed := make([]layout.Seat, 0, len(seats))
	var invalid []string
	for _, s := range seats {
		p, err := layout.Parse(show.Layout, s)
		if err != nil {
			invalid = append(invalid, s)
			continue
		}
		parsed = append(parsed, p)
	}
	if len(invalid) > 0 {
		return reject(KindInvalidSeat, invalid...)
	}

	if !user.IsEnabled {
		return reject(KindUserDisabled)
	}

	now := e.clock.Now()
	if administrative {
		if !now.Before(show.StartsAt) {
			return reject(KindCutoffPassed)
		}
	} else if !now.Before(show.Cutoff(e.cutoff)) {
		return reject(KindCutoffPassed)
	}

	var blocked []string
	for _, s := range seats {
		if show.IsBlocked(s) {
			blocked = append(blocked, s)
		}
	}
	if len(blocked) > 0 {
		return reject(KindSeatBlocked, blocked...)
	}

	if !user.IsAdmin {
		var restricted []string
		for _, p := range parsed {
			if show.IsExclusiveRow(p) && user.Category != model.CategoryExclusive {
				restricted = append(restricted, p.ID())
			}
		}
		if len(restricted) > 0 {
			return reject(KindCategoryNotAllowed, restricted...)
		}
		if !show.Allows(user.Category) {
			return reject(KindCategoryNotAllowed)
		}
		if limit := user.Limit(); limit >= 0 && len(seats) > limit {
			return reject(KindSeatLimitExceeded)
		}
	}

	if len(existing) > 0 {
		return reject(KindDuplicateReservation)
	}
	return nil
}

// Conflicts returns the requested seats already held by any of reservations.
func Conflicts(seats []string, reservations []model.Reservation) []string {
	held := make(map[string]struct{})
	for _, r := range reservations {
		for _, s := range r.SeatNumbers {
			held[layout.Normalize(s)] = struct{}{}
		}
	}
	var out []string
	for _, s := range seats {
		if _, ok := held[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
