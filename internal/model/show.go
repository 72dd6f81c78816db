package model

import (
	"time"

	"github.com/iliyamo/auditorium-seat-reservation/internal/layout"
)

// DefaultBookingCutoff is how long before the show starts online booking
// closes.
const DefaultBookingCutoff = 30 * time.Minute

// Show represents a scheduled performance in the auditorium.  The layout
// is fixed when the show is created; blocked seats, allowed categories and
// exclusive rows further restrict which seats a user may reserve.
//
// Fields:
//  ID                – primary key identifier.
//  Title             – name of the performance.
//  StartsAt          – when the show begins (UTC).
//  Layout            – seating plan (venue default when not stored).
//  BlockedSeats      – seats administratively removed from sale.
//  AllowedCategories – user categories permitted to book.
//  ExclusiveRows     – rows reserved for the exclusive category, given as
//                      full row codes ("FR") or bare row labels ("R").
//  PriceCents        – ticket price in cents.
//  CreatedAt         – creation timestamp.
type Show struct {
	ID                uint64        `json:"id"`                 // shows.id
	Title             string        `json:"title"`              // shows.title
	StartsAt          time.Time     `json:"starts_at"`          // shows.starts_at
	Layout            layout.Layout `json:"layout"`             // shows.layout (nullable)
	BlockedSeats      []string      `json:"blocked_seats"`      // shows.blocked_seats
	AllowedCategories []Category    `json:"allowed_categories"` // shows.allowed_categories
	ExclusiveRows     []string      `json:"exclusive_rows"`     // shows.exclusive_rows
	PriceCents        uint32        `json:"price_cents"`        // shows.price_cents
	CreatedAt         time.Time     `json:"created_at"`         // shows.created_at
}

// Cutoff returns the instant after which new reservations are refused.
func (s Show) Cutoff(window time.Duration) time.Time {
	return s.StartsAt.Add(-window)
}

// IsBlocked reports whether seat is administratively blocked.
func (s Show) IsBlocked(seat string) bool {
	for _, b := range s.BlockedSeats {
		if layout.Normalize(b) == seat {
			return true
		}
	}
	return false
}

// Allows reports whether the category may book this show.
func (s Show) Allows(c Category) bool {
	for _, a := range s.AllowedCategories {
		if a == c {
			return true
		}
	}
	return false
}

// IsExclusiveRow reports whether the seat's row is restricted to the
// exclusive category.  The seat must already be a valid identifier.
func (s Show) IsExclusiveRow(seat layout.Seat) bool {
	for _, r := range s.ExclusiveRows {
		r = layout.Normalize(r)
		if r == seat.RowCode() || r == seat.Row {
			return true
		}
	}
	return false
}
