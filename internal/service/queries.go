package service

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/auditorium-seat-reservation/internal/layout"
	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// ReservationsForShow lists every reservation of a show.
func (e *Engine) ReservationsForShow(ctx context.Context, showID uint64) ([]model.Reservation, error) {
	if _, err := e.shows.GetByID(ctx, showID); err != nil {
		return nil, notFound(err)
	}
	return e.ledger.ListByShow(ctx, showID)
}

// ReservationsForUser lists a user's reservations, newest first.
func (e *Engine) ReservationsForUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return e.ledger.ListByUser(ctx, userID)
}

// Reservation returns one reservation if the requester owns it or is an
// administrator.
func (e *Engine) Reservation(ctx context.Context, id, requesterID uint64, requesterIsAdmin bool) (model.Reservation, error) {
	r, err := e.ledger.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, notFound(err)
	}
	if r.UserID != requesterID && !requesterIsAdmin {
		return model.Reservation{}, reject(KindForbidden)
	}
	return r, nil
}

// SeatMap is the availability view of one show.
type SeatMap struct {
	ShowID          uint64        `json:"show_id"`
	Title           string        `json:"title"`
	StartsAt        time.Time     `json:"starts_at"`
	BookingClosesAt time.Time     `json:"booking_closes_at"`
	BookingOpen     bool          `json:"booking_open"`
	Layout          layout.Layout `json:"layout"`
	Blocked         []string      `json:"blocked"`
	Reserved        []string      `json:"reserved"`
	ExclusiveRows   []string      `json:"exclusive_rows"`
	TotalSeats      int           `json:"total_seats"`
	Available       int           `json:"available"`
}

// SeatMap reports which seats of a show are blocked or already reserved.
func (e *Engine) SeatMap(ctx context.Context, showID uint64) (SeatMap, error) {
	show, err := e.shows.GetByID(ctx, showID)
	if err != nil {
		return SeatMap{}, notFound(err)
	}
	held, err := e.ledger.ListByShow(ctx, showID)
	if err != nil {
		return SeatMap{}, err
	}

	unavailable := make(map[string]struct{})
	blocked := make([]string, 0, len(show.BlockedSeats))
	for _, b := range show.BlockedSeats {
		b = layout.Normalize(b)
		if !layout.IsValidSeat(show.Layout, b) {
			continue
		}
		if _, seen := unavailable[b]; !seen {
			blocked = append(blocked, b)
		}
		unavailable[b] = struct{}{}
	}
	reserved := make([]string, 0)
	for _, r := range held {
		for _, s := range r.SeatNumbers {
			s = layout.Normalize(s)
			reserved = append(reserved, s)
			unavailable[s] = struct{}{}
		}
	}
	sort.Strings(blocked)
	sort.Strings(reserved)

	total := layout.TotalSeats(show.Layout)
	closes := show.Cutoff(e.cutoff)
	return SeatMap{
		ShowID:          show.ID,
		Title:           show.Title,
		StartsAt:        show.StartsAt,
		BookingClosesAt: closes,
		BookingOpen:     e.clock.Now().Before(closes),
		Layout:          show.Layout,
		Blocked:         blocked,
		Reserved:        reserved,
		ExclusiveRows:   show.ExclusiveRows,
		TotalSeats:      total,
		Available:       total - len(unavailable),
	}, nil
}
