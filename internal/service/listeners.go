package service

import (
	"context"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// Listeners fans ledger notifications out to several listeners in order.
type Listeners []Listener

func (ls Listeners) ReservationCommitted(ctx context.Context, r model.Reservation) {
	for _, l := range ls {
		l.ReservationCommitted(ctx, r)
	}
}

func (ls Listeners) ReservationCancelled(ctx context.Context, r model.Reservation) {
	for _, l := range ls {
		l.ReservationCancelled(ctx, r)
	}
}
