// Package queue carries reservation events over RabbitMQ: the publisher
// emits them after a ledger commit and the consumer appends them to the
// audit log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// QueueName is the durable queue every reservation event is routed to.
const QueueName = "reservation.events"

// Event types.
const (
	EventCommitted = "reservation.committed"
	EventCancelled = "reservation.cancelled"
)

// ReservationEvent is published whenever the ledger gains or loses a
// reservation. It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type ReservationEvent struct {
	EventID       string   `json:"event_id"`
	Type          string   `json:"type"`
	ReservationID uint64   `json:"reservation_id"`
	UserID        uint64   `json:"user_id"`
	ShowID        uint64   `json:"show_id"`
	Seats         []string `json:"seats"`
	OccurredAt    string   `json:"occurred_at"`
}

// NewReservationEvent builds an event of the given type for r with a fresh
// event id.
func NewReservationEvent(typ string, r model.Reservation, at time.Time) ReservationEvent {
	seats := r.SeatNumbers
	if seats == nil {
		seats = []string{}
	}
	return ReservationEvent{
		EventID:       uuid.NewString(),
		Type:          typ,
		ReservationID: r.ID,
		UserID:        r.UserID,
		ShowID:        r.ShowID,
		Seats:         seats,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}
