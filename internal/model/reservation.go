package model

import "time"

// Reservation records a user's seats for a specific show.  A user holds at
// most one reservation per show and no seat appears in two reservations of
// the same show.
//
// Fields:
//  ID          – primary key identifier.
//  ShowID      – show being reserved.
//  UserID      – user who holds the seats.
//  SeatNumbers – seat identifiers in request order.
//  CreatedAt   – creation timestamp.
type Reservation struct {
	ID          uint64    `json:"id"`           // reservations.id
	ShowID      uint64    `json:"show_id"`      // reservations.show_id
	UserID      uint64    `json:"user_id"`      // reservations.user_id
	SeatNumbers []string  `json:"seat_numbers"` // reservations.seat_numbers
	CreatedAt   time.Time `json:"created_at"`   // reservations.created_at
}
