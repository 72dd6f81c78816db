package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a reservation operation did not succeed.
type Kind int

const (
	KindInvalidSeat Kind = iota + 1
	KindCutoffPassed
	KindSeatBlocked
	KindCategoryNotAllowed
	KindSeatLimitExceeded
	KindDuplicateReservation
	KindSeatConflict
	KindRetryableFailure
	KindNotFound
	KindForbidden
	KindUserDisabled
	KindNoSeats
	KindInvalidShow
)

var kindCodes = map[Kind]string{
	KindInvalidSeat:          "invalid_seat",
	KindCutoffPassed:         "cutoff_passed",
	KindSeatBlocked:          "seat_blocked",
	KindCategoryNotAllowed:   "category_not_allowed",
	KindSeatLimitExceeded:    "seat_limit_exceeded",
	KindDuplicateReservation: "duplicate_reservation",
	KindSeatConflict:         "seat_conflict",
	KindRetryableFailure:     "retryable_failure",
	KindNotFound:             "not_found",
	KindForbidden:            "forbidden",
	KindUserDisabled:         "user_disabled",
	KindNoSeats:              "no_seats",
	KindInvalidShow:          "invalid_show",
}

var kindMessages = map[Kind]string{
	KindInvalidSeat:          "one or more seats do not exist in this auditorium",
	KindCutoffPassed:         "online booking for this show has closed",
	KindSeatBlocked:          "one or more seats are not available for this show",
	KindCategoryNotAllowed:   "your account category cannot book these seats",
	KindSeatLimitExceeded:    "you selected more seats than your limit allows",
	KindDuplicateReservation: "you already have a reservation for this show",
	KindSeatConflict:         "these seats were just taken, please choose different seats",
	KindRetryableFailure:     "the booking system is busy, please try again",
	KindNotFound:             "not found",
	KindForbidden:            "you are not allowed to change this reservation",
	KindUserDisabled:         "your account is disabled",
	KindNoSeats:              "select at least one seat",
	KindInvalidShow:          "the show definition is invalid",
}

// Code returns a stable machine-readable identifier.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return "unknown"
}

// Message returns the human-readable text shown to users.
func (k Kind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return "unexpected error"
}

func (k Kind) String() string { return k.Code() }

// Error is returned for every expected rejection. Seats lists the seats
// that caused it, when applicable.
type Error struct {
	Kind  Kind
	Seats []string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Code())
	if len(e.Seats) > 0 {
		fmt.Fprintf(&b, " %v", e.Seats)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidSeat          = &Error{Kind: KindInvalidSeat}
	ErrCutoffPassed         = &Error{Kind: KindCutoffPassed}
	ErrSeatBlocked          = &Error{Kind: KindSeatBlocked}
	ErrCategoryNotAllowed   = &Error{Kind: KindCategoryNotAllowed}
	ErrSeatLimitExceeded    = &Error{Kind: KindSeatLimitExceeded}
	ErrDuplicateReservation = &Error{Kind: KindDuplicateReservation}
	ErrSeatConflict         = &Error{Kind: KindSeatConflict}
	ErrRetryableFailure     = &Error{Kind: KindRetryableFailure}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrUserDisabled         = &Error{Kind: KindUserDisabled}
	ErrNoSeats              = &Error{Kind: KindNoSeats}
	ErrInvalidShow          = &Error{Kind: KindInvalidShow}
)

func reject(k Kind, seats ...string) *Error {
	return &Error{Kind: k, Seats: seats}
}

// KindOf returns the kind carried by err, or zero when err is not a
// reservation rejection.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
