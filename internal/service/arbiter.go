package service

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/auditorium-seat-reservation/internal/clock"
	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
	"github.com/iliyamo/auditorium-seat-reservation/internal/repository"
)

// ShowReader loads shows. Implementations must honour a transaction carried
// in ctx.
type ShowReader interface {
	GetByID(ctx context.Context, id uint64) (model.Show, error)
}

// UserReader loads users.
type UserReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Ledger is the durable store of reservations. WithTx runs fn inside a
// serializable transaction; reads and writes made with the ctx passed to
// fn join it.
type Ledger interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListByShow(ctx context.Context, showID uint64) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	ListByUserAndShow(ctx context.Context, userID, showID uint64) ([]model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	Insert(ctx context.Context, userID, showID uint64, seats []string, createdAt time.Time) (model.Reservation, error)
	Delete(ctx context.Context, id uint64) error
}

// Listener is told about committed ledger changes. Calls happen after the
// transaction commits and must not block for long.
type Listener interface {
	ReservationCommitted(ctx context.Context, r model.Reservation)
	ReservationCancelled(ctx context.Context, r model.Reservation)
}

// State is a step of the arbitration state machine.
type State int

const (
	StateValidating State = iota
	StateTransacting
	StateCommitted
	StateRejected
	StateRetryableFailure
	StateExhausted
)

var stateNames = [...]string{"validating", "transacting", "committed", "rejected", "retryable_failure", "exhausted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
)

// Request asks for a set of seats in one show on behalf of one user.
// Administrative requests are made by an administrator and may be placed
// after the booking cutoff, until the show starts.
type Request struct {
	ShowID         uint64
	UserID         uint64
	Seats          []string
	Administrative bool
}

// Engine arbitrates concurrent reservation requests so that every seat of a
// show is held by at most one reservation.
type Engine struct {
	shows    ShowReader
	users    UserReader
	ledger   Ledger
	clock    clock.Clock
	eval     *Evaluator
	listener Listener
	logger   *log.Logger

	cutoff      time.Duration
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetry sets the attempt budget and the first backoff delay, which
// doubles after every failed attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(e *Engine) {
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
		if baseDelay >= 0 {
			e.baseDelay = baseDelay
		}
	}
}

// WithCutoff sets how long before the show start online booking closes.
func WithCutoff(d time.Duration) Option {
	return func(e *Engine) { e.cutoff = d }
}

// WithListener registers l for committed changes.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// WithLogger replaces the default "arbiter" logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine wires the arbitration engine.
func NewEngine(shows ShowReader, users UserReader, ledger Ledger, clk clock.Clock, opts ...Option) *Engine {
	e := &Engine{
		shows:       shows,
		users:       users,
		ledger:      ledger,
		clock:       clk,
		cutoff:      model.DefaultBookingCutoff,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       sleepContext,
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = log.New("arbiter")
	}
	e.eval = NewEvaluator(clk, e.cutoff)
	return e
}

// Reserve validates req and, when it is admissible, records it atomically.
// Expected rejections are returned as *Error. Transient storage failures
// are retried with exponential backoff; once the budget is spent the
// result is a KindRetryableFailure error.
func (e *Engine) Reserve(ctx context.Context, req Request) (model.Reservation, error) {
	seats, err := PrepareSeats(req.Seats)
	if err != nil {
		e.transition(req, StateValidating, StateRejected, err)
		return model.Reservation{}, err
	}

	show, err := e.shows.GetByID(ctx, req.ShowID)
	if err != nil {
		return model.Reservation{}, notFound(err)
	}
	user, err := e.users.GetByID(ctx, req.UserID)
	if err != nil {
		return model.Reservation{}, notFound(err)
	}
	mine, err := e.ledger.ListByUserAndShow(ctx, user.ID, show.ID)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := e.eval.Check(show, user, seats, req.Administrative, mine); err != nil {
		e.transition(req, StateValidating, StateRejected, err)
		return model.Reservation{}, err
	}
	e.transition(req, StateValidating, StateTransacting, nil)

	var res model.Reservation
	err = e.run(ctx, req, func(ctx context.Context) error {
		// The first pass saw a snapshot; everything is re-read under the
		// transaction before writing.
		show, err := e.shows.GetByID(ctx, req.ShowID)
		if err != nil {
			return notFound(err)
		}
		mine, err := e.ledger.ListByUserAndShow(ctx, user.ID, show.ID)
		if err != nil {
			return err
		}
		if err := e.eval.Check(show, user, seats, req.Administrative, mine); err != nil {
			return err
		}
		held, err := e.ledger.ListByShow(ctx, show.ID)
		if err != nil {
			return err
		}
		if taken := Conflicts(seats, held); len(taken) > 0 {
			return reject(KindSeatConflict, taken...)
		}
		res, err = e.ledger.Insert(ctx, user.ID, show.ID, seats, e.clock.Now())
		if errors.Is(err, repository.ErrDuplicate) {
			return &Error{Kind: KindDuplicateReservation, Err: err}
		}
		return err
	})
	if err != nil {
		return model.Reservation{}, err
	}
	if e.listener != nil {
		e.listener.ReservationCommitted(ctx, res)
	}
	return res, nil
}

// Cancel deletes a reservation. Owners may cancel until the booking cutoff;
// administrators until the show starts.
func (e *Engine) Cancel(ctx context.Context, reservationID, requesterID uint64, requesterIsAdmin bool) error {
	var res model.Reservation
	req := Request{UserID: requesterID, Administrative: requesterIsAdmin}
	err := e.run(ctx, req, func(ctx context.Context) error {
		r, err := e.ledger.GetByID(ctx, reservationID)
		if err != nil {
			return notFound(err)
		}
		if r.UserID != requesterID && !requesterIsAdmin {
			return reject(KindForbidden)
		}
		show, err := e.shows.GetByID(ctx, r.ShowID)
		if err != nil {
			return notFound(err)
		}
		deadline := show.Cutoff(e.cutoff)
		if requesterIsAdmin {
			deadline = show.StartsAt
		}
		if !e.clock.Now().Before(deadline) {
			return reject(KindCutoffPassed)
		}
		if err := e.ledger.Delete(ctx, r.ID); err != nil {
			return notFound(err)
		}
		res = r
		return nil
	})
	if err != nil {
		return err
	}
	if e.listener != nil {
		e.listener.ReservationCancelled(ctx, res)
	}
	return nil
}

// run drives fn through the Transacting state until it commits, is
// rejected, or the attempt budget is spent.
func (e *Engine) run(ctx context.Context, req Request, fn func(ctx context.Context) error) error {
	delay := e.baseDelay
	for attempt := 1; ; attempt++ {
		err := e.ledger.WithTx(ctx, fn)
		switch {
		case err == nil:
			e.transition(req, StateTransacting, StateCommitted, nil)
			return nil
		case !repository.IsRetryable(err):
			e.transition(req, StateTransacting, StateRejected, err)
			return err
		}

		e.transition(req, StateTransacting, StateRetryableFailure, err)
		if attempt >= e.maxAttempts {
			e.logger.Errorj(log.JSON{
				"event":    "arbitration_exhausted",
				"show_id":  req.ShowID,
				"user_id":  req.UserID,
				"attempts": attempt,
				"error":    err.Error(),
			})
			e.transition(req, StateRetryableFailure, StateExhausted, err)
			return &Error{Kind: KindRetryableFailure, Err: err}
		}
		e.logger.Warnf("arbiter: attempt %d/%d for show %d user %d failed transiently, retrying in %s: %v",
			attempt, e.maxAttempts, req.ShowID, req.UserID, delay, err)
		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		e.transition(req, StateRetryableFailure, StateTransacting, nil)
	}
}

func (e *Engine) transition(req Request, from, to State, cause error) {
	j := log.JSON{
		"event":   "arbitration_transition",
		"show_id": req.ShowID,
		"user_id": req.UserID,
		"from":    from.String(),
		"to":      to.String(),
	}
	if cause != nil {
		j["cause"] = cause.Error()
	}
	e.logger.Debugj(j)
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindNotFound, Err: err}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
