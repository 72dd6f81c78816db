package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// ReservationRepo is the reservation ledger.  Seats are stored in the
// reservations.seat_numbers column as a serialized collection (JSON array
// on write, JSON or comma-separated on read).  The repository never
// interprets seat identifiers and performs no conflict checking; that is
// the arbitration service's job.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// WithTx runs fn in a SERIALIZABLE transaction.  Repositories sharing the
// same *sql.DB pick the transaction up from the context passed to fn.
// Deadlocks and lock wait timeouts are reported as ErrSerialization.
func (r *ReservationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

const reservationColumns = `id, show_id, user_id, seat_numbers, created_at`

// ListByShow returns every reservation for a show ordered by id.
func (r *ReservationRepo) ListByShow(ctx context.Context, showID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE show_id = ? ORDER BY id`, showID)
}

// ListByUser returns every reservation of a user, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// ListByUserAndShow returns the reservations a user holds for one show.
// Under normal operation the result has at most one element.
func (r *ReservationRepo) ListByUserAndShow(ctx context.Context, userID, showID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? AND show_id = ? ORDER BY id`, userID, showID)
}

// GetByID returns a single reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, ErrReservationNotFound
		}
		return model.Reservation{}, err
	}
	return res, nil
}

// Insert writes a new reservation row as given.  Overlapping seats are
// not detected here.  A second row for the same (user, show) pair is
// rejected by the unique index and reported as ErrDuplicate.
func (r *ReservationRepo) Insert(ctx context.Context, userID, showID uint64, seats []string, createdAt time.Time) (model.Reservation, error) {
	const q = `INSERT INTO reservations (show_id, user_id, seat_numbers, created_at) VALUES (?, ?, ?, ?)`
	createdAt = createdAt.UTC()
	result, err := conn(ctx, r.db).ExecContext(ctx, q, showID, userID, EncodeSeats(seats), createdAt)
	if err != nil {
		return model.Reservation{}, classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Reservation{}, err
	}
	out := make([]string, len(seats))
	copy(out, seats)
	return model.Reservation{
		ID:          uint64(id),
		ShowID:      showID,
		UserID:      userID,
		SeatNumbers: out,
		CreatedAt:   createdAt,
	}, nil
}

// Delete removes a reservation unconditionally.  Authorization is the
// caller's concern.  It returns ErrReservationNotFound when nothing was
// deleted.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var (
		res   model.Reservation
		seats string
	)
	if err := row.Scan(&res.ID, &res.ShowID, &res.UserID, &seats, &res.CreatedAt); err != nil {
		return model.Reservation{}, err
	}
	res.SeatNumbers = DecodeSeats(seats)
	res.CreatedAt = res.CreatedAt.UTC()
	return res, nil
}
