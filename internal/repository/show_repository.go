// Package repository contains data access logic for the reservation core.
// This file defines repository methods for shows. A Show carries the
// seating layout and the per-show restrictions consulted by eligibility.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel comparisons
	"fmt"
	"strings"

	"github.com/iliyamo/auditorium-seat-reservation/internal/layout"
	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

const showColumns = `id, title, starts_at, layout, blocked_seats, allowed_categories, exclusive_rows, price_cents, created_at`

// GetByID retrieves a show by its ID.  It returns ErrShowNotFound if
// there is no matching row.  Inside a transaction started by
// ReservationRepo.WithTx the read participates in that transaction.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows WHERE id = ?`
	s, err := scanShow(conn(ctx, r.db).QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Show{}, ErrShowNotFound
		}
		return model.Show{}, err
	}
	return s, nil
}

// Create inserts a show and assigns the generated ID.  A show using the
// venue default layout stores NULL in the layout column.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	var rawLayout sql.NullString
	if len(s.Layout.Sections) > 0 {
		enc, err := layout.Encode(s.Layout)
		if err != nil {
			return err
		}
		rawLayout = sql.NullString{String: enc, Valid: true}
	}
	cats := make([]string, 0, len(s.AllowedCategories))
	for _, c := range s.AllowedCategories {
		cats = append(cats, string(c))
	}
	const q = `INSERT INTO shows (title, starts_at, layout, blocked_seats, allowed_categories, exclusive_rows, price_cents)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		s.Title, s.StartsAt.UTC(), rawLayout,
		EncodeSeats(s.BlockedSeats), EncodeSeats(cats), EncodeSeats(s.ExclusiveRows),
		s.PriceCents,
	)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(row rowScanner) (model.Show, error) {
	var (
		s          model.Show
		rawLayout  sql.NullString
		blocked    string
		categories string
		exclusive  string
	)
	if err := row.Scan(&s.ID, &s.Title, &s.StartsAt, &rawLayout, &blocked, &categories, &exclusive, &s.PriceCents, &s.CreatedAt); err != nil {
		return model.Show{}, err
	}
	l, err := layout.Decode(rawLayout.String)
	if err != nil {
		return model.Show{}, fmt.Errorf("show %d: %w", s.ID, err)
	}
	s.Layout = l
	s.StartsAt = s.StartsAt.UTC()
	s.BlockedSeats = DecodeSeats(blocked)
	s.ExclusiveRows = DecodeSeats(exclusive)
	for _, c := range DecodeSeats(categories) {
		s.AllowedCategories = append(s.AllowedCategories, model.Category(strings.ToLower(c)))
	}
	return s, nil
}
