package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// UserRepo reads the 'users' table.  Accounts are created by the admin
// tooling; the reservation core only needs lookups.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetByID fetches a user by id.  It returns ErrUserNotFound when no row
// matches.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var (
		u        model.User
		category string
		limit    sql.NullInt64
	)
	err := conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT id,email,category,seat_limit,is_admin,is_enabled FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &category, &limit, &u.IsAdmin, &u.IsEnabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	u.Category = model.Category(strings.ToLower(category))
	if limit.Valid {
		n := int(limit.Int64)
		u.SeatLimit = &n
	}
	return u, nil
}
