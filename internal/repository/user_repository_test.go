package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

var userQuery = regexp.QuoteMeta("SELECT id,email,category,seat_limit,is_admin,is_enabled FROM users WHERE id=? LIMIT 1")

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	cols := []string{"id", "email", "category", "seat_limit", "is_admin", "is_enabled"}

	mock.ExpectQuery(userQuery).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(5, "ana@example.com", "FAMILY", 6, false, true))
	mock.ExpectQuery(userQuery).WithArgs(6).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(6, "root@example.com", "single", nil, true, true))

	u, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryFamily, u.Category)
	require.NotNil(t, u.SeatLimit)
	assert.Equal(t, 6, u.Limit())

	admin, err := repo.GetByID(context.Background(), 6)
	require.NoError(t, err)
	assert.Nil(t, admin.SeatLimit)
	assert.Equal(t, -1, admin.Limit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(userQuery).WithArgs(404).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewUserRepo(db).GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}
