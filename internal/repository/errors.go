// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// arbitration service and the handlers to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is the parent of every "row does not exist" error.
var ErrNotFound = errors.New("not found")

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = fmt.Errorf("show %w", ErrNotFound)

// ErrUserNotFound indicates that a user was not located in the DB.
var ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

// ErrReservationNotFound indicates that a reservation was not located in the DB.
var ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)

// ErrDuplicate is returned when an insert violates a unique index, e.g. a
// second reservation for the same user and show.
var ErrDuplicate = errors.New("duplicate entry")

// ErrSerialization is returned when the storage engine aborted a
// transaction because of lock contention (deadlock or lock wait timeout).
// The transaction left no trace and may be retried as a whole.
var ErrSerialization = errors.New("serialization failure")

// MySQL server error numbers that are classified.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify maps driver errors onto the sentinels above.  Unknown errors are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
	}
	return err
}

// IsRetryable reports whether err is a transient contention failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSerialization)
}
