package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// NormalizeSeatColumns rewrites legacy comma-separated seat collections in
// reservations.seat_numbers and shows.blocked_seats to the canonical JSON
// array format.  Rows already in canonical form are left alone.  It
// returns the number of rows rewritten.
func NormalizeSeatColumns(ctx context.Context, db *sql.DB) (int, error) {
	total := 0
	for _, target := range []struct{ table, column string }{
		{"reservations", "seat_numbers"},
		{"shows", "blocked_seats"},
	} {
		n, err := normalizeColumn(ctx, db, target.table, target.column)
		if err != nil {
			return total, fmt.Errorf("normalize %s.%s: %w", target.table, target.column, err)
		}
		total += n
	}
	return total, nil
}

func normalizeColumn(ctx context.Context, db *sql.DB, table, column string) (int, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT id, %s FROM %s", column, table))
	if err != nil {
		return 0, err
	}
	type pending struct {
		id  uint64
		val string
	}
	var todo []pending
	for rows.Next() {
		var (
			id  uint64
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return 0, err
		}
		if IsCanonical(raw) {
			continue
		}
		todo = append(todo, pending{id: id, val: EncodeSeats(DecodeSeats(raw))})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	update := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", table, column)
	for _, p := range todo {
		if _, err := db.ExecContext(ctx, update, p.val, p.id); err != nil {
			return 0, err
		}
	}
	return len(todo), nil
}
