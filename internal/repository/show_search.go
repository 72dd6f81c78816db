package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
)

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ShowSearchQuery defines filters & pagination for searching shows.
// TimeFilter is "upcoming" (default, starts_at >= Now) or "any".
type ShowSearchQuery struct {
	Title      string
	TimeFilter string
	Now        time.Time
	Page       int
	PageSize   int
}

// Search lists shows ordered by start time and returns the page together
// with the total number of matches.
func (r *ShowRepo) Search(ctx context.Context, q ShowSearchQuery) ([]model.Show, int64, error) {
	where := []string{}
	args := []any{}

	switch strings.ToLower(q.TimeFilter) {
	case "any":
	default:
		where = append(where, "starts_at >= ?")
		args = append(args, q.Now.UTC())
	}
	if q.Title != "" {
		where = append(where, "LOWER(title) LIKE ? ESCAPE '!'")
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q.Title))+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	dataSQL := `SELECT ` + showColumns + ` FROM shows WHERE ` + cond + ` ORDER BY starts_at ASC, id ASC LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Show, 0, q.PageSize)
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
