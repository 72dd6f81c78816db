package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/auditorium-seat-reservation/internal/clock"
	"github.com/iliyamo/auditorium-seat-reservation/internal/layout"
	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
	"github.com/iliyamo/auditorium-seat-reservation/internal/repository"
)

// ShowStore persists shows for the catalog.
type ShowStore interface {
	GetByID(ctx context.Context, id uint64) (model.Show, error)
	Create(ctx context.Context, s *model.Show) error
	Search(ctx context.Context, q repository.ShowSearchQuery) ([]model.Show, int64, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NewShow describes a performance to schedule on the venue layout.
// AllowedCategories defaults to every category when empty.
type NewShow struct {
	Title             string
	StartsAt          time.Time
	BlockedSeats      []string
	AllowedCategories []model.Category
	ExclusiveRows     []string
	PriceCents        uint32
}

// ShowFilter narrows a catalog search. TimeFilter is "upcoming" or "any".
type ShowFilter struct {
	Title      string
	TimeFilter string
	Page       int
	PageSize   int
}

// ShowPage is one page of search results.
type ShowPage struct {
	Items    []model.Show `json:"items"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// Catalog schedules and lists shows.
type Catalog struct {
	store  ShowStore
	clock  clock.Clock
	logger *log.Logger
}

// NewCatalog constructs a Catalog.
func NewCatalog(store ShowStore, clk clock.Clock) *Catalog {
	return &Catalog{store: store, clock: clk, logger: log.New("catalog")}
}

// Create validates in against the venue layout and stores it.
func (c *Catalog) Create(ctx context.Context, in NewShow) (model.Show, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Show{}, &Error{Kind: KindInvalidShow, Err: errors.New("title is required")}
	}
	if in.StartsAt.IsZero() {
		return model.Show{}, &Error{Kind: KindInvalidShow, Err: errors.New("starts_at is required")}
	}
	if !in.StartsAt.After(c.clock.Now()) {
		return model.Show{}, &Error{Kind: KindInvalidShow, Err: errors.New("starts_at must be in the future")}
	}

	venue := layout.Venue()
	blocked := make([]string, 0, len(in.BlockedSeats))
	seen := make(map[string]struct{}, len(in.BlockedSeats))
	var bad []string
	for _, s := range in.BlockedSeats {
		s = layout.Normalize(s)
		if s == "" {
			continue
		}
		if !layout.IsValidSeat(venue, s) {
			bad = append(bad, s)
			continue
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			blocked = append(blocked, s)
		}
	}
	if len(bad) > 0 {
		return model.Show{}, reject(KindInvalidSeat, bad...)
	}

	cats := in.AllowedCategories
	if len(cats) == 0 {
		cats = []model.Category{model.CategorySingle, model.CategoryFamily, model.CategoryExclusive}
	}
	for _, cat := range cats {
		if !cat.Valid() {
			return model.Show{}, &Error{Kind: KindInvalidShow, Err: errors.New("unknown category " + string(cat))}
		}
	}

	rows := make([]string, 0, len(in.ExclusiveRows))
	for _, r := range in.ExclusiveRows {
		r = layout.Normalize(r)
		if r == "" {
			continue
		}
		if !knownRow(venue, r) {
			return model.Show{}, &Error{Kind: KindInvalidShow, Err: errors.New("unknown row " + r)}
		}
		rows = append(rows, r)
	}

	show := model.Show{
		Title:             title,
		StartsAt:          in.StartsAt.UTC(),
		BlockedSeats:      blocked,
		AllowedCategories: cats,
		ExclusiveRows:     rows,
		PriceCents:        in.PriceCents,
		CreatedAt:         c.clock.Now(),
	}
	// An empty layout is stored as NULL and read back as the venue plan.
	if err := c.store.Create(ctx, &show); err != nil {
		return model.Show{}, err
	}
	show.Layout = venue
	c.logger.Infoj(log.JSON{"event": "show_created", "show_id": show.ID, "starts_at": show.StartsAt})
	return show, nil
}

// Show returns one show.
func (c *Catalog) Show(ctx context.Context, id uint64) (model.Show, error) {
	s, err := c.store.GetByID(ctx, id)
	if err != nil {
		return model.Show{}, notFound(err)
	}
	return s, nil
}

// Search lists shows matching f, upcoming ones by default.
func (c *Catalog) Search(ctx context.Context, f ShowFilter) (ShowPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	tf := strings.ToLower(strings.TrimSpace(f.TimeFilter))
	if tf != "any" {
		tf = "upcoming"
	}
	items, total, err := c.store.Search(ctx, repository.ShowSearchQuery{
		Title:      strings.TrimSpace(f.Title),
		TimeFilter: tf,
		Now:        c.clock.Now(),
		Page:       f.Page,
		PageSize:   f.PageSize,
	})
	if err != nil {
		return ShowPage{}, err
	}
	return ShowPage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// knownRow accepts a full row code ("RR") or a bare label present in any
// section ("R").
func knownRow(l layout.Layout, r string) bool {
	for _, sec := range l.Sections {
		for _, row := range sec.Rows {
			if r == row.Label || r == sec.Prefix+row.Label {
				return true
			}
		}
	}
	return false
}
