package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
	"github.com/iliyamo/auditorium-seat-reservation/internal/service"
)

// ShowService is the show catalog as seen by the HTTP layer.
type ShowService interface {
	Create(ctx context.Context, in service.NewShow) (model.Show, error)
	Show(ctx context.Context, id uint64) (model.Show, error)
	Search(ctx context.Context, f service.ShowFilter) (service.ShowPage, error)
}

// ShowHandler serves public browsing and administrator scheduling of shows.
type ShowHandler struct {
	svc ShowService
}

// NewShowHandler constructs a ShowHandler.
func NewShowHandler(svc ShowService) *ShowHandler {
	return &ShowHandler{svc: svc}
}

// Search handles GET /v1/shows.
// Query: title, time ("upcoming" default or "any"), page, page_size.
func (h *ShowHandler) Search(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	res, err := h.svc.Search(c.Request().Context(), service.ShowFilter{
		Title:      c.QueryParam("title"),
		TimeFilter: c.QueryParam("time"),
		Page:       page,
		PageSize:   ps,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Get handles GET /v1/shows/:id.
func (h *ShowHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	s, err := h.svc.Show(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create handles POST /v1/admin/shows and schedules a show on the venue
// layout.
func (h *ShowHandler) Create(c echo.Context) error {
	var body struct {
		Title             string   `json:"title"`
		StartsAt          string   `json:"starts_at"` // RFC3339
		BlockedSeats      []string `json:"blocked_seats"`
		AllowedCategories []string `json:"allowed_categories"`
		ExclusiveRows     []string `json:"exclusive_rows"`
		PriceCents        uint32   `json:"price_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(body.StartsAt))
	if err != nil {
		return badRequest(c, "invalid starts_at format")
	}
	cats := make([]model.Category, 0, len(body.AllowedCategories))
	for _, s := range body.AllowedCategories {
		cats = append(cats, model.Category(strings.ToLower(strings.TrimSpace(s))))
	}
	s, err := h.svc.Create(c.Request().Context(), service.NewShow{
		Title:             body.Title,
		StartsAt:          startsAt,
		BlockedSeats:      body.BlockedSeats,
		AllowedCategories: cats,
		ExclusiveRows:     body.ExclusiveRows,
		PriceCents:        body.PriceCents,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}
