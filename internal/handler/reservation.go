package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
	"github.com/iliyamo/auditorium-seat-reservation/internal/service"
)

// ReservationHandler exposes the reservation core over HTTP. All methods
// assume JWTAuth has already run.
type ReservationHandler struct {
	svc ReservationService
}

// NewReservationHandler panics on a nil service.
func NewReservationHandler(svc ReservationService) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc}
}

type reserveRequest struct {
	SeatNumbers []string `json:"seat_numbers"`
}

type adminReserveRequest struct {
	UserID      uint64   `json:"user_id"`
	SeatNumbers []string `json:"seat_numbers"`
}

type reservationList struct {
	Items []model.Reservation `json:"items"`
	Count int                 `json:"count"`
}

func listOf(items []model.Reservation) reservationList {
	if items == nil {
		items = []model.Reservation{}
	}
	return reservationList{Items: items, Count: len(items)}
}

// Create handles POST /v1/shows/:id/reservations with body
// {"seat_numbers": ["FA2","FA3"]}. It returns 201 and the stored
// reservation, or the rejection kind.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	showID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	var body reserveRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.svc.Reserve(c.Request().Context(), service.Request{
		ShowID: showID,
		UserID: userID,
		Seats:  body.SeatNumbers,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// AdminCreate handles POST /v1/admin/shows/:id/reservations. Administrators
// book on behalf of user_id and may do so after the booking cutoff.
func (h *ReservationHandler) AdminCreate(c echo.Context) error {
	showID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	var body adminReserveRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.UserID == 0 {
		return badRequest(c, "user_id is required")
	}

	res, err := h.svc.Reserve(c.Request().Context(), service.Request{
		ShowID:         showID,
		UserID:         body.UserID,
		Seats:          body.SeatNumbers,
		Administrative: true,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Delete handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
	userID, admin, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	if err := h.svc.Cancel(c.Request().Context(), id, userID, admin); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/reservations/:id for the owner or an administrator.
func (h *ReservationHandler) Get(c echo.Context) error {
	userID, admin, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := h.svc.Reservation(c.Request().Context(), id, userID, admin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	items, err := h.svc.ReservationsForUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listOf(items))
}

// ListForUser handles GET /v1/users/:id/reservations; only the user
// themselves or an administrator may call it.
func (h *ReservationHandler) ListForUser(c echo.Context) error {
	callerID, admin, err := caller(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	if userID != callerID && !admin {
		return writeError(c, service.ErrForbidden)
	}
	items, err := h.svc.ReservationsForUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listOf(items))
}

// ListForShow handles GET /v1/shows/:id/reservations.
func (h *ReservationHandler) ListForShow(c echo.Context) error {
	showID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	items, err := h.svc.ReservationsForShow(c.Request().Context(), showID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listOf(items))
}

// SeatMap handles GET /v1/shows/:id/seatmap. Responses are cached per show
// by the router.
func (h *ReservationHandler) SeatMap(c echo.Context) error {
	showID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	m, err := h.svc.SeatMap(c.Request().Context(), showID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
