package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-seat-reservation/internal/middleware"
	"github.com/iliyamo/auditorium-seat-reservation/internal/model"
	"github.com/iliyamo/auditorium-seat-reservation/internal/service"
)

// ReservationService is the reservation core as seen by the HTTP layer.
type ReservationService interface {
	Reserve(ctx context.Context, req service.Request) (model.Reservation, error)
	Cancel(ctx context.Context, reservationID, requesterID uint64, requesterIsAdmin bool) error
	Reservation(ctx context.Context, id, requesterID uint64, requesterIsAdmin bool) (model.Reservation, error)
	ReservationsForShow(ctx context.Context, showID uint64) ([]model.Reservation, error)
	ReservationsForUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	SeatMap(ctx context.Context, showID uint64) (service.SeatMap, error)
}

// getUserID extracts the user_id stored by JWTAuth and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		if t > 0 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "bad_request"})
}

// statusFor maps a rejection kind to its HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindInvalidSeat, service.KindNoSeats, service.KindSeatLimitExceeded, service.KindInvalidShow:
		return http.StatusBadRequest
	case service.KindCategoryNotAllowed, service.KindForbidden, service.KindUserDisabled:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindCutoffPassed, service.KindSeatBlocked, service.KindDuplicateReservation, service.KindSeatConflict:
		return http.StatusConflict
	case service.KindRetryableFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error", "code"}. Rejections keep their kind;
// anything else is logged and reported as an internal error.
func writeError(c echo.Context, err error) error {
	var rej *service.Error
	if !errors.As(err, &rej) {
		if errors.Is(err, context.Canceled) {
			return c.NoContent(499)
		}
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
	}

	body := echo.Map{"error": rej.Kind.Message(), "code": rej.Kind.Code()}
	if len(rej.Seats) > 0 {
		if rej.Kind == service.KindSeatConflict {
			body["conflicting_seats"] = rej.Seats
		} else {
			body["seats"] = rej.Seats
		}
	}
	if rej.Kind == service.KindInvalidShow && rej.Err != nil {
		body["detail"] = rej.Err.Error()
	}
	if rej.Kind == service.KindRetryableFailure {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(statusFor(rej.Kind), body)
}

// caller returns the authenticated user id and whether they are an admin.
func caller(c echo.Context) (uint64, bool, error) {
	id, err := getUserID(c)
	if err != nil {
		return 0, false, err
	}
	return id, middleware.IsAdmin(c), nil
}
