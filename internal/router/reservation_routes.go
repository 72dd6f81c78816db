package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-seat-reservation/internal/handler"
	"github.com/iliyamo/auditorium-seat-reservation/internal/middleware"
)

// RegisterReservations registers the seat map and the user-facing
// reservation endpoints under /v1. limiter guards reservation writes and
// cache fronts the seat map; either may be a pass-through.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limiter, cache echo.MiddlewareFunc) {
	// Public so guests can preview availability.
	e.GET("/v1/shows/:id/seatmap", h.SeatMap, cache)

	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleUser, middleware.RoleAdmin),
	)
	g.POST("/shows/:id/reservations", h.Create, limiter)
	g.GET("/shows/:id/reservations", h.ListForShow)
	g.GET("/my-reservations", h.ListMine)
	g.GET("/users/:id/reservations", h.ListForUser)
	g.GET("/reservations/:id", h.Get)
	g.DELETE("/reservations/:id", h.Delete)
}

// RegisterAdmin registers administrator-only endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.POST("/shows/:id/reservations", h.AdminCreate)
}
