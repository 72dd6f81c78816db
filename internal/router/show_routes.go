package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-seat-reservation/internal/handler"
	"github.com/iliyamo/auditorium-seat-reservation/internal/middleware"
)

// RegisterShows registers public show browsing and administrator
// scheduling. cache fronts the single-show view.
func RegisterShows(e *echo.Echo, h *handler.ShowHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/v1/shows", h.Search)
	e.GET("/v1/shows/:id", h.Get, cache)

	admin := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	admin.POST("/shows", h.Create)
}
