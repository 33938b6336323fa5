package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-booking/internal/middleware"
)

// RegisterReservations registers the reservation endpoints.  All of them
// require a valid JWT; role and scope checks happen in the service.
func RegisterReservations(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/reservations",
		middleware.JWTAuth(d.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger),
	)
	h := d.Reservations

	// fixed paths first so they are not captured by /:id
	g.GET("/calendar", h.Calendar)
	g.GET("/assignable-users", h.AssignableUsers)

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Reschedule)
	g.POST("/:id/transition", h.Transition)
	g.DELETE("/:id", h.Delete)
}
