package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/space-booking/internal/middleware"
	"github.com/iliyamo/space-booking/internal/model"
)

// RegisterSpaces registers the catalogue.  Reads are open to every
// authenticated user and GET /v1/spaces is served from the response
// cache; writes require the administrator role and purge the cache.
func RegisterSpaces(e *echo.Echo, d Deps) {
	h := d.Spaces
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)
	admin := middleware.RequireRole(model.RoleAdministrator)
	purge := middleware.PurgeOnWrite(d.Cache, d.Redis, d.Logger)

	// ---- Spaces ----
	s := e.Group("/v1/spaces", middleware.JWTAuth(d.JWTSecret), limit)
	s.GET("", h.ListTargets, middleware.NewRedisCache(d.Cache, d.Redis))
	s.GET("/all", h.ListAll, admin)
	s.GET("/:id", h.Get)
	s.POST("", h.Create, admin, purge)
	s.PUT("/:id", h.Update, admin, purge)
	s.PATCH("/:id/availability", h.SetAvailability, admin, purge)
	s.DELETE("/:id", h.Delete, admin, purge)

	// ---- Locations ----
	l := e.Group("/v1/locations", middleware.JWTAuth(d.JWTSecret), limit)
	l.GET("", h.ListLocations)
	l.POST("", h.CreateLocation, admin, purge)
	l.DELETE("/:id", h.DeleteLocation, admin, purge)
}
