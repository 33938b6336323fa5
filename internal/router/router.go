package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/space-booking/internal/config"
	"github.com/iliyamo/space-booking/internal/handler"    // HTTP handlers over the booking services
	"github.com/iliyamo/space-booking/internal/middleware" // JWT, role, cache and rate limit middleware
	"github.com/iliyamo/space-booking/internal/model"
)

// Deps carries everything the route groups need.  Redis may be nil, in
// which case caching and rate limiting are pass-throughs.
type Deps struct {
	JWTSecret    string
	Auth         *handler.AuthHandler
	Reservations *handler.ReservationHandler
	Spaces       *handler.SpaceHandler
	DB           handler.Pinger
	Redis        *redis.Client
	Cache        config.CacheConfig
	RateLimit    config.RateLimitConfig
	Logger       *zap.Logger
}

// Register wires every route on e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d)
	RegisterReservations(e, d)
	RegisterSpaces(e, d)
}

// RegisterRoutes registers routes that do not require authentication:
// liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers login under /v1/auth and the identity routes
// under /v1.  Login is rate limited like every other route so that
// password guessing drains the bucket.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger))
	g.POST("/login", d.Auth.Login)

	auth := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	auth.GET("/me", d.Auth.Me)

	users := auth.Group("/users", middleware.RequireRole(model.RoleAdministrator))
	users.GET("", d.Auth.ListUsers)
	users.POST("", d.Auth.CreateUser)
	users.PUT("/:id", d.Auth.UpdateUser)
	users.DELETE("/:id", d.Auth.DeleteUser)
}
