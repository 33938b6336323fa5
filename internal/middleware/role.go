package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/space-booking/internal/model" // group names
)

// RequireRole returns a middleware that only lets through tokens whose role
// claim is one of roles.  JWTAuth must run first.  The claim is a hint for
// routing only; services re-check the role loaded from storage.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    // Set of allowed group names for constant-time lookups.
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r.String()] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !allowed[Role(c)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
