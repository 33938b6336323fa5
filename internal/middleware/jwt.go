package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/space-booking/internal/utils" // token parsing shared with the login handler
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the token's subject and role in the request context.  Handlers read
// them back with UserID(c) and Role(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header is "Bearer <jwt>"; anything else is 401.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            // Signature, algorithm and expiry are all checked by the parser.
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil || claims.UserID == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            c.Set(CtxUserID, claims.UserID) // uint64 subject
            c.Set(CtxRole, claims.Role)     // group name
            return next(c)
        }
    }
}
