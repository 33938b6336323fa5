package handler // handler defines http handlers

import (
    "context"  // context bounds storage calls
    "errors"   // errors.Is / errors.As map service errors to status codes
    "net/http" // HTTP status codes
    "strconv"  // strconv parses path parameters
    "time"     // request timeouts

    "github.com/labstack/echo/v4" // echo defines request context types
    "go.uber.org/zap"             // structured logging of unexpected errors

    "github.com/iliyamo/space-booking/internal/middleware" // identity helpers set by JWTAuth
    "github.com/iliyamo/space-booking/internal/model"      // domain types
    "github.com/iliyamo/space-booking/internal/service"    // booking engine
)

// requestTimeout bounds every storage round trip started by a handler.
const requestTimeout = 5 * time.Second

// getUserID extracts the authenticated user id stored by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.UserID(c); ok {
        return id, nil
    }
    return 0, errors.New("invalid user_id in context")
}

// actorLoader resolves the authenticated user from storage so role and
// scope decisions use current data rather than token claims.
type actorLoader struct {
    accounts *service.AccountService
}

func (l actorLoader) actor(c echo.Context) (model.User, error) {
    id, err := getUserID(c)
    if err != nil {
        return model.User{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
    }
    u, err := l.accounts.GetUser(c.Request().Context(), id)
    if err != nil || !u.IsActive {
        return model.User{}, echo.NewHTTPError(http.StatusUnauthorized, "unknown or inactive user")
    }
    return *u, nil
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id != 0
}

// errorHandler writes service errors as {"error": ...} with the matching
// status.  Unexpected errors are logged and reported as 500.
type errorHandler struct {
    logger *zap.Logger
}

func (h errorHandler) respond(c echo.Context, err error) error {
    var he *echo.HTTPError
    if errors.As(err, &he) {
        return c.JSON(he.Code, echo.Map{"error": he.Message})
    }
    var ve *service.ValidationError
    if errors.As(err, &ve) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message, "code": ve.Code})
    }
    switch {
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, service.ErrConflict):
        // the wrapped driver error names keys and values; keep it in the log
        var ce *service.ConflictError
        msg := "conflict"
        if errors.As(err, &ce) {
            msg = ce.Message
        }
        h.logger.Info("write conflict", zap.String("path", c.Path()), zap.Error(err))
        return c.JSON(http.StatusConflict, echo.Map{"error": msg})
    case errors.Is(err, service.ErrInvalidCredentials):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    case errors.Is(err, context.DeadlineExceeded):
        return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
    }
    h.logger.Error("request failed",
        zap.String("method", c.Request().Method),
        zap.String("path", c.Path()),
        zap.Error(err))
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
