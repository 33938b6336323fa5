package handler

import (
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // token expiry in responses

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"             // login audit logging

    "github.com/iliyamo/space-booking/internal/config"  // app configuration
    "github.com/iliyamo/space-booking/internal/service" // account service
    "github.com/iliyamo/space-booking/internal/utils"   // token issuing
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg      config.Config
    Accounts *service.AccountService
    Logger   *zap.Logger
    loader   actorLoader
    errs     errorHandler
}

func NewAuthHandler(cfg config.Config, accounts *service.AccountService, logger *zap.Logger) *AuthHandler {
    if accounts == nil {
        panic("nil account service passed to NewAuthHandler")
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &AuthHandler{Cfg: cfg, Accounts: accounts, Logger: logger, loader: actorLoader{accounts}, errs: errorHandler{logger}}
}

// ----- DTOs -----

type loginReq struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type authResp struct {
    User   UserDTO   `json:"user"`
    Access tokenPart `json:"access"`
}

// Login verifies a username/password pair and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Username = strings.TrimSpace(req.Username)
    if req.Username == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
    }

    ctx, cancel := withTimeout(c)
    defer cancel()

    u, err := h.Accounts.Authenticate(ctx, req.Username, req.Password)
    if err != nil {
        h.Logger.Info("login failed", zap.String("username", req.Username), zap.String("ip", c.RealIP()))
        return h.errs.respond(c, err)
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role().String(), h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, authResp{
        User:   toUserDTO(*u),
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Me returns the authenticated user as currently stored.
func (h *AuthHandler) Me(c echo.Context) error {
    u, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, toUserDTO(u))
}

type createUserReq struct {
    Username   string  `json:"username"`
    Email      string  `json:"email"`
    Password   string  `json:"password"`
    Group      string  `json:"group"`
    LocationID *uint64 `json:"location_id"`
    Floor      *int    `json:"floor"`
}

// CreateUser handles POST /v1/users.  Administrators only; the service
// enforces it.
func (h *AuthHandler) CreateUser(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    var req createUserReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    u, err := h.Accounts.CreateUser(ctx, actor, service.NewUserInput{
        Username:   req.Username,
        Email:      req.Email,
        Password:   req.Password,
        Group:      req.Group,
        LocationID: req.LocationID,
        Floor:      req.Floor,
    })
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusCreated, toUserDTO(*u))
}

// ListUsers handles GET /v1/users.
func (h *AuthHandler) ListUsers(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    users, err := h.Accounts.ListUsers(ctx, actor)
    if err != nil {
        return h.errs.respond(c, err)
    }
    out := make([]UserDTO, 0, len(users))
    for _, u := range users {
        out = append(out, toUserDTO(u))
    }
    return c.JSON(http.StatusOK, out)
}

type updateUserReq struct {
    Email      string  `json:"email"`
    Group      string  `json:"group"`
    LocationID *uint64 `json:"location_id"` // null or missing clears the home location
    Floor      *int    `json:"floor"`
    Active     *bool   `json:"active"`
}

// UpdateUser handles PUT /v1/users/:id.  Group, location_id and floor are
// replaced as sent; email and active are kept when missing.
func (h *AuthHandler) UpdateUser(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req updateUserReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    u, err := h.Accounts.UpdateUser(ctx, actor, id, service.UpdateUserInput{
        Email:      req.Email,
        Group:      req.Group,
        LocationID: req.LocationID,
        Floor:      req.Floor,
        IsActive:   req.Active,
    })
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, toUserDTO(*u))
}

// DeleteUser handles DELETE /v1/users/:id.
func (h *AuthHandler) DeleteUser(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    if err := h.Accounts.DeleteUser(ctx, actor, id); err != nil {
        return h.errs.respond(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
