package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/space-booking/internal/model"
    "github.com/iliyamo/space-booking/internal/repository"
    "github.com/iliyamo/space-booking/internal/service"
)

// SpaceHandler serves the space catalogue and its administration.
type SpaceHandler struct {
    Accounts *service.AccountService
    Spaces   *service.SpaceService
    loader   actorLoader
    errs     errorHandler
}

func NewSpaceHandler(accounts *service.AccountService, spaces *service.SpaceService, logger *zap.Logger) *SpaceHandler {
    if accounts == nil || spaces == nil {
        panic("nil service passed to NewSpaceHandler")
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &SpaceHandler{Accounts: accounts, Spaces: spaces, loader: actorLoader{accounts}, errs: errorHandler{logger}}
}

type spaceReq struct {
    Name        string `json:"name"`
    LocationID  uint64 `json:"location_id"`
    Floor       int    `json:"floor"`
    Capacity    int    `json:"capacity"`
    Type        string `json:"type"`
    Available   *bool  `json:"available"`
    Description string `json:"description"`
}

func (r spaceReq) input() service.SpaceInput {
    t := model.SpaceType(strings.ToLower(strings.TrimSpace(r.Type)))
    if t == "" {
        t = model.SpaceRoom
    }
    return service.SpaceInput{
        Name:        r.Name,
        LocationID:  r.LocationID,
        Floor:       r.Floor,
        Capacity:    r.Capacity,
        Type:        t,
        Available:   r.Available,
        Description: r.Description,
    }
}

func spaceFilterFrom(c echo.Context) (repository.SpaceFilter, string) {
    f := repository.SpaceFilter{Name: strings.TrimSpace(c.QueryParam("name"))}
    if v := c.QueryParam("location_id"); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return f, "invalid location_id"
        }
        f.LocationID = &id
    }
    if v := c.QueryParam("floor"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil {
            return f, "invalid floor"
        }
        f.Floor = &n
    }
    return f, ""
}

func spaceList(list []model.Space) []SpaceDTO {
    out := make([]SpaceDTO, 0, len(list))
    for _, s := range list {
        out = append(out, toSpaceDTO(s))
    }
    return out
}

// ListTargets handles GET /v1/spaces: the available spaces offered for
// booking.  Responses are identical for every caller, so the route sits
// behind the response cache.
func (h *SpaceHandler) ListTargets(c echo.Context) error {
    f, msg := spaceFilterFrom(c)
    if msg != "" {
        return badField(c, msg)
    }
    f.AvailableOnly = true
    ctx, cancel := withTimeout(c)
    defer cancel()
    list, err := h.Spaces.ListSpaces(ctx, f)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": spaceList(list)})
}

// ListAll handles GET /v1/spaces/all, including unavailable spaces.
// Administrators only.
func (h *SpaceHandler) ListAll(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    if !actor.IsAdministrator() {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    f, msg := spaceFilterFrom(c)
    if msg != "" {
        return badField(c, msg)
    }
    if v := c.QueryParam("available"); v != "" {
        f.AvailableOnly = v == "true" || v == "1"
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    list, err := h.Spaces.ListSpaces(ctx, f)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": spaceList(list)})
}

// Get handles GET /v1/spaces/:id.
func (h *SpaceHandler) Get(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    sp, err := h.Spaces.GetSpace(ctx, id)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, toSpaceDTO(*sp))
}

// Create handles POST /v1/spaces.
func (h *SpaceHandler) Create(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    var req spaceReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    sp, err := h.Spaces.CreateSpace(ctx, actor, req.input())
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusCreated, toSpaceDTO(*sp))
}

// Update handles PUT /v1/spaces/:id with the full editable state.  Turning
// the space off rejects its open reservations.
func (h *SpaceHandler) Update(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req spaceReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    sp, err := h.Spaces.UpdateSpace(ctx, actor, id, req.input())
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, toSpaceDTO(*sp))
}

// SetAvailability handles PATCH /v1/spaces/:id/availability {"available": bool}.
func (h *SpaceHandler) SetAvailability(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req struct {
        Available *bool `json:"available"`
    }
    if err := c.Bind(&req); err != nil || req.Available == nil {
        return badField(c, "available is required")
    }
    // No request timeout here: the cascade runs after the flag commits.
    sp, err := h.Spaces.SetSpaceAvailability(c.Request().Context(), actor, id, *req.Available)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, toSpaceDTO(*sp))
}

// Delete handles DELETE /v1/spaces/:id.
func (h *SpaceHandler) Delete(c echo.Context) error {
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
    if err := h.Spaces.DeleteSpace(ctx, actor, id); err != nil {
        return h.errs.respond(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListLocations handles GET /v1/locations.
func (h *SpaceHandler) ListLocations(c echo.Context) error {
    ctx, cancel := withTimeout(c)
    defer cancel()
    locs, err := h.Spaces.ListLocations(ctx)
    if err != nil {
        return h.errs.respond(c, err)
    }
    out := make([]LocationDTO, 0, len(locs))
    for _, l := range locs {
        out = append(out, LocationDTO{ID: l.ID, Name: l.Name})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// CreateLocation handles POST /v1/locations {"name": "..."}.
func (h *SpaceHandler) CreateLocation(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    var req struct {
        Name string `json:"name"`
    }
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    loc, err := h.Spaces.CreateLocation(ctx, actor, req.Name)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusCreated, LocationDTO{ID: loc.ID, Name: loc.Name})
}

// DeleteLocation handles DELETE /v1/locations/:id.
func (h *SpaceHandler) DeleteLocation(c echo.Context) error {
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
    if err := h.Spaces.DeleteLocation(ctx, actor, id); err != nil {
        return h.errs.respond(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
