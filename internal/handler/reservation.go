package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/space-booking/internal/model"
    "github.com/iliyamo/space-booking/internal/service"
)

// ReservationHandler exposes the reservation engine.  Every method loads
// the actor from storage before calling the service, which makes all
// authorization decisions.
type ReservationHandler struct {
    Accounts     *service.AccountService
    Reservations *service.ReservationService
    loader       actorLoader
    errs         errorHandler
}

func NewReservationHandler(accounts *service.AccountService, reservations *service.ReservationService, logger *zap.Logger) *ReservationHandler {
    if accounts == nil || reservations == nil {
        panic("nil service passed to NewReservationHandler")
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &ReservationHandler{
        Accounts:     accounts,
        Reservations: reservations,
        loader:       actorLoader{accounts},
        errs:         errorHandler{logger},
    }
}

type createReservationReq struct {
    UserID    uint64 `json:"user_id"`
    SpaceID   uint64 `json:"space_id"`
    UseDate   string `json:"use_date"`
    StartTime string `json:"start_time"`
    EndTime   string `json:"end_time"`
    Reason    string `json:"reason"`
}

type rescheduleReq struct {
    UseDate   *string `json:"use_date"`
    StartTime *string `json:"start_time"`
    EndTime   *string `json:"end_time"`
    Reason    *string `json:"reason"`
}

type transitionReq struct {
    State       string `json:"state"`
    AdminReason string `json:"admin_reason"`
}

func badField(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": service.CodeInvalidField})
}

// List handles GET /v1/reservations.  Supported query parameters: from, to
// (YYYY-MM-DD), state, space_id, space, location_id, floor, username,
// starts_from and ends_by (HH:MM).
func (h *ReservationHandler) List(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    f, msg := parseReservationFilter(c)
    if msg != "" {
        return badField(c, msg)
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    list, err := h.Reservations.ListVisibleReservations(ctx, actor, f)
    if err != nil {
        return h.errs.respond(c, err)
    }
    out := make([]ReservationDTO, 0, len(list))
    for _, r := range list {
        out = append(out, toReservationDTO(r))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func parseReservationFilter(c echo.Context) (service.ReservationFilter, string) {
    var f service.ReservationFilter
    if v := c.QueryParam("from"); v != "" {
        d, err := model.ParseDate(v)
        if err != nil {
            return f, "invalid from date"
        }
        f.From = &d
    }
    if v := c.QueryParam("to"); v != "" {
        d, err := model.ParseDate(v)
        if err != nil {
            return f, "invalid to date"
        }
        f.To = &d
    }
    if v := c.QueryParam("state"); v != "" {
        st, ok := model.ParseState(v)
        if !ok {
            return f, "invalid state"
        }
        f.State = st
    }
    if v := c.QueryParam("space_id"); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return f, "invalid space_id"
        }
        f.SpaceID = id
    }
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
    if v := c.QueryParam("starts_from"); v != "" {
        t, err := model.ParseTimeOfDay(v)
        if err != nil {
            return f, "invalid starts_from"
        }
        f.StartsFrom = &t
    }
    if v := c.QueryParam("ends_by"); v != "" {
        t, err := model.ParseTimeOfDay(v)
        if err != nil {
            return f, "invalid ends_by"
        }
        f.EndsBy = &t
    }
    f.SpaceName = strings.TrimSpace(c.QueryParam("space"))
    f.Username = strings.TrimSpace(c.QueryParam("username"))
    return f, ""
}

// Create handles POST /v1/reservations.  The reservation starts pending.
func (h *ReservationHandler) Create(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    var req createReservationReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.SpaceID == 0 {
        return badField(c, "space_id is required")
    }
    day, err := model.ParseDate(req.UseDate)
    if err != nil {
        return badField(c, "use_date must be YYYY-MM-DD")
    }
    start, err := model.ParseTimeOfDay(req.StartTime)
    if err != nil {
        return badField(c, "start_time must be HH:MM")
    }
    end, err := model.ParseTimeOfDay(req.EndTime)
    if err != nil {
        return badField(c, "end_time must be HH:MM")
    }

    ctx, cancel := withTimeout(c)
    defer cancel()
    res, err := h.Reservations.CreateReservation(ctx, actor, service.CreateReservationInput{
        UserID:    req.UserID,
        SpaceID:   req.SpaceID,
        UseDate:   day,
        StartTime: start,
        EndTime:   end,
        Reason:    req.Reason,
    })
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusCreated, toReservationDTO(*res))
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
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
    res, err := h.Reservations.GetReservation(ctx, actor, id)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, toReservationDTO(*res))
}

// Reschedule handles PATCH /v1/reservations/:id.  Omitted fields keep
// their current value.
func (h *ReservationHandler) Reschedule(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req rescheduleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    in := service.RescheduleInput{Reason: req.Reason}
    if req.UseDate != nil {
        d, err := model.ParseDate(*req.UseDate)
        if err != nil {
            return badField(c, "use_date must be YYYY-MM-DD")
        }
        in.UseDate = &d
    }
    if req.StartTime != nil {
        t, err := model.ParseTimeOfDay(*req.StartTime)
        if err != nil {
            return badField(c, "start_time must be HH:MM")
        }
        in.StartTime = &t
    }
    if req.EndTime != nil {
        t, err := model.ParseTimeOfDay(*req.EndTime)
        if err != nil {
            return badField(c, "end_time must be HH:MM")
        }
        in.EndTime = &t
    }

    ctx, cancel := withTimeout(c)
    defer cancel()
    res, err := h.Reservations.RescheduleReservation(ctx, actor, id, in)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, toReservationDTO(*res))
}

// Transition handles POST /v1/reservations/:id/transition with a body of
// {"state": "approved"|"rejected", "admin_reason": "..."}.
func (h *ReservationHandler) Transition(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req transitionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    target, ok := model.ParseState(req.State)
    if !ok {
        return badField(c, "state must be approved or rejected")
    }

    ctx, cancel := withTimeout(c)
    defer cancel()
    res, err := h.Reservations.TransitionReservation(ctx, actor, id, target, req.AdminReason)
    if err != nil {
        return h.errs.respond(c, err)
    }
    return c.JSON(http.StatusOK, toReservationDTO(*res))
}

// Delete handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
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
    if err := h.Reservations.DeleteReservation(ctx, actor, id); err != nil {
        return h.errs.respond(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Calendar handles GET /v1/reservations/calendar?start=&end=&status=.  The
// range defaults to the current month.
func (h *ReservationHandler) Calendar(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    now := time.Now().UTC()
    from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
    to := from.AddDate(0, 1, -1)
    if v := c.QueryParam("start"); v != "" {
        if from, err = model.ParseDate(v); err != nil {
            return badField(c, "invalid start date")
        }
    }
    if v := c.QueryParam("end"); v != "" {
        if to, err = model.ParseDate(v); err != nil {
            return badField(c, "invalid end date")
        }
    }
    var state model.State
    if v := c.QueryParam("status"); v != "" {
        st, ok := model.ParseState(v)
        if !ok {
            return badField(c, "invalid status")
        }
        state = st
    }

    ctx, cancel := withTimeout(c)
    defer cancel()
    days, err := h.Reservations.DailyCounts(ctx, actor, from, to, state)
    if err != nil {
        return h.errs.respond(c, err)
    }
    out := make([]DayCountDTO, 0, len(days))
    for _, d := range days {
        out = append(out, toDayCountDTO(d))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// AssignableUsers handles GET /v1/reservations/assignable-users.
func (h *ReservationHandler) AssignableUsers(c echo.Context) error {
    actor, err := h.loader.actor(c)
    if err != nil {
        return h.errs.respond(c, err)
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    users, err := h.Reservations.AssignableUsers(ctx, actor)
    if err != nil {
        return h.errs.respond(c, err)
    }
    out := make([]UserDTO, 0, len(users))
    for _, u := range users {
        out = append(out, toUserDTO(u))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}
