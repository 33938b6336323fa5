package handler

import (
    "time"

    "github.com/iliyamo/space-booking/internal/model"
    "github.com/iliyamo/space-booking/internal/service"
)

// UserDTO is the public shape of a user.  Password hashes never leave the
// service layer.
type UserDTO struct {
    ID         uint64  `json:"id"`
    Username   string  `json:"username"`
    Email      string  `json:"email"`
    Role       string  `json:"role"`
    LocationID *uint64 `json:"location_id,omitempty"`
    Floor      *int    `json:"floor,omitempty"`
    Active     bool    `json:"active"`
}

func toUserDTO(u model.User) UserDTO {
    return UserDTO{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role().String(), LocationID: u.LocationID, Floor: u.Floor, Active: u.IsActive}
}

type LocationDTO struct {
    ID   uint64 `json:"id"`
    Name string `json:"name"`
}

type SpaceDTO struct {
    ID          uint64 `json:"id"`
    Name        string `json:"name"`
    LocationID  uint64 `json:"location_id"`
    Location    string `json:"location"`
    Floor       int    `json:"floor"`
    Capacity    int    `json:"capacity"`
    Type        string `json:"type"`
    Available   bool   `json:"available"`
    Description string `json:"description,omitempty"`
}

func toSpaceDTO(s model.Space) SpaceDTO {
    return SpaceDTO{
        ID:          s.ID,
        Name:        s.Name,
        LocationID:  s.LocationID,
        Location:    s.LocationName,
        Floor:       s.Floor,
        Capacity:    s.Capacity,
        Type:        string(s.Type),
        Available:   s.Available,
        Description: s.Description,
    }
}

// ReservationDTO renders dates as YYYY-MM-DD and times as HH:MM.
type ReservationDTO struct {
    ID          uint64    `json:"id"`
    UserID      uint64    `json:"user_id"`
    Username    string    `json:"username"`
    SpaceID     uint64    `json:"space_id"`
    Space       string    `json:"space"`
    UseDate     string    `json:"use_date"`
    StartTime   string    `json:"start_time"`
    EndTime     string    `json:"end_time"`
    State       string    `json:"state"`
    Reason      string    `json:"reason"`
    AdminReason string    `json:"admin_reason,omitempty"`
    ApprovedBy  *uint64   `json:"approved_by,omitempty"`
    CreatedAt   time.Time `json:"created_at"`
}

func toReservationDTO(r model.Reservation) ReservationDTO {
    return ReservationDTO{
        ID:          r.ID,
        UserID:      r.UserID,
        Username:    r.Username,
        SpaceID:     r.SpaceID,
        Space:       r.SpaceName,
        UseDate:     r.UseDate.Format(model.DateLayout),
        StartTime:   r.StartTime.String(),
        EndTime:     r.EndTime.String(),
        State:       string(r.State),
        Reason:      r.Reason,
        AdminReason: r.AdminReason,
        ApprovedBy:  r.ApprovedBy,
        CreatedAt:   r.CreatedAt,
    }
}

// DayCountDTO is one calendar cell.
type DayCountDTO struct {
    Date     string `json:"date"`
    Pending  int    `json:"pending"`
    Approved int    `json:"approved"`
    Rejected int    `json:"rejected"`
}

func toDayCountDTO(d service.DayCount) DayCountDTO {
    return DayCountDTO{Date: d.Date.Format(model.DateLayout), Pending: d.Pending, Approved: d.Approved, Rejected: d.Rejected}
}
