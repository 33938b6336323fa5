package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a reservation.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

// ParseState converts a stored or user-supplied value into a State.
func ParseState(s string) (State, bool) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StatePending, StateApproved, StateRejected:
		return st, true
	}
	return "", false
}

// Reviewed reports whether the state records a reviewer decision.
func (s State) Reviewed() bool { return s == StateApproved || s == StateRejected }

// DateLayout is the wire and storage layout of use dates.
const DateLayout = "2006-01-02"

// Day truncates t to its civil date, expressed at midnight UTC. Use dates
// are compared as civil dates so the zone of t is read before truncation.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return Day(t), nil
}

// TimeOfDay is a wall-clock time within a day, in seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i] // MySQL TIME(6) fraction
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// MustTime is ParseTimeOfDay for literals; it panics on malformed input.
func MustTime(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) clock() (h, m, s int) {
	v := int(t)
	return v / 3600, (v % 3600) / 60, v % 60
}

// String renders HH:MM, or HH:MM:SS when seconds are set.
func (t TimeOfDay) String() string {
	h, m, s := t.clock()
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Value implements driver.Valuer for TIME columns.
func (t TimeOfDay) Value() (driver.Value, error) {
	h, m, s := t.clock()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}

// Scan implements sql.Scanner for TIME columns.
func (t *TimeOfDay) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	case time.Time:
		*t = TimeOfDay(v.Hour()*3600 + v.Minute()*60 + v.Second())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Interval is a half-open time window [Start, End) within a day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Valid reports whether Start is strictly before End.
func (i Interval) Valid() bool { return i.Start < i.End }

// Overlaps reports whether two half-open windows intersect. Windows that
// only touch at an endpoint do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// Reservation mirrors the `reservations` table. Username, SpaceName,
// LocationID and Floor are denormalized from joins so visibility can be
// decided without loading the space separately.
type Reservation struct {
	ID          uint64
	UserID      uint64
	SpaceID     uint64
	UseDate     time.Time
	StartTime   TimeOfDay
	EndTime     TimeOfDay
	State       State
	Reason      string
	AdminReason string
	ApprovedBy  *uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Username   string
	SpaceName  string
	LocationID uint64
	Floor      int
}

// Window returns the reservation's time window.
func (r Reservation) Window() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

// ApprovedByID returns the reviewer id or zero.
func (r Reservation) ApprovedByID() uint64 {
	if r.ApprovedBy == nil {
		return 0
	}
	return *r.ApprovedBy
}
