package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/scope"
)

// Reader groups the queries available both inside and outside a
// transaction.
type Reader interface {
	GetUser(ctx context.Context, id uint64) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]model.User, error)

	GetLocation(ctx context.Context, id uint64) (model.Location, error)
	ListLocations(ctx context.Context) ([]model.Location, error)

	GetSpace(ctx context.Context, id uint64) (model.Space, error)
	ListSpaces(ctx context.Context, f SpaceFilter) ([]model.Space, error)

	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	ListReservations(ctx context.Context, q ReservationQuery) ([]model.Reservation, error)
	// ApprovedOn returns the approved reservations of (space, day) except
	// excludeID. A zero excludeID excludes nothing.
	ApprovedOn(ctx context.Context, spaceID uint64, day time.Time, excludeID uint64) ([]model.Reservation, error)
	// ReservationExists reports whether userID already holds a reservation
	// of (space, day) other than excludeID.
	ReservationExists(ctx context.Context, userID, spaceID uint64, day time.Time, excludeID uint64) (bool, error)
	// OpenReservationsFrom returns pending and approved reservations of the
	// space dated on or after from, oldest first.
	OpenReservationsFrom(ctx context.Context, spaceID uint64, from time.Time) ([]model.Reservation, error)
}

// Writer groups the mutations. They are only reachable through a Tx.
type Writer interface {
	// LockSpace loads the space and holds a write lock on it until the
	// transaction ends, serializing writers of the same space.
	LockSpace(ctx context.Context, id uint64) (model.Space, error)

	InsertUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id uint64) error
	InsertLocation(ctx context.Context, l *model.Location) error
	DeleteLocation(ctx context.Context, id uint64) error
	InsertSpace(ctx context.Context, s *model.Space) error
	UpdateSpace(ctx context.Context, s *model.Space) error
	DeleteSpace(ctx context.Context, id uint64) error

	InsertReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error
}

// Tx is a unit of work. Everything done through it is committed or
// discarded together.
type Tx interface {
	Reader
	Writer
}

// Store is the entry point used by services.
type Store interface {
	Reader
	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// UserFilter narrows ListUsers.
type UserFilter struct {
	ActiveOnly bool
}

// SpaceFilter narrows ListSpaces.
type SpaceFilter struct {
	AvailableOnly bool
	LocationID    *uint64
	Floor         *int
	Name          string // case-insensitive substring
}

// Matches applies the filter in process.
func (f SpaceFilter) Matches(s model.Space) bool {
	if f.AvailableOnly && !s.Available {
		return false
	}
	if f.LocationID != nil && s.LocationID != *f.LocationID {
		return false
	}
	if f.Floor != nil && s.Floor != *f.Floor {
		return false
	}
	if f.Name != "" && !containsFold(s.Name, f.Name) {
		return false
	}
	return true
}

// ReservationQuery is the visibility predicate plus the optional list
// filters. Filters are conjunctive and applied after visibility.
type ReservationQuery struct {
	Visibility scope.Visibility

	From       *time.Time // use_date >= From
	To         *time.Time // use_date <= To
	State      model.State
	SpaceID    uint64
	SpaceName  string // case-insensitive substring
	LocationID *uint64
	Floor      *int
	Username   string // case-insensitive substring
	StartsFrom *model.TimeOfDay
	EndsBy     *model.TimeOfDay
}

// Matches applies the query in process. r must carry its joined columns.
func (q ReservationQuery) Matches(r model.Reservation) bool {
	if !q.Visibility.Allows(r) {
		return false
	}
	if q.From != nil && r.UseDate.Before(model.Day(*q.From)) {
		return false
	}
	if q.To != nil && r.UseDate.After(model.Day(*q.To)) {
		return false
	}
	if q.State != "" && r.State != q.State {
		return false
	}
	if q.SpaceID != 0 && r.SpaceID != q.SpaceID {
		return false
	}
	if q.SpaceName != "" && !containsFold(r.SpaceName, q.SpaceName) {
		return false
	}
	if q.LocationID != nil && r.LocationID != *q.LocationID {
		return false
	}
	if q.Floor != nil && r.Floor != *q.Floor {
		return false
	}
	if q.Username != "" && !containsFold(r.Username, q.Username) {
		return false
	}
	if q.StartsFrom != nil && r.StartTime < *q.StartsFrom {
		return false
	}
	if q.EndsBy != nil && r.EndTime > *q.EndsBy {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

var (
	_ Store = (*MySQLStore)(nil)
	_ Tx    = (*sqlRepo)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)
