package repository

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/space-booking/internal/model"
)

// MemoryStore keeps every table in maps guarded by a single mutex. A
// transaction holds the mutex for its whole duration and works on a copy
// of the tables that replaces the live ones only on commit. It enforces
// the same constraints as the MySQL schema plus the approved-window
// invariant, which MySQL cannot express as a constraint.
type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time
	db  *memTables
}

type memTables struct {
	nextID       uint64
	users        map[uint64]model.User
	locations    map[uint64]model.Location
	spaces       map[uint64]model.Space
	reservations map[uint64]model.Reservation
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now: time.Now,
		db: &memTables{
			users:        map[uint64]model.User{},
			locations:    map[uint64]model.Location{},
			spaces:       map[uint64]model.Space{},
			reservations: map[uint64]model.Reservation{},
		},
	}
}

func (t *memTables) clone() *memTables {
	return &memTables{
		nextID:       t.nextID,
		users:        maps.Clone(t.users),
		locations:    maps.Clone(t.locations),
		spaces:       maps.Clone(t.spaces),
		reservations: maps.Clone(t.reservations),
	}
}

// WithTx implements Store.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.db.clone()
	if err := fn(&memTx{t: work, now: m.now}); err != nil {
		return err
	}
	m.db = work
	return nil
}

func (m *MemoryStore) read() *memTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	// committed tables are never mutated in place, only replaced
	return &memTx{t: m.db, now: m.now}
}

func (m *MemoryStore) GetUser(ctx context.Context, id uint64) (model.User, error) {
	return m.read().GetUser(ctx, id)
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return m.read().GetUserByUsername(ctx, username)
}

func (m *MemoryStore) ListUsers(ctx context.Context, f UserFilter) ([]model.User, error) {
	return m.read().ListUsers(ctx, f)
}

func (m *MemoryStore) GetLocation(ctx context.Context, id uint64) (model.Location, error) {
	return m.read().GetLocation(ctx, id)
}

func (m *MemoryStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	return m.read().ListLocations(ctx)
}

func (m *MemoryStore) GetSpace(ctx context.Context, id uint64) (model.Space, error) {
	return m.read().GetSpace(ctx, id)
}

func (m *MemoryStore) ListSpaces(ctx context.Context, f SpaceFilter) ([]model.Space, error) {
	return m.read().ListSpaces(ctx, f)
}

func (m *MemoryStore) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	return m.read().GetReservation(ctx, id)
}

func (m *MemoryStore) ListReservations(ctx context.Context, q ReservationQuery) ([]model.Reservation, error) {
	return m.read().ListReservations(ctx, q)
}

func (m *MemoryStore) ApprovedOn(ctx context.Context, spaceID uint64, day time.Time, excludeID uint64) ([]model.Reservation, error) {
	return m.read().ApprovedOn(ctx, spaceID, day, excludeID)
}

func (m *MemoryStore) ReservationExists(ctx context.Context, userID, spaceID uint64, day time.Time, excludeID uint64) (bool, error) {
	return m.read().ReservationExists(ctx, userID, spaceID, day, excludeID)
}

func (m *MemoryStore) OpenReservationsFrom(ctx context.Context, spaceID uint64, from time.Time) ([]model.Reservation, error) {
	return m.read().OpenReservationsFrom(ctx, spaceID, from)
}

// memTx operates on one tables value without locking; the owner holds the
// store mutex or works on a private snapshot.
type memTx struct {
	t   *memTables
	now func() time.Time
}

func (x *memTx) id() uint64 {
	x.t.nextID++
	return x.t.nextID
}

func (x *memTx) GetUser(_ context.Context, id uint64) (model.User, error) {
	u, ok := x.t.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, nil
}

func (x *memTx) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range x.t.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (x *memTx) ListUsers(_ context.Context, f UserFilter) ([]model.User, error) {
	out := make([]model.User, 0, len(x.t.users))
	for _, u := range x.t.users {
		if f.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (x *memTx) GetLocation(_ context.Context, id uint64) (model.Location, error) {
	l, ok := x.t.locations[id]
	if !ok {
		return model.Location{}, fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	return l, nil
}

func (x *memTx) ListLocations(_ context.Context) ([]model.Location, error) {
	out := make([]model.Location, 0, len(x.t.locations))
	for _, l := range x.t.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (x *memTx) GetSpace(_ context.Context, id uint64) (model.Space, error) {
	s, ok := x.t.spaces[id]
	if !ok {
		return model.Space{}, fmt.Errorf("space %d: %w", id, ErrNotFound)
	}
	s.LocationName = x.t.locations[s.LocationID].Name
	return s, nil
}

func (x *memTx) ListSpaces(ctx context.Context, f SpaceFilter) ([]model.Space, error) {
	out := []model.Space{}
	for id := range x.t.spaces {
		s, _ := x.GetSpace(ctx, id)
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// joined fills the columns a SQL join would add.
func (x *memTx) joined(r model.Reservation) model.Reservation {
	r.Username = x.t.users[r.UserID].Username
	s := x.t.spaces[r.SpaceID]
	r.SpaceName, r.LocationID, r.Floor = s.Name, s.LocationID, s.Floor
	return r
}

func (x *memTx) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
	r, ok := x.t.reservations[id]
	if !ok {
		return model.Reservation{}, fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	return x.joined(r), nil
}

func (x *memTx) ListReservations(_ context.Context, q ReservationQuery) ([]model.Reservation, error) {
	out := []model.Reservation{}
	for _, r := range x.t.reservations {
		r = x.joined(r)
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (x *memTx) ApprovedOn(_ context.Context, spaceID uint64, day time.Time, excludeID uint64) ([]model.Reservation, error) {
	day = model.Day(day)
	out := []model.Reservation{}
	for _, r := range x.t.reservations {
		if r.ID == excludeID || r.SpaceID != spaceID || !r.UseDate.Equal(day) || r.State != model.StateApproved {
			continue
		}
		out = append(out, x.joined(r))
	}
	sortReservations(out)
	return out, nil
}

func (x *memTx) ReservationExists(_ context.Context, userID, spaceID uint64, day time.Time, excludeID uint64) (bool, error) {
	day = model.Day(day)
	for _, r := range x.t.reservations {
		if r.ID != excludeID && r.UserID == userID && r.SpaceID == spaceID && r.UseDate.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (x *memTx) OpenReservationsFrom(_ context.Context, spaceID uint64, from time.Time) ([]model.Reservation, error) {
	from = model.Day(from)
	out := []model.Reservation{}
	for _, r := range x.t.reservations {
		if r.SpaceID != spaceID || r.UseDate.Before(from) {
			continue
		}
		if r.State == model.StatePending || r.State == model.StateApproved {
			out = append(out, x.joined(r))
		}
	}
	sortReservations(out)
	return out, nil
}

func (x *memTx) LockSpace(ctx context.Context, id uint64) (model.Space, error) {
	return x.GetSpace(ctx, id)
}

func (x *memTx) InsertUser(_ context.Context, u *model.User) error {
	for _, o := range x.t.users {
		if strings.EqualFold(o.Username, u.Username) || strings.EqualFold(o.Email, u.Email) {
			return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
	}
	if u.LocationID != nil {
		if _, ok := x.t.locations[*u.LocationID]; !ok {
			return fmt.Errorf("location %d: %w", *u.LocationID, ErrNotFound)
		}
	}
	if u.Floor != nil && (*u.Floor < model.MinFloor || *u.Floor > model.MaxFloor) {
		return fmt.Errorf("floor %d: %w", *u.Floor, ErrCheckViolation)
	}
	u.ID = x.id()
	u.CreatedAt, u.UpdatedAt = x.now().UTC(), x.now().UTC()
	x.t.users[u.ID] = *u
	return nil
}

// UpdateUser stores the editable account fields of u.
func (x *memTx) UpdateUser(_ context.Context, u *model.User) error {
	cur, ok := x.t.users[u.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}
	for _, o := range x.t.users {
		if o.ID != u.ID && strings.EqualFold(o.Email, u.Email) {
			return fmt.Errorf("user %q: %w", u.Username, ErrDuplicate)
		}
	}
	if u.LocationID != nil {
		if _, ok := x.t.locations[*u.LocationID]; !ok {
			return fmt.Errorf("location %d: %w", *u.LocationID, ErrNotFound)
		}
	}
	if u.Floor != nil && (*u.Floor < model.MinFloor || *u.Floor > model.MaxFloor) {
		return fmt.Errorf("floor %d: %w", *u.Floor, ErrCheckViolation)
	}
	cur.Email = u.Email
	cur.Group = u.Group
	cur.LocationID = u.LocationID
	cur.Floor = u.Floor
	cur.IsActive = u.IsActive
	cur.UpdatedAt = x.now().UTC()
	x.t.users[u.ID] = cur
	*u = cur
	return nil
}

// DeleteUser removes a user with its reservations and clears it as the
// reviewer of others, like the foreign keys of the MySQL schema.
func (x *memTx) DeleteUser(_ context.Context, id uint64) error {
	if _, ok := x.t.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	for rid, r := range x.t.reservations {
		if r.UserID == id {
			delete(x.t.reservations, rid)
			continue
		}
		if r.ApprovedBy != nil && *r.ApprovedBy == id {
			r.ApprovedBy = nil
			x.t.reservations[rid] = r
		}
	}
	delete(x.t.users, id)
	return nil
}

func (x *memTx) InsertLocation(_ context.Context, l *model.Location) error {
	for _, o := range x.t.locations {
		if strings.EqualFold(o.Name, l.Name) {
			return fmt.Errorf("location %q: %w", l.Name, ErrDuplicate)
		}
	}
	l.ID = x.id()
	l.CreatedAt = x.now().UTC()
	x.t.locations[l.ID] = *l
	return nil
}

func (x *memTx) DeleteLocation(ctx context.Context, id uint64) error {
	if _, ok := x.t.locations[id]; !ok {
		return fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	for sid, s := range x.t.spaces {
		if s.LocationID == id {
			_ = x.DeleteSpace(ctx, sid)
		}
	}
	for uid, u := range x.t.users {
		if u.LocationID != nil && *u.LocationID == id {
			u.LocationID = nil
			x.t.users[uid] = u
		}
	}
	delete(x.t.locations, id)
	return nil
}

func (x *memTx) checkSpace(s *model.Space) error {
	for _, o := range x.t.spaces {
		if o.ID != s.ID && strings.EqualFold(o.Name, s.Name) {
			return fmt.Errorf("space %q: %w", s.Name, ErrDuplicate)
		}
	}
	if _, ok := x.t.locations[s.LocationID]; !ok {
		return fmt.Errorf("location %d: %w", s.LocationID, ErrNotFound)
	}
	if s.Capacity < model.MinCapacity || s.Capacity > model.MaxCapacity ||
		s.Floor < model.MinFloor || s.Floor > model.MaxFloor {
		return fmt.Errorf("space %q: %w", s.Name, ErrCheckViolation)
	}
	return nil
}

func (x *memTx) InsertSpace(_ context.Context, s *model.Space) error {
	if err := x.checkSpace(s); err != nil {
		return err
	}
	s.ID = x.id()
	s.CreatedAt, s.UpdatedAt = x.now().UTC(), x.now().UTC()
	s.LocationName = x.t.locations[s.LocationID].Name
	x.t.spaces[s.ID] = *s
	return nil
}

func (x *memTx) UpdateSpace(_ context.Context, s *model.Space) error {
	cur, ok := x.t.spaces[s.ID]
	if !ok {
		return fmt.Errorf("space %d: %w", s.ID, ErrNotFound)
	}
	if err := x.checkSpace(s); err != nil {
		return err
	}
	s.CreatedAt = cur.CreatedAt
	s.UpdatedAt = x.now().UTC()
	x.t.spaces[s.ID] = *s
	return nil
}

func (x *memTx) DeleteSpace(_ context.Context, id uint64) error {
	if _, ok := x.t.spaces[id]; !ok {
		return fmt.Errorf("space %d: %w", id, ErrNotFound)
	}
	for rid, r := range x.t.reservations {
		if r.SpaceID == id {
			delete(x.t.reservations, rid)
		}
	}
	delete(x.t.spaces, id)
	return nil
}

func (x *memTx) checkReservation(r *model.Reservation) error {
	if _, ok := x.t.users[r.UserID]; !ok {
		return fmt.Errorf("user %d: %w", r.UserID, ErrNotFound)
	}
	if _, ok := x.t.spaces[r.SpaceID]; !ok {
		return fmt.Errorf("space %d: %w", r.SpaceID, ErrNotFound)
	}
	if !r.Window().Valid() {
		return fmt.Errorf("reservation window %s-%s: %w", r.StartTime, r.EndTime, ErrCheckViolation)
	}
	day := model.Day(r.UseDate)
	for _, o := range x.t.reservations {
		if o.ID == r.ID || o.SpaceID != r.SpaceID || !o.UseDate.Equal(day) {
			continue
		}
		if o.UserID == r.UserID {
			return fmt.Errorf("reservation user=%d space=%d date=%s: %w",
				r.UserID, r.SpaceID, day.Format(model.DateLayout), ErrDuplicate)
		}
		if r.State == model.StateApproved && o.State == model.StateApproved && o.Window().Overlaps(r.Window()) {
			return fmt.Errorf("reservation %d overlaps %d: %w", r.ID, o.ID, ErrOverlap)
		}
	}
	return nil
}

func (x *memTx) InsertReservation(_ context.Context, r *model.Reservation) error {
	r.UseDate = model.Day(r.UseDate)
	if err := x.checkReservation(r); err != nil {
		return err
	}
	r.ID = x.id()
	r.CreatedAt, r.UpdatedAt = x.now().UTC(), x.now().UTC()
	stored := *r
	stored.Username, stored.SpaceName, stored.LocationID, stored.Floor = "", "", 0, 0
	x.t.reservations[r.ID] = stored
	*r = x.joined(stored)
	return nil
}

func (x *memTx) UpdateReservation(_ context.Context, r *model.Reservation) error {
	cur, ok := x.t.reservations[r.ID]
	if !ok {
		return fmt.Errorf("reservation %d: %w", r.ID, ErrNotFound)
	}
	r.UseDate = model.Day(r.UseDate)
	if err := x.checkReservation(r); err != nil {
		return err
	}
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = x.now().UTC()
	stored := *r
	stored.Username, stored.SpaceName, stored.LocationID, stored.Floor = "", "", 0, 0
	x.t.reservations[r.ID] = stored
	*r = x.joined(stored)
	return nil
}

func (x *memTx) DeleteReservation(_ context.Context, id uint64) error {
	if _, ok := x.t.reservations[id]; !ok {
		return fmt.Errorf("reservation %d: %w", id, ErrNotFound)
	}
	delete(x.t.reservations, id)
	return nil
}

func sortReservations(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if !a.UseDate.Equal(b.UseDate) {
			return a.UseDate.Before(b.UseDate)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}
