package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/queue"
	"github.com/iliyamo/space-booking/internal/repository"
)

var (
	june1 = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	june2 = june1.AddDate(0, 0, 1)
	june3 = june1.AddDate(0, 0, 2)
	may30 = june1.AddDate(0, 0, -2)
)

type recorder struct {
	mu     sync.Mutex
	events []queue.AuditEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Action)
	}
	return out
}

type env struct {
	store    *repository.MemoryStore
	audit    *recorder
	res      *ReservationService
	spaces   *SpaceService
	accounts *AccountService

	hq, annex         model.Location
	roomA, roomB, lab model.Space
	admin, mod, mod2  model.User
	alice, bob, carol model.User
}

func ptr[T any](v T) *T { return &v }

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{store: repository.NewMemoryStore(), audit: &recorder{}}
	d := Deps{
		Store: e.store,
		Audit: e.audit,
		Clock: ClockFunc(func() time.Time { return june1.Add(10 * time.Hour) }),
	}
	e.res = NewReservationService(d)
	e.spaces = NewSpaceService(d, e.res)
	e.accounts = NewAccountService(d, bcrypt.MinCost)

	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		e.hq = model.Location{Name: "HQ"}
		e.annex = model.Location{Name: "Annex"}
		for _, l := range []*model.Location{&e.hq, &e.annex} {
			if err := tx.InsertLocation(ctx, l); err != nil {
				return err
			}
		}
		e.roomA = model.Space{Name: "Room A", LocationID: e.hq.ID, Floor: 1, Capacity: 8, Type: model.SpaceRoom, Available: true}
		e.roomB = model.Space{Name: "Room B", LocationID: e.hq.ID, Floor: 2, Capacity: 8, Type: model.SpaceRoom, Available: true}
		e.lab = model.Space{Name: "Lab", LocationID: e.annex.ID, Floor: 1, Capacity: 20, Type: model.SpaceLab, Available: true}
		for _, s := range []*model.Space{&e.roomA, &e.roomB, &e.lab} {
			if err := tx.InsertSpace(ctx, s); err != nil {
				return err
			}
		}
		e.admin = model.User{Username: "admin", Email: "admin@example.com", Group: model.GroupAdministrator, IsActive: true}
		e.mod = model.User{Username: "mod", Email: "mod@example.com", Group: model.GroupModerator, LocationID: &e.hq.ID, Floor: ptr(1), IsActive: true}
		e.mod2 = model.User{Username: "mod2", Email: "mod2@example.com", Group: model.GroupModerator, LocationID: &e.hq.ID, Floor: ptr(2), IsActive: true}
		e.alice = model.User{Username: "alice", Email: "alice@example.com", Group: model.GroupUser, LocationID: &e.hq.ID, Floor: ptr(1), IsActive: true}
		e.bob = model.User{Username: "bob", Email: "bob@example.com", Group: model.GroupUser, LocationID: &e.hq.ID, Floor: ptr(1), IsActive: true}
		e.carol = model.User{Username: "carol", Email: "carol@example.com", Group: model.GroupUser, IsActive: true}
		for _, u := range []*model.User{&e.admin, &e.mod, &e.mod2, &e.alice, &e.bob, &e.carol} {
			if err := tx.InsertUser(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return e
}

func (e *env) book(t *testing.T, actor model.User, owner model.User, space model.Space, day time.Time, from, to string) (*model.Reservation, error) {
	t.Helper()
	return e.res.CreateReservation(context.Background(), actor, CreateReservationInput{
		UserID:    owner.ID,
		SpaceID:   space.ID,
		UseDate:   day,
		StartTime: model.MustTime(from),
		EndTime:   model.MustTime(to),
		Reason:    "standup",
	})
}

func (e *env) mustBook(t *testing.T, owner model.User, space model.Space, day time.Time, from, to string) *model.Reservation {
	t.Helper()
	r, err := e.book(t, owner, owner, space, day, from, to)
	require.NoError(t, err)
	return r
}

func (e *env) approve(t *testing.T, actor model.User, id uint64) (*model.Reservation, error) {
	t.Helper()
	return e.res.TransitionReservation(context.Background(), actor, id, model.StateApproved, "")
}

func (e *env) reload(t *testing.T, id uint64) model.Reservation {
	t.Helper()
	r, err := e.store.GetReservation(context.Background(), id)
	require.NoError(t, err)
	return r
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %T: %v", err, err)
	assert.Equal(t, code, ve.Code)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateReservationStartsPending(t *testing.T) {
	e := newEnv(t)
	r := e.mustBook(t, e.alice, e.roomA, june1, "09:00", "10:00")

	assert.Equal(t, model.StatePending, r.State)
	assert.Equal(t, e.alice.ID, r.UserID)
	assert.Nil(t, r.ApprovedBy)
	assert.Equal(t, "Room A", r.SpaceName)
	assert.Equal(t, []string{queue.ActionReservationCreated}, e.audit.actions())
}

func TestCreateReservationValidation(t *testing.T) {
	e := newEnv(t)

	_, err := e.book(t, e.alice, e.alice, e.roomA, may30, "09:00", "10:00")
	requireCode(t, err, CodePastDate)

	_, err = e.book(t, e.alice, e.alice, e.roomA, june2, "10:00", "10:00")
	requireCode(t, err, CodeInvalidTimeRange)

	_, err = e.res.CreateReservation(context.Background(), e.alice, CreateReservationInput{
		SpaceID: e.roomA.ID, UseDate: june2, StartTime: model.MustTime("09:00"), EndTime: model.MustTime("10:00"), Reason: "   ",
	})
	requireCode(t, err, CodeReasonRequired)

	_, err = e.spaces.SetSpaceAvailability(context.Background(), e.admin, e.roomB.ID, false)
	require.NoError(t, err)
	_, err = e.book(t, e.alice, e.alice, e.roomB, june2, "09:00", "10:00")
	requireCode(t, err, CodeSpaceUnavailable)

	_, err = e.book(t, e.alice, e.alice, model.Space{ID: 999}, june2, "09:00", "10:00")
	requireCode(t, err, CodeInvalidField)
}

func TestCreateReservationUniquePerUserSpaceDay(t *testing.T) {
	e := newEnv(t)
	e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")

	_, err := e.book(t, e.alice, e.alice, e.roomA, june2, "14:00", "15:00")
	requireCode(t, err, CodeDuplicate)

	// other day, other space and other user are all fine
	e.mustBook(t, e.alice, e.roomA, june3, "09:00", "10:00")
	e.mustBook(t, e.alice, e.roomB, june2, "09:00", "10:00")
	e.mustBook(t, e.bob, e.roomA, june2, "09:00", "10:00")
}

func TestApprovalRejectsOverlap(t *testing.T) {
	e := newEnv(t)
	first := e.mustBook(t, e.alice, e.roomA, june1, "09:00", "10:00")
	second := e.mustBook(t, e.bob, e.roomA, june1, "09:30", "10:30")
	assert.Equal(t, model.StatePending, second.State)

	approved, err := e.approve(t, e.admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, approved.State)
	assert.Equal(t, e.admin.ID, approved.ApprovedByID())

	_, err = e.approve(t, e.admin, second.ID)
	requireCode(t, err, CodeOverlap)
	assert.Equal(t, model.StatePending, e.reload(t, second.ID).State)

	// rejecting the overlapping one is still allowed
	rej, err := e.res.TransitionReservation(context.Background(), e.admin, second.ID, model.StateRejected, "taken")
	require.NoError(t, err)
	assert.Equal(t, "taken", rej.AdminReason)
}

func TestBackToBackApprovalsDoNotOverlap(t *testing.T) {
	e := newEnv(t)
	a := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	b := e.mustBook(t, e.bob, e.roomA, june2, "10:00", "11:00")

	_, err := e.approve(t, e.admin, a.ID)
	require.NoError(t, err)
	_, err = e.approve(t, e.admin, b.ID)
	require.NoError(t, err)
}

func TestHasOverlapIsSymmetric(t *testing.T) {
	e := newEnv(t)
	r := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	_, err := e.approve(t, e.admin, r.ID)
	require.NoError(t, err)

	ctx := context.Background()
	cases := []struct {
		from, to string
		want     bool
	}{
		{"08:00", "09:00", false},
		{"10:00", "11:00", false},
		{"08:30", "09:01", true},
		{"09:59", "12:00", true},
		{"09:15", "09:45", true},
		{"08:00", "12:00", true},
	}
	for _, tc := range cases {
		got, err := e.res.HasOverlap(ctx, e.roomA.ID, june2, model.MustTime(tc.from), model.MustTime(tc.to), 0)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s-%s", tc.from, tc.to)
	}

	got, err := e.res.HasOverlap(ctx, e.roomA.ID, june2, model.MustTime("09:00"), model.MustTime("10:00"), r.ID)
	require.NoError(t, err)
	assert.False(t, got, "excluded reservation must not conflict with itself")

	_, err = e.res.HasOverlap(ctx, e.roomA.ID, june2, model.MustTime("10:00"), model.MustTime("09:00"), 0)
	requireCode(t, err, CodeInvalidTimeRange)
}

func TestModeratorScope(t *testing.T) {
	e := newEnv(t)
	r := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")

	got, err := e.approve(t, e.mod, r.ID)
	require.NoError(t, err)
	assert.Equal(t, e.mod.ID, got.ApprovedByID())

	_, err = e.approve(t, e.mod2, r.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	other := e.mustBook(t, e.bob, e.roomA, june3, "09:00", "10:00")
	_, err = e.approve(t, e.mod2, other.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, model.StatePending, e.reload(t, other.ID).State)

	_, err = e.approve(t, e.admin, other.ID)
	assert.NoError(t, err)
}

func TestRegularUserCannotReview(t *testing.T) {
	e := newEnv(t)
	own := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	foreign := e.mustBook(t, e.bob, e.roomA, june3, "09:00", "10:00")

	_, err := e.approve(t, e.alice, own.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.approve(t, e.alice, foreign.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransitionOnlyFromPending(t *testing.T) {
	e := newEnv(t)
	r := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	_, err := e.approve(t, e.admin, r.ID)
	require.NoError(t, err)

	_, err = e.approve(t, e.admin, r.ID)
	requireCode(t, err, CodeInvalidTransition)

	_, err = e.res.TransitionReservation(context.Background(), e.admin, r.ID, model.StatePending, "")
	requireCode(t, err, CodeInvalidTransition)

	_, err = e.approve(t, e.admin, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAvailabilityCascade(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pending := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	approved := e.mustBook(t, e.bob, e.roomA, june3, "09:00", "10:00")
	_, err := e.approve(t, e.mod, approved.ID)
	require.NoError(t, err)
	rejected := e.mustBook(t, e.alice, e.roomA, june3, "11:00", "12:00")
	_, err = e.res.TransitionReservation(ctx, e.mod, rejected.ID, model.StateRejected, "no")
	require.NoError(t, err)
	elsewhere := e.mustBook(t, e.alice, e.roomB, june2, "09:00", "10:00")

	past := model.Reservation{UserID: e.bob.ID, SpaceID: e.roomA.ID, UseDate: may30,
		StartTime: model.MustTime("09:00"), EndTime: model.MustTime("10:00"), State: model.StatePending, Reason: "old"}
	require.NoError(t, e.store.WithTx(ctx, func(tx repository.Tx) error { return tx.InsertReservation(ctx, &past) }))

	sp, err := e.spaces.SetSpaceAvailability(ctx, e.admin, e.roomA.ID, false)
	require.NoError(t, err)
	assert.False(t, sp.Available)

	for _, id := range []uint64{pending.ID, approved.ID} {
		got := e.reload(t, id)
		assert.Equal(t, model.StateRejected, got.State)
		assert.Equal(t, e.admin.ID, got.ApprovedByID())
		assert.Equal(t, SpaceUnavailableReason, got.AdminReason)
	}
	assert.Equal(t, "no", e.reload(t, rejected.ID).AdminReason)
	assert.Equal(t, e.mod.ID, e.reload(t, rejected.ID).ApprovedByID())
	assert.Equal(t, model.StatePending, e.reload(t, past.ID).State)
	assert.Equal(t, model.StatePending, e.reload(t, elsewhere.ID).State)

	cascaded := 0
	for _, ev := range e.audit.events {
		if ev.Cascade {
			cascaded++
			assert.Equal(t, queue.ActionReservationRejected, ev.Action)
			assert.Equal(t, e.admin.ID, ev.ActorID)
		}
	}
	assert.Equal(t, 2, cascaded)

	// turning it off again is not a true->false flip and rejects nothing
	before := len(e.audit.events)
	_, err = e.spaces.SetSpaceAvailability(ctx, e.admin, e.roomA.ID, false)
	require.NoError(t, err)
	assert.Len(t, e.audit.events, before+1)
}

// failingStore fails UpdateReservation for one reservation id.
type failingStore struct {
	repository.Store
	failID uint64
}

func (s failingStore) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Tx) error {
		return fn(failingTx{Tx: tx, failID: s.failID})
	})
}

type failingTx struct {
	repository.Tx
	failID uint64
}

func (tx failingTx) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	if r.ID == tx.failID {
		return errors.New("write failed")
	}
	return tx.Tx.UpdateReservation(ctx, r)
}

func TestAvailabilityCascadeSkipsFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	broken := e.mustBook(t, e.bob, e.roomA, june2, "11:00", "12:00")
	last := e.mustBook(t, e.carol, e.roomA, june3, "09:00", "10:00")

	d := Deps{
		Store: failingStore{Store: e.store, failID: broken.ID},
		Audit: e.audit,
		Clock: ClockFunc(func() time.Time { return june1.Add(10 * time.Hour) }),
	}
	spaces := NewSpaceService(d, NewReservationService(d))

	sp, err := spaces.SetSpaceAvailability(ctx, e.admin, e.roomA.ID, false)
	require.NoError(t, err)
	assert.False(t, sp.Available)

	assert.Equal(t, model.StateRejected, e.reload(t, first.ID).State)
	assert.Equal(t, model.StateRejected, e.reload(t, last.ID).State)
	assert.Equal(t, model.StatePending, e.reload(t, broken.ID).State)

	var cascaded []uint64
	for _, ev := range e.audit.events {
		if ev.Cascade {
			cascaded = append(cascaded, ev.EntityID)
		}
	}
	assert.ElementsMatch(t, []uint64{first.ID, last.ID}, cascaded)
}

func TestAvailabilityRequiresAdministrator(t *testing.T) {
	e := newEnv(t)
	_, err := e.spaces.SetSpaceAvailability(context.Background(), e.mod, e.roomA.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)
	sp, err := e.spaces.GetSpace(context.Background(), e.roomA.ID)
	require.NoError(t, err)
	assert.True(t, sp.Available)
}

func TestCreateOnBehalf(t *testing.T) {
	e := newEnv(t)

	r, err := e.book(t, e.mod, e.alice, e.roomA, june2, "09:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, e.alice.ID, r.UserID)

	_, err = e.book(t, e.mod, e.carol, e.roomA, june2, "09:00", "10:00")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.book(t, e.alice, e.bob, e.roomA, june2, "09:00", "10:00")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.book(t, e.admin, e.mod2, e.roomB, june2, "09:00", "10:00")
	assert.NoError(t, err)
}

func TestAssignableUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	names := func(us []model.User) []string {
		out := make([]string, 0, len(us))
		for _, u := range us {
			out = append(out, u.Username)
		}
		return out
	}

	got, err := e.res.AssignableUsers(ctx, e.alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names(got))

	got, err = e.res.AssignableUsers(ctx, e.mod)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mod", "alice", "bob"}, names(got))

	got, err = e.res.AssignableUsers(ctx, e.admin)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin", "mod", "mod2", "alice", "bob", "carol"}, names(got))
}

func TestDeleteReservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	own := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	require.NoError(t, e.res.DeleteReservation(ctx, e.alice, own.ID))
	_, err := e.store.GetReservation(ctx, own.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	r := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	_, err = e.approve(t, e.admin, r.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, e.res.DeleteReservation(ctx, e.alice, r.ID), ErrForbidden)
	assert.ErrorIs(t, e.res.DeleteReservation(ctx, e.bob, r.ID), ErrNotFound)
	assert.NoError(t, e.res.DeleteReservation(ctx, e.admin, r.ID))
}

func TestRescheduleReservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	moved, err := e.res.RescheduleReservation(ctx, e.alice, r.ID, RescheduleInput{
		StartTime: ptr(model.MustTime("11:00")),
		EndTime:   ptr(model.MustTime("12:00")),
	})
	require.NoError(t, err)
	assert.Equal(t, "11:00", moved.StartTime.String())
	assert.Equal(t, "standup", moved.Reason)

	_, err = e.res.RescheduleReservation(ctx, e.alice, r.ID, RescheduleInput{UseDate: ptr(may30)})
	requireCode(t, err, CodePastDate)

	blocker := e.mustBook(t, e.bob, e.roomA, june2, "13:00", "14:00")
	_, err = e.approve(t, e.mod, blocker.ID)
	require.NoError(t, err)
	_, err = e.approve(t, e.mod, r.ID)
	require.NoError(t, err)

	// owners cannot edit approved reservations, reviewers can but not onto
	// an occupied window
	_, err = e.res.RescheduleReservation(ctx, e.alice, r.ID, RescheduleInput{StartTime: ptr(model.MustTime("10:00"))})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.res.RescheduleReservation(ctx, e.mod, r.ID, RescheduleInput{
		StartTime: ptr(model.MustTime("13:30")),
		EndTime:   ptr(model.MustTime("14:30")),
	})
	requireCode(t, err, CodeOverlap)
	_, err = e.res.RescheduleReservation(ctx, e.mod, r.ID, RescheduleInput{
		StartTime: ptr(model.MustTime("14:00")),
		EndTime:   ptr(model.MustTime("15:00")),
	})
	assert.NoError(t, err)
}

func TestRescheduleOutsideVisibleSetIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	in := RescheduleInput{StartTime: ptr(model.MustTime("11:00")), EndTime: ptr(model.MustTime("12:00"))}

	// mod2 reviews floor 2 only; the reservation must look like a missing id
	_, err := e.res.RescheduleReservation(ctx, e.mod2, r.ID, in)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
	_, missing := e.res.RescheduleReservation(ctx, e.mod2, 999999, in)
	assert.ErrorIs(t, missing, ErrNotFound)

	_, err = e.res.RescheduleReservation(ctx, e.carol, r.ID, in)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "09:00", e.reload(t, r.ID).StartTime.String())

	// reviewing keeps the 403 for moderators out of scope
	_, err = e.approve(t, e.mod2, r.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListVisibleReservations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	e.mustBook(t, e.bob, e.roomA, june2, "10:00", "11:00")
	e.mustBook(t, e.carol, e.roomB, june2, "09:00", "10:00")
	e.mustBook(t, e.carol, e.lab, june3, "09:00", "10:00")

	count := func(actor model.User, f ReservationFilter) int {
		list, err := e.res.ListVisibleReservations(ctx, actor, f)
		require.NoError(t, err)
		return len(list)
	}
	assert.Equal(t, 4, count(e.admin, ReservationFilter{}))
	assert.Equal(t, 2, count(e.mod, ReservationFilter{}))
	assert.Equal(t, 1, count(e.mod2, ReservationFilter{}))
	assert.Equal(t, 1, count(e.alice, ReservationFilter{}))
	assert.Equal(t, 2, count(e.carol, ReservationFilter{}))

	assert.Equal(t, 3, count(e.admin, ReservationFilter{To: &june2}))
	assert.Equal(t, 1, count(e.admin, ReservationFilter{Username: "BO"}))
	assert.Equal(t, 2, count(e.admin, ReservationFilter{SpaceID: e.roomA.ID}))
	assert.Equal(t, 1, count(e.admin, ReservationFilter{LocationID: &e.annex.ID}))
	assert.Equal(t, 1, count(e.admin, ReservationFilter{StartsFrom: ptr(model.MustTime("10:00"))}))

	_, err := e.res.ListVisibleReservations(ctx, e.admin, ReservationFilter{From: &june3, To: &june2})
	requireCode(t, err, CodeInvalidField)
}

func TestGetReservationHonoursVisibility(t *testing.T) {
	e := newEnv(t)
	r := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")

	_, err := e.res.GetReservation(context.Background(), e.bob, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := e.res.GetReservation(context.Background(), e.mod, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestDailyCounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	e.mustBook(t, e.bob, e.roomA, june2, "10:00", "11:00")
	_, err := e.approve(t, e.admin, a.ID)
	require.NoError(t, err)

	days, err := e.res.DailyCounts(ctx, e.admin, june1, june3, "")
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, DayCount{Date: june1}, days[0])
	assert.Equal(t, DayCount{Date: june2, Pending: 1, Approved: 1}, days[1])

	days, err = e.res.DailyCounts(ctx, e.alice, june2, june2, "")
	require.NoError(t, err)
	assert.Equal(t, []DayCount{{Date: june2, Approved: 1}}, days)

	_, err = e.res.DailyCounts(ctx, e.admin, june3, june1, "")
	requireCode(t, err, CodeInvalidField)
	_, err = e.res.DailyCounts(ctx, e.admin, june1, june1.AddDate(2, 0, 0), "")
	requireCode(t, err, CodeInvalidField)
}

func TestStorageErrorMapping(t *testing.T) {
	err := storageError(repository.ErrDuplicate)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	assert.ErrorIs(t, storageError(repository.ErrOverlap), ErrConflict)
	assert.ErrorIs(t, storageError(repository.ErrNotFound), ErrNotFound)
	requireCode(t, storageError(repository.ErrCheckViolation), CodeInvalidField)
	assert.NoError(t, storageError(nil))
}
