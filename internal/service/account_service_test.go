package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/queue"
	"github.com/iliyamo/space-booking/internal/repository"
)

func TestProvisionAndAuthenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.accounts.Provision(ctx, NewUserInput{
		Username:   " dave ",
		Email:      "Dave <DAVE@Example.com>",
		Password:   "correct-horse",
		Group:      "moderator",
		LocationID: &e.hq.ID,
		Floor:      ptr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "dave", u.Username)
	assert.Equal(t, "dave@example.com", u.Email)
	assert.Equal(t, model.RoleModerator, u.Role())
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	got, err := e.accounts.Authenticate(ctx, "dave", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = e.accounts.Authenticate(ctx, "dave", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.accounts.Authenticate(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProvisionValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	base := NewUserInput{Username: "erin", Email: "erin@example.com", Password: "long-enough"}

	in := base
	in.Username = "1erin"
	_, err := e.accounts.Provision(ctx, in)
	requireCode(t, err, CodeInvalidField)

	in = base
	in.Email = "not-an-email"
	_, err = e.accounts.Provision(ctx, in)
	requireCode(t, err, CodeInvalidField)

	in = base
	in.Password = "short"
	_, err = e.accounts.Provision(ctx, in)
	requireCode(t, err, CodeInvalidField)

	in = base
	in.Group = "superuser"
	_, err = e.accounts.Provision(ctx, in)
	requireCode(t, err, CodeInvalidField)

	in = base
	in.Floor = ptr(41)
	_, err = e.accounts.Provision(ctx, in)
	requireCode(t, err, CodeInvalidField)

	in = base
	in.Username = "alice"
	_, err = e.accounts.Provision(ctx, in)
	assert.ErrorIs(t, err, ErrConflict)

	u, err := e.accounts.Provision(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, model.RoleRegularUser, u.Role())
}

func TestCreateUserRequiresAdministrator(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	in := NewUserInput{Username: "frank", Email: "frank@example.com", Password: "long-enough"}

	_, err := e.accounts.CreateUser(ctx, e.mod, in)
	assert.ErrorIs(t, err, ErrForbidden)

	u, err := e.accounts.CreateUser(ctx, e.admin, in)
	require.NoError(t, err)
	assert.Contains(t, e.audit.actions(), queue.ActionUserCreated)

	got, err := e.accounts.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "frank", got.Username)

	_, err = e.accounts.GetUser(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserMovesModeratorScope(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	onA := e.mustBook(t, e.alice, e.roomA, june2, "09:00", "10:00")
	onB := e.mustBook(t, e.alice, e.roomB, june2, "09:00", "10:00")

	moved, err := e.accounts.UpdateUser(ctx, e.admin, e.mod.ID, UpdateUserInput{
		Group:      model.GroupModerator,
		LocationID: &e.hq.ID,
		Floor:      ptr(2),
	})
	require.NoError(t, err)
	require.NotNil(t, moved.Floor)
	assert.Equal(t, 2, *moved.Floor)
	assert.Equal(t, "mod@example.com", moved.Email)
	assert.True(t, moved.IsActive)

	_, err = e.approve(t, *moved, onA.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.approve(t, *moved, onB.ID)
	assert.NoError(t, err)

	ev := e.audit.events[len(e.audit.events)-2]
	assert.Equal(t, queue.ActionUserUpdated, ev.Action)
	assert.Equal(t, e.admin.ID, ev.ActorID)
}

func TestUpdateUserDemotesAndDeactivates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, err := e.accounts.Provision(ctx, NewUserInput{Username: "gina", Email: "gina@example.com", Password: "long-enough", Group: "moderator"})
	require.NoError(t, err)

	got, err := e.accounts.UpdateUser(ctx, e.admin, u.ID, UpdateUserInput{
		Email:    "Gina.New@Example.com",
		Group:    model.GroupUser,
		IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleRegularUser, got.Role())
	assert.Equal(t, "gina.new@example.com", got.Email)
	assert.Nil(t, got.LocationID)

	_, err = e.accounts.Authenticate(ctx, "gina", "long-enough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUserValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accounts.UpdateUser(ctx, e.mod, e.alice.ID, UpdateUserInput{Group: model.GroupModerator})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.accounts.UpdateUser(ctx, e.admin, e.alice.ID, UpdateUserInput{Group: "superuser"})
	requireCode(t, err, CodeInvalidField)

	_, err = e.accounts.UpdateUser(ctx, e.admin, e.alice.ID, UpdateUserInput{Group: model.GroupUser, Floor: ptr(99)})
	requireCode(t, err, CodeInvalidField)

	_, err = e.accounts.UpdateUser(ctx, e.admin, e.alice.ID, UpdateUserInput{Group: model.GroupUser, LocationID: ptr(uint64(9999))})
	requireCode(t, err, CodeInvalidField)

	_, err = e.accounts.UpdateUser(ctx, e.admin, e.alice.ID, UpdateUserInput{Group: model.GroupUser, Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = e.accounts.UpdateUser(ctx, e.admin, e.admin.ID, UpdateUserInput{Group: model.GroupModerator})
	requireCode(t, err, CodeInvalidField)

	_, err = e.accounts.UpdateUser(ctx, e.admin, 9999, UpdateUserInput{Group: model.GroupUser})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := e.accounts.GetUser(ctx, e.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, model.RoleRegularUser, got.Role())
}

func TestListAndDeleteUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accounts.ListUsers(ctx, e.mod)
	assert.ErrorIs(t, err, ErrForbidden)
	users, err := e.accounts.ListUsers(ctx, e.admin)
	require.NoError(t, err)
	assert.Len(t, users, 6)

	r := e.mustBook(t, e.bob, e.roomA, june2, "09:00", "10:00")
	assert.ErrorIs(t, e.accounts.DeleteUser(ctx, e.mod, e.bob.ID), ErrForbidden)
	requireCode(t, e.accounts.DeleteUser(ctx, e.admin, e.admin.ID), CodeInvalidField)

	require.NoError(t, e.accounts.DeleteUser(ctx, e.admin, e.bob.ID))
	_, err = e.accounts.GetUser(ctx, e.bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.store.GetReservation(ctx, r.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Contains(t, e.audit.actions(), queue.ActionUserDeleted)

	assert.ErrorIs(t, e.accounts.DeleteUser(ctx, e.admin, e.bob.ID), ErrNotFound)
}
