package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/space-booking/internal/model"
)

func ptr[T any](v T) *T { return &v }

func user(id uint64, group string, loc uint64, floor int) model.User {
	return model.User{ID: id, Group: group, LocationID: ptr(loc), Floor: ptr(floor), IsActive: true}
}

func TestVisibilityByRole(t *testing.T) {
	admin := model.User{ID: 1, Group: model.GroupAdministrator, IsActive: true}
	mod := user(2, model.GroupModerator, 10, 1)
	alice := user(3, model.GroupUser, 10, 1)
	bob := user(4, "", 20, 2)

	ownByAlice := model.Reservation{ID: 1, UserID: alice.ID, LocationID: 10, Floor: 1}
	ownByBobElsewhere := model.Reservation{ID: 2, UserID: bob.ID, LocationID: 20, Floor: 2}
	reviewedByMod := model.Reservation{ID: 3, UserID: bob.ID, LocationID: 20, Floor: 2, ApprovedBy: ptr(mod.ID)}
	bobOnModFloor := model.Reservation{ID: 4, UserID: bob.ID, LocationID: 10, Floor: 1}
	bobOnOtherFloor := model.Reservation{ID: 5, UserID: bob.ID, LocationID: 10, Floor: 2}

	va := For(admin)
	for _, r := range []model.Reservation{ownByAlice, ownByBobElsewhere, reviewedByMod, bobOnModFloor, bobOnOtherFloor} {
		assert.True(t, va.Allows(r), "admin sees %d", r.ID)
	}

	vm := For(mod)
	assert.True(t, vm.Allows(ownByAlice))
	assert.False(t, vm.Allows(ownByBobElsewhere))
	assert.True(t, vm.Allows(reviewedByMod))
	assert.True(t, vm.Allows(bobOnModFloor))
	assert.False(t, vm.Allows(bobOnOtherFloor))

	vu := For(alice)
	assert.True(t, vu.Allows(ownByAlice))
	assert.False(t, vu.Allows(bobOnModFloor))
	assert.False(t, vu.HasLocation())

	vb := For(bob)
	assert.True(t, vb.Allows(bobOnOtherFloor))
	assert.False(t, vb.Allows(ownByAlice))
}

func TestModeratorWithoutHomeScope(t *testing.T) {
	mod := model.User{ID: 9, Group: model.GroupModerator, IsActive: true}
	v := For(mod)
	assert.False(t, v.HasLocation())
	assert.False(t, v.Allows(model.Reservation{UserID: 1, LocationID: 0, Floor: 0}))
	assert.False(t, CanReview(mod, model.Space{LocationID: 0, Floor: 0}))
}

func TestCanReview(t *testing.T) {
	roomA := model.Space{ID: 1, LocationID: 10, Floor: 1}
	assert.True(t, CanReview(model.User{ID: 1, Group: model.GroupAdministrator}, roomA))
	assert.True(t, CanReview(user(2, model.GroupModerator, 10, 1), roomA))
	assert.False(t, CanReview(user(3, model.GroupModerator, 10, 2), roomA))
	assert.False(t, CanReview(user(4, model.GroupModerator, 11, 1), roomA))
	assert.False(t, CanReview(user(5, model.GroupUser, 10, 1), roomA))
}

func TestCanAssign(t *testing.T) {
	admin := model.User{ID: 1, Group: model.GroupAdministrator, IsActive: true}
	otherAdmin := model.User{ID: 6, Group: model.GroupAdministrator, IsActive: true}
	mod := user(2, model.GroupModerator, 10, 1)
	otherMod := user(7, model.GroupModerator, 10, 1)
	near := user(3, model.GroupUser, 10, 1)
	far := user(4, model.GroupUser, 10, 2)
	inactive := user(5, model.GroupUser, 10, 1)
	inactive.IsActive = false

	assert.True(t, CanAssign(admin, admin))
	assert.True(t, CanAssign(admin, mod))
	assert.True(t, CanAssign(admin, far))
	assert.False(t, CanAssign(admin, otherAdmin))
	assert.False(t, CanAssign(admin, inactive))

	assert.True(t, CanAssign(mod, mod))
	assert.True(t, CanAssign(mod, near))
	assert.False(t, CanAssign(mod, far))
	assert.False(t, CanAssign(mod, otherMod))

	assert.True(t, CanAssign(near, near))
	assert.False(t, CanAssign(near, far))
}

func TestCanDeleteAndReschedule(t *testing.T) {
	admin := model.User{ID: 1, Group: model.GroupAdministrator}
	owner := user(3, model.GroupUser, 10, 1)
	mod := user(2, model.GroupModerator, 10, 1)
	space := model.Space{ID: 1, LocationID: 10, Floor: 1}

	pending := model.Reservation{UserID: owner.ID, State: model.StatePending}
	approved := model.Reservation{UserID: owner.ID, State: model.StateApproved}
	rejected := model.Reservation{UserID: owner.ID, State: model.StateRejected}

	assert.True(t, CanDelete(owner, pending))
	assert.False(t, CanDelete(owner, approved))
	assert.True(t, CanDelete(admin, rejected))
	assert.False(t, CanDelete(mod, pending))

	assert.True(t, CanReschedule(owner, pending, space))
	assert.False(t, CanReschedule(owner, approved, space))
	assert.True(t, CanReschedule(mod, approved, space))
	assert.False(t, CanReschedule(admin, rejected, space))

	assert.True(t, CanManageSpaces(admin))
	assert.False(t, CanManageSpaces(mod))
	assert.True(t, CanManageUsers(admin))
	assert.False(t, CanManageUsers(mod))
}
