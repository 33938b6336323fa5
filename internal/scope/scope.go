// Package scope holds the authorization predicates that decide which
// reservations an actor can see and act on. The same Visibility value is
// evaluated in process by the memory store and rendered into SQL by the
// MySQL store so both paths agree.
package scope

import "github.com/iliyamo/space-booking/internal/model"

// Visibility describes the set of reservations visible to one actor.
// When All is false a reservation is visible if any populated clause
// matches: OwnerID, ReviewerID (approved_by), or the (LocationID, Floor)
// pair of its space.
type Visibility struct {
	All        bool
	OwnerID    uint64
	ReviewerID uint64
	LocationID *uint64
	Floor      *int
}

// For returns the visibility of actor.
func For(actor model.User) Visibility {
	switch actor.Role() {
	case model.RoleAdministrator:
		return Visibility{All: true}
	case model.RoleModerator:
		v := Visibility{OwnerID: actor.ID, ReviewerID: actor.ID}
		if loc, ok := actor.HomeLocation(); ok {
			if floor, ok := actor.HomeFloor(); ok {
				v.LocationID, v.Floor = &loc, &floor
			}
		}
		return v
	case model.RoleRegularUser:
		return Visibility{OwnerID: actor.ID}
	}
	return Visibility{OwnerID: actor.ID}
}

// HasLocation reports whether the (location, floor) clause is active.
func (v Visibility) HasLocation() bool { return v.LocationID != nil && v.Floor != nil }

// Allows reports whether r is inside the visible set.
func (v Visibility) Allows(r model.Reservation) bool {
	if v.All {
		return true
	}
	if v.OwnerID != 0 && r.UserID == v.OwnerID {
		return true
	}
	if v.ReviewerID != 0 && r.ApprovedByID() == v.ReviewerID {
		return true
	}
	if v.HasLocation() && r.LocationID == *v.LocationID && r.Floor == *v.Floor {
		return true
	}
	return false
}

// CanReview reports whether actor may approve or reject reservations of
// space. Administrators review everything; moderators only spaces on their
// own location and floor.
func CanReview(actor model.User, space model.Space) bool {
	switch actor.Role() {
	case model.RoleAdministrator:
		return true
	case model.RoleModerator:
		return actor.InScope(space.LocationID, space.Floor)
	case model.RoleRegularUser:
		return false
	}
	return false
}

// CanAssign reports whether actor may create a reservation owned by target.
func CanAssign(actor, target model.User) bool {
	if actor.ID == target.ID {
		return true
	}
	if !target.IsActive {
		return false
	}
	switch actor.Role() {
	case model.RoleAdministrator:
		r := target.Role()
		return r == model.RoleRegularUser || r == model.RoleModerator
	case model.RoleModerator:
		if !target.IsRegularUser() {
			return false
		}
		loc, ok := target.HomeLocation()
		if !ok {
			return false
		}
		floor, ok := target.HomeFloor()
		if !ok {
			return false
		}
		return actor.InScope(loc, floor)
	case model.RoleRegularUser:
		return false
	}
	return false
}

// CanDelete reports whether actor may delete a visible reservation.
func CanDelete(actor model.User, r model.Reservation) bool {
	if actor.IsAdministrator() {
		return true
	}
	return r.UserID == actor.ID && r.State == model.StatePending
}

// CanReschedule reports whether actor may move a visible reservation to a
// different date or window. Owners edit their own requests while pending;
// reviewers in scope may also move approved ones.
func CanReschedule(actor model.User, r model.Reservation, space model.Space) bool {
	if r.State == model.StateRejected {
		return false
	}
	if CanReview(actor, space) {
		return true
	}
	return r.UserID == actor.ID && r.State == model.StatePending
}

// CanManageSpaces reports whether actor may create, edit or delete spaces
// and locations.
func CanManageSpaces(actor model.User) bool { return actor.IsAdministrator() }

// CanManageUsers reports whether actor may list, edit or delete accounts,
// including the group, location and floor every other rule here reads.
func CanManageUsers(actor model.User) bool { return actor.IsAdministrator() }
