package model

import (
	"strings"
	"time"
)

// Role is the effective role of an actor. Every user resolves to exactly
// one role; a user without a recognized group is a RoleRegularUser.
type Role uint8

const (
	RoleRegularUser Role = iota
	RoleModerator
	RoleAdministrator
)

// Group names stored in users.group_name.
const (
	GroupAdministrator = "administrator"
	GroupModerator     = "moderator"
	GroupUser          = "user"
)

// String returns the group name backing the role.
func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return GroupAdministrator
	case RoleModerator:
		return GroupModerator
	case RoleRegularUser:
		return GroupUser
	}
	return GroupUser
}

// ParseRole maps a group name to a Role. The second return value is false
// when the name is not one of the known groups.
func ParseRole(name string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case GroupAdministrator:
		return RoleAdministrator, true
	case GroupModerator:
		return RoleModerator, true
	case GroupUser:
		return RoleRegularUser, true
	}
	return RoleRegularUser, false
}

// RoleFromGroups resolves the role of a user from its group memberships.
// The first recognized group wins; no recognized group yields RoleRegularUser.
func RoleFromGroups(names ...string) Role {
	for _, n := range names {
		if r, ok := ParseRole(n); ok {
			return r
		}
	}
	return RoleRegularUser
}

// User mirrors a row of the `users` table. LocationID and Floor form the
// home scope of moderators and regular users and are nil for most
// administrators.
type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	Group        string
	LocationID   *uint64
	Floor        *int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) Role() Role            { return RoleFromGroups(u.Group) }
func (u User) IsAdministrator() bool { return u.Role() == RoleAdministrator }
func (u User) IsModerator() bool     { return u.Role() == RoleModerator }
func (u User) IsRegularUser() bool   { return u.Role() == RoleRegularUser }

// HomeLocation returns the user's location, if any.
func (u User) HomeLocation() (uint64, bool) {
	if u.LocationID == nil {
		return 0, false
	}
	return *u.LocationID, true
}

// HomeFloor returns the user's floor, if any.
func (u User) HomeFloor() (int, bool) {
	if u.Floor == nil {
		return 0, false
	}
	return *u.Floor, true
}

// InScope reports whether the user's home (location, floor) equals the
// given pair. A user without a complete home scope is never in scope.
func (u User) InScope(locationID uint64, floor int) bool {
	loc, ok := u.HomeLocation()
	if !ok {
		return false
	}
	f, ok := u.HomeFloor()
	if !ok {
		return false
	}
	return loc == locationID && f == floor
}
