package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleFromGroups(t *testing.T) {
	assert.Equal(t, RoleRegularUser, RoleFromGroups())
	assert.Equal(t, RoleRegularUser, RoleFromGroups("guests"))
	assert.Equal(t, RoleModerator, RoleFromGroups("guests", "moderator"))
	assert.Equal(t, RoleAdministrator, RoleFromGroups(" Administrator "))
	assert.Equal(t, RoleRegularUser, RoleFromGroups("user", "administrator"))
}

func TestUserRoleHelpers(t *testing.T) {
	loc, floor := uint64(7), 3
	mod := User{ID: 1, Group: GroupModerator, LocationID: &loc, Floor: &floor}
	assert.True(t, mod.IsModerator())
	assert.False(t, mod.IsAdministrator())
	assert.False(t, mod.IsRegularUser())
	assert.True(t, mod.InScope(7, 3))
	assert.False(t, mod.InScope(7, 4))
	assert.False(t, mod.InScope(8, 3))

	admin := User{ID: 2, Group: GroupAdministrator}
	_, ok := admin.HomeLocation()
	assert.False(t, ok)
	_, ok = admin.HomeFloor()
	assert.False(t, ok)
	assert.False(t, admin.InScope(0, 0))

	assert.True(t, User{}.IsRegularUser())
}

func TestParseTimeOfDay(t *testing.T) {
	v, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*3600+30*60), v)
	assert.Equal(t, "09:30", v.String())

	v, err = ParseTimeOfDay("23:59:59.000000")
	require.NoError(t, err)
	assert.Equal(t, "23:59:59", v.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("noon")
	assert.Error(t, err)
}

func TestTimeOfDayScan(t *testing.T) {
	var v TimeOfDay
	require.NoError(t, v.Scan([]byte("10:15:00")))
	assert.Equal(t, MustTime("10:15"), v)

	stored, err := v.Value()
	require.NoError(t, err)
	assert.Equal(t, "10:15:00", stored)

	assert.Error(t, v.Scan(42))
}

func TestIntervalOverlap(t *testing.T) {
	w := func(a, b string) Interval { return Interval{Start: MustTime(a), End: MustTime(b)} }
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"partial", w("09:00", "10:00"), w("09:30", "10:30"), true},
		{"contained", w("09:00", "12:00"), w("10:00", "11:00"), true},
		{"identical", w("09:00", "10:00"), w("09:00", "10:00"), true},
		{"back to back", w("09:00", "10:00"), w("10:00", "11:00"), false},
		{"disjoint", w("08:00", "09:00"), w("13:00", "14:00"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
	assert.False(t, w("10:00", "10:00").Valid())
	assert.False(t, w("11:00", "10:00").Valid())
	assert.True(t, w("10:00", "10:01").Valid())
}

func TestDayAndParseState(t *testing.T) {
	bogota := time.FixedZone("COT", -5*3600)
	d := Day(time.Date(2025, 6, 1, 23, 30, 0, 0, bogota))
	assert.Equal(t, "2025-06-01", d.Format(DateLayout))
	assert.Equal(t, time.UTC, d.Location())

	p, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.True(t, p.Equal(d))
	_, err = ParseDate("06/01/2025")
	assert.Error(t, err)

	s, ok := ParseState("Approved")
	assert.True(t, ok)
	assert.Equal(t, StateApproved, s)
	_, ok = ParseState("cancelled")
	assert.False(t, ok)
	assert.True(t, StateRejected.Reviewed())
	assert.False(t, StatePending.Reviewed())
}
