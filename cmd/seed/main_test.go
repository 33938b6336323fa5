package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/space-booking/internal/repository"
	"github.com/iliyamo/space-booking/internal/service"
)

func loadExample(t *testing.T) fixture {
	t.Helper()
	raw, err := os.ReadFile("seed.example.yaml")
	require.NoError(t, err)
	var fx fixture
	require.NoError(t, yaml.Unmarshal(raw, &fx))
	return fx
}

func TestExampleFixtureParses(t *testing.T) {
	fx := loadExample(t)
	assert.Equal(t, []string{"HQ", "Annex"}, fx.Locations)
	require.Len(t, fx.Spaces, 4)
	require.NotNil(t, fx.Spaces[3].Available)
	assert.False(t, *fx.Spaces[3].Available)
	require.Len(t, fx.Users, 4)
	assert.Equal(t, "administrator", fx.Users[0].Group)
	require.NotNil(t, fx.Users[2].Floor)
	assert.Equal(t, 1, *fx.Users[2].Floor)
}

func TestSeederLoadIsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	s := newSeeder(service.Deps{Store: store, Logger: zap.NewNop()}, bcrypt.MinCost)
	fx := loadExample(t)

	require.NoError(t, s.load(ctx, fx))
	require.NoError(t, s.load(ctx, fx))

	locs, err := store.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "HQ", locs[1].Name)

	spaces, err := store.ListSpaces(ctx, repository.SpaceFilter{})
	require.NoError(t, err)
	assert.Len(t, spaces, 4)

	alice, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, alice.LocationID)
	assert.Equal(t, locs[1].ID, *alice.LocationID)
	assert.True(t, alice.IsRegularUser())
}

func TestSeederRejectsUnknownLocation(t *testing.T) {
	s := newSeeder(service.Deps{Store: repository.NewMemoryStore(), Logger: zap.NewNop()}, bcrypt.MinCost)
	err := s.load(context.Background(), fixture{
		Spaces: []spaceSeed{{Name: "Nowhere", Location: "Mars", Floor: 1, Capacity: 2}},
	})
	assert.ErrorContains(t, err, `unknown location "Mars"`)
}
