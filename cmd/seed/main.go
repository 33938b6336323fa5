// Command seed loads locations, spaces and accounts from a YAML fixture.
// Rows that already exist are reported and skipped, so running it twice is
// harmless.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/space-booking/internal/app"
	"github.com/iliyamo/space-booking/internal/config"
	"github.com/iliyamo/space-booking/internal/database"
	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/repository"
	"github.com/iliyamo/space-booking/internal/service"
)

type fixture struct {
	Locations []string      `yaml:"locations"`
	Spaces    []spaceSeed   `yaml:"spaces"`
	Users     []accountSeed `yaml:"users"`
}

type spaceSeed struct {
	Name        string `yaml:"name"`
	Location    string `yaml:"location"`
	Floor       int    `yaml:"floor"`
	Capacity    int    `yaml:"capacity"`
	Type        string `yaml:"type"`
	Available   *bool  `yaml:"available"`
	Description string `yaml:"description"`
}

type accountSeed struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Group    string `yaml:"group"`
	Location string `yaml:"location"`
	Floor    *int   `yaml:"floor"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var file, envFile string
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&file, "file", "f", "cmd/seed/seed.example.yaml", "fixture to load")
	flagSet.StringVar(&envFile, "env-file", ".env", "load environment variables from this file when it exists")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	config.LoadEnvFile(envFile)
	cfg := config.Load()
	logger := app.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()

	if cfg.StoreDriver == config.DriverMemory {
		return errors.New("seeding the in-memory store has no effect; set STORE_DRIVER=mysql")
	}
	db, err := database.Open(ctx, database.Options{User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName})
	if err != nil {
		return err
	}
	defer db.Close()
	m, err := database.NewMigrator(db, logger)
	if err != nil {
		return err
	}
	if err := m.Run(ctx); err != nil {
		return err
	}
	deps := service.Deps{Store: repository.NewMySQLStore(db), Logger: logger, Location: cfg.Location}
	return newSeeder(deps, cfg.BcryptCost).load(ctx, fx)
}

type seeder struct {
	spaces   *service.SpaceService
	accounts *service.AccountService
	logger   *zap.Logger
}

func newSeeder(deps service.Deps, bcryptCost int) seeder {
	return seeder{
		spaces:   service.NewSpaceService(deps, nil),
		accounts: service.NewAccountService(deps, bcryptCost),
		logger:   deps.Logger,
	}
}

// seedActor stands in for an administrator; it is never stored.
var seedActor = model.User{Username: "seed", Group: model.GroupAdministrator}

func (s seeder) load(ctx context.Context, fx fixture) error {
	existing, err := s.spaces.ListLocations(ctx)
	if err != nil {
		return err
	}
	locations := make(map[string]uint64, len(existing))
	for _, l := range existing {
		locations[l.Name] = l.ID
	}

	for _, name := range fx.Locations {
		if _, ok := locations[name]; ok {
			s.logger.Info("location exists", zap.String("name", name))
			continue
		}
		loc, err := s.spaces.CreateLocation(ctx, seedActor, name)
		if err != nil {
			return fmt.Errorf("location %q: %w", name, err)
		}
		locations[loc.Name] = loc.ID
	}

	for _, sp := range fx.Spaces {
		locID, ok := locations[sp.Location]
		if !ok {
			return fmt.Errorf("space %q: unknown location %q", sp.Name, sp.Location)
		}
		typ := model.SpaceType(sp.Type)
		if typ == "" {
			typ = model.SpaceRoom
		}
		_, err := s.spaces.CreateSpace(ctx, seedActor, service.SpaceInput{
			Name:        sp.Name,
			LocationID:  locID,
			Floor:       sp.Floor,
			Capacity:    sp.Capacity,
			Type:        typ,
			Available:   sp.Available,
			Description: sp.Description,
		})
		if err := skipExisting(err); err != nil {
			return fmt.Errorf("space %q: %w", sp.Name, err)
		}
	}

	for _, u := range fx.Users {
		in := service.NewUserInput{
			Username: u.Username,
			Email:    u.Email,
			Password: u.Password,
			Group:    u.Group,
			Floor:    u.Floor,
		}
		if u.Location != "" {
			id, ok := locations[u.Location]
			if !ok {
				return fmt.Errorf("user %q: unknown location %q", u.Username, u.Location)
			}
			in.LocationID = &id
		}
		_, err := s.accounts.Provision(ctx, in)
		if err := skipExisting(err); err != nil {
			return fmt.Errorf("user %q: %w", u.Username, err)
		}
	}
	s.logger.Info("seed complete",
		zap.Int("locations", len(fx.Locations)),
		zap.Int("spaces", len(fx.Spaces)),
		zap.Int("users", len(fx.Users)))
	return nil
}

// skipExisting treats a unique-key collision as already seeded.
func skipExisting(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}
