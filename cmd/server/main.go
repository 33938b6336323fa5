package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/iliyamo/space-booking/internal/app"
	"github.com/iliyamo/space-booking/internal/config"
	"github.com/iliyamo/space-booking/internal/database"
	"github.com/iliyamo/space-booking/internal/handler"
	"github.com/iliyamo/space-booking/internal/queue"
	"github.com/iliyamo/space-booking/internal/repository"
	"github.com/iliyamo/space-booking/internal/router"
	"github.com/iliyamo/space-booking/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile string
	var migrateOnly, auditConsumer bool

	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "load environment variables from this file when it exists")
	flagSet.BoolVar(&migrateOnly, "migrate-only", false, "apply database migrations and exit")
	flagSet.BoolVar(&auditConsumer, "audit-consumer", false, "also run the audit queue consumer in this process")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	config.LoadEnvFile(envFile)
	cfg := config.Load() // Load environment config
	logger := app.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg, logger, migrateOnly)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	if migrateOnly {
		return nil
	}

	var auditor service.Auditor = queue.LogAuditor{Logger: logger}
	if cfg.Audit.Enabled {
		auditor = queue.NewPublisher(cfg.Audit.URL, cfg.Audit.Queue, logger)
		if auditConsumer {
			consumer := queue.NewConsumer(cfg.Audit.URL, cfg.Audit.Queue, cfg.Audit.LogDir, logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	deps := service.Deps{Store: store, Audit: auditor, Logger: logger, Location: cfg.Location}
	reservations := service.NewReservationService(deps)
	spaces := service.NewSpaceService(deps, reservations)
	accounts := service.NewAccountService(deps, cfg.BcryptCost)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	router.Register(e, router.Deps{
		JWTSecret:    cfg.JWTSecret,
		Auth:         handler.NewAuthHandler(cfg, accounts, logger),
		Reservations: handler.NewReservationHandler(accounts, reservations, logger),
		Spaces:       handler.NewSpaceHandler(accounts, spaces, logger),
		DB:           pinger,
		Redis:        rdb,
		Cache:        config.LoadCacheConfig(),
		RateLimit:    config.LoadRateLimitConfig(),
		Logger:       logger,
	})

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore returns the configured store.  For MySQL it also returns the
// pool so the caller can close it and serve readiness checks.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger, migrateOnly bool) (repository.Store, *sql.DB, error) {
	if cfg.StoreDriver == config.DriverMemory {
		if migrateOnly {
			return nil, nil, errors.New("--migrate-only requires STORE_DRIVER=mysql")
		}
		logger.Warn("using in-memory store; data is lost on exit")
		return repository.NewMemoryStore(), nil, nil
	}

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.DBMigrate || migrateOnly {
		m, err := database.NewMigrator(db, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := m.Run(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return repository.NewMySQLStore(db), db, nil
}
