package main

import (
	"context"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/admitme/admitme-server"
	"github.com/admitme/admitme-server/activitymap"
	promsink "github.com/admitme/admitme-server/adapters/prometheus"
	zlog "github.com/admitme/admitme-server/adapters/zerolog"
	"github.com/admitme/admitme-server/config"
	"github.com/admitme/admitme-server/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
)

// App holds the process wide dependencies.
type App struct {
	Config  *config.Config
	Logger  *zlog.Logger
	Store   *repository.Store
	DB      *bun.DB
	Repo    admitme.RepositoryManager
	Tokens  *admitme.TokenService
	Metrics *promsink.Sink
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	if envFile != "" {
		return config.Load(ctx, envFile)
	}
	return config.Load(ctx)
}

// newApp loads config, opens the store and builds the token service.
func newApp(ctx context.Context) (*App, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, os.Stderr)
}

func buildApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	logger := zlog.New(logOut, cfg.LogLevel, cfg.LogPretty)

	var dbOpts []repository.Option
	if strings.EqualFold(cfg.LogLevel, "debug") || strings.EqualFold(cfg.LogLevel, "trace") {
		dbOpts = append(dbOpts, repository.WithQueryDebug(strings.EqualFold(cfg.LogLevel, "trace")))
	}

	migrations, err := fs.Sub(admitme.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, repository.Config{
		Driver:      cfg.Driver(),
		DSN:         cfg.DSN(),
		PingTimeout: cfg.GetStoreTimeout(),
	}, migrations, logger.Named("persistence"), dbOpts...)
	if err != nil {
		return nil, err
	}

	repo := admitme.NewRepositoryManager(store.DB())
	repo.MustValidate()

	tokens := admitme.NewTokenServiceFromConfig(cfg,
		admitme.WithTokenLogger(logger.Named("tokens")),
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		DB:      store.DB(),
		Repo:    repo,
		Tokens:  tokens,
		Metrics: promsink.NewSink(),
	}, nil
}

// Migrate applies the dialect migrations to the store.
func (a *App) Migrate(ctx context.Context) error {
	return a.Store.Migrate(ctx)
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Server builds the HTTP server with every route mounted. Fiber middleware
// and the metrics endpoint sit in front of the API routes.
func (a *App) Server() (router.Server[*fiber.App], error) {
	roles := admitme.NewUserRoleProvider(a.Repo.Users()).
		WithLogger(a.Logger.Named("roles"))

	auther, err := admitme.NewHTTPAuthenticator(a.Tokens, roles, a.Config)
	if err != nil {
		return nil, err
	}
	auther.WithLogger(a.Logger.Named("auth")).WithActivitySink(admitme.MultiActivitySink{
		a.Metrics,
		activitymap.LogSink(a.Logger.Named("activity")),
	})

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "admitme",
			DisableStartupMessage: true,
			UnescapePath:          true,
			ErrorHandler:          admitme.ErrorHandler(a.Logger.Named("http")),
		}))

		app.Use(recover.New())
		app.Use(requestid.New())
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(a.Config.AllowedOrigins, ","),
			AllowCredentials: true,
		}))

		app.Get("/metrics", adaptor.HTTPHandler(a.Metrics.Handler()))

		return app
	})

	srv.Router().WithLogger(a.Logger.Named("router"))

	admitme.RegisterRoutes(srv.Router(),
		admitme.WithControllerConfig(a.Config),
		admitme.WithControllerUsers(a.Repo.Users()),
		admitme.WithControllerAuthenticator(auther),
		admitme.WithControllerLogger(a.Logger.Named("controller")),
	)

	return srv, nil
}
