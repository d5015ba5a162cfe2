// Package repository opens the bun handle backing the user store and runs
// its migrations through the persistence client.
package repository

import (
	"context"
	"database/sql"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultPingTimeout = 5 * time.Second

	migrationsLabel = "data/sql/migrations"
)

// Logger is the logging contract shared with the persistence client
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config describes the store connection. It satisfies the persistence
// client configuration.
type Config struct {
	Driver      string
	DSN         string
	PingTimeout time.Duration
}

func (c Config) GetDebug() bool            { return false }
func (c Config) GetDriver() string         { return normalizeDriver(c.Driver) }
func (c Config) GetServer() string         { return c.DSN }
func (c Config) GetOtelIdentifier() string { return "" }

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return DefaultPingTimeout
	}
	return c.PingTimeout
}

// Option configures the handle returned by Open.
type Option func(*bun.DB)

// WithQueryDebug logs every query to stderr when verbose is set, and only
// failed queries otherwise.
func WithQueryDebug(verbose bool) Option {
	return func(db *bun.DB) {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(verbose),
		))
	}
}

type client interface {
	DB() *bun.DB
	Migrate(ctx context.Context) error
}

// Store wraps the persistence client
type Store struct {
	client client
	driver string
}

// Open connects to the store named by cfg, registers the dialect migrations
// found under migrations and verifies the connection. Migrations are only
// applied by Migrate.
func Open(ctx context.Context, cfg Config, migrations fs.FS, logger Logger, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("database DSN is required", errors.CategoryBadInput)
	}

	driver := normalizeDriver(cfg.Driver)

	var (
		sqldb   *sql.DB
		dialect schema.Dialect
		err     error
	)

	switch driver {
	case DriverSQLite:
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, wrapOpen(err, cfg.Driver)
		}
		if strings.Contains(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory") {
			sqldb.SetMaxOpenConns(1)
		}
		dialect = sqlitedialect.New()
	case DriverPostgres:
		sqldb, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, wrapOpen(err, cfg.Driver)
		}
		dialect = pgdialect.New()
	default:
		return nil, errors.New("unsupported database driver", errors.CategoryBadInput).
			WithMetadata(map[string]any{"driver": cfg.Driver})
	}

	pc, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, wrapOpen(err, cfg.Driver)
	}

	if logger != nil {
		pc.SetLogger(logger)
	}

	if migrations != nil {
		pc.RegisterDialectMigrations(
			migrations,
			persistence.WithDialectSourceLabel(migrationsLabel),
			persistence.WithValidationTargets(DriverPostgres, DriverSQLite),
		)
		if err := pc.ValidateDialects(ctx); err != nil {
			_ = sqldb.Close()
			return nil, errors.Wrap(err, errors.CategoryInternal, "invalid dialect migrations")
		}
	}

	db := pc.DB()
	for _, opt := range opts {
		if opt != nil {
			opt(db)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetPingTimeout())
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, wrapOpen(err, cfg.Driver)
	}

	return &Store{client: pc, driver: driver}, nil
}

// DB returns the bun handle
func (s *Store) DB() *bun.DB {
	return s.client.DB()
}

// Driver returns the normalized driver name
func (s *Store) Driver() string {
	return s.driver
}

// Migrate applies the registered migrations for the store dialect.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.client.Migrate(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to apply migrations").
			WithMetadata(map[string]any{"driver": s.driver})
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB().Close()
}

// PostgresDSN composes a connection string from its parts.
func PostgresDSN(user, pass, host, name string) string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + name,
		RawQuery: "sslmode=prefer",
	}
	if user != "" {
		if pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String()
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite, "sqlite3":
		return DriverSQLite
	case DriverPostgres, "pg", "pgx":
		return DriverPostgres
	}
	return strings.ToLower(strings.TrimSpace(driver))
}

func wrapOpen(err error, driver string) error {
	return errors.Wrap(err, errors.CategoryInternal, "failed to open database").
		WithMetadata(map[string]any{"driver": driver})
}
