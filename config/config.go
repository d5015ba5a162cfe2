// Package config loads the server settings from the environment.
package config

import (
	"context"
	"strings"
	"time"

	"github.com/admitme/admitme-server"
	"github.com/admitme/admitme-server/repository"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

const EnvProduction = "production"

// Config holds runtime configuration for the admitme server.
type Config struct {
	Port                 int           `env:"PORT, default=5000"`
	AppEnv               string        `env:"APP_ENV, default=development"`
	JWTSecret            string        `env:"JWT_SECRET, required"`
	TokenTTL             time.Duration `env:"TOKEN_TTL, default=24h"`
	TokenIssuer          string        `env:"TOKEN_ISSUER, default=admitme"`
	CookieName           string        `env:"COOKIE_NAME, default=token"`
	ExposeRawToken       bool          `env:"EXPOSE_TOKEN, default=true"`
	DBDriver             string        `env:"DB_DRIVER, default=sqlite"`
	DBDSN                string        `env:"DB_DSN"`
	DBUser               string        `env:"DB_USER"`
	DBPass               string        `env:"DB_PASS"`
	DBHost               string        `env:"DB_HOST"`
	DBName               string        `env:"DB_NAME"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT, default=5s"`
	AllowedOrigins       []string      `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:5173,https://admitmehq.web.app,https://admitmehq.firebaseapp.com"`
	UserLookupNeedsLogin bool          `env:"USER_LOOKUP_REQUIRES_SESSION, default=false"`
	LogLevel             string        `env:"LOG_LEVEL, default=info"`
	LogPretty            bool          `env:"LOG_PRETTY, default=false"`
}

var _ admitme.Config = (*Config)(nil)

// Load returns a Config populated from environment variables. A .env file in
// the working directory, when present, seeds variables that are not set.
func Load(ctx context.Context, files ...string) (*Config, error) {
	_ = godotenv.Load(files...)
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith resolves the config from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to load config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be blank", errors.CategoryValidation)
	}

	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive", errors.CategoryValidation).
			WithMetadata(map[string]any{"token_ttl": c.TokenTTL.String()})
	}

	switch c.Driver() {
	case repository.DriverSQLite, repository.DriverPostgres:
	default:
		return errors.New("DB_DRIVER must be sqlite or postgres", errors.CategoryValidation).
			WithMetadata(map[string]any{"driver": c.DBDriver})
	}

	if c.Driver() == repository.DriverPostgres && c.DBDSN == "" && c.DBHost == "" {
		return errors.New("postgres needs DB_DSN or DB_HOST", errors.CategoryValidation)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "LOG_LEVEL is not a valid level")
	}

	return nil
}

// Driver returns the normalized store driver.
func (c *Config) Driver() string {
	d := strings.ToLower(strings.TrimSpace(c.DBDriver))
	if d == "" {
		return repository.DriverSQLite
	}
	return d
}

// DSN returns DB_DSN, or composes one from the DB_* parts.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.Driver() == repository.DriverPostgres {
		return repository.PostgresDSN(c.DBUser, c.DBPass, c.DBHost, c.DBName)
	}
	return "file:admitme.db?cache=shared"
}

func (c *Config) GetSigningKey() string {
	return c.JWTSecret
}

func (c *Config) GetIssuer() string {
	return c.TokenIssuer
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.TokenTTL
}

func (c *Config) GetContextKey() string {
	return "user"
}

func (c *Config) GetTokenLookup() string {
	return "cookie:" + c.GetCookieName()
}

func (c *Config) GetCookieName() string {
	if c.CookieName == "" {
		return "token"
	}
	return c.CookieName
}

func (c *Config) GetStoreTimeout() time.Duration {
	return c.StoreTimeout
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction)
}

func (c *Config) ExposeToken() bool {
	return c.ExposeRawToken
}

func (c *Config) UserLookupRequiresSession() bool {
	return c.UserLookupNeedsLogin
}
