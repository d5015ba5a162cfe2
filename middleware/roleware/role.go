// Package roleware gates routes on the role flag stored for the
// authenticated identity. It must run after the session middleware: the
// identity it checks comes from the IdentityResolver given in Config.
package roleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

const DefaultLookupTimeout = 5 * time.Second

var (
	// ErrMissingIdentity no authenticated identity was found on the request
	ErrMissingIdentity = errors.New("missing authenticated identity")
	// ErrNoRecord the identity has no record in the store
	ErrNoRecord = errors.New("identity has no record")
	// ErrRoleDenied the stored role does not satisfy the requirement
	ErrRoleDenied = errors.New("access denied: required role not found")
	// ErrLookupFailed the store could not answer
	ErrLookupFailed = errors.New("role lookup failed")
)

// IdentityResolver returns the identity placed on the request by the
// session middleware.
type IdentityResolver func(ctx router.Context) (string, bool)

// RoleProvider resolves the role stored for identity. Implementations return
// ErrNoRecord (or an error wrapping it) for unknown identities.
type RoleProvider interface {
	FindRole(ctx context.Context, identity string) (string, error)
}

// RoleProviderFunc adapts a function into a RoleProvider.
type RoleProviderFunc func(ctx context.Context, identity string) (string, error)

// FindRole satisfies RoleProvider.
func (f RoleProviderFunc) FindRole(ctx context.Context, identity string) (string, error) {
	return f(ctx, identity)
}

type Config struct {
	// Identity is required.
	Identity IdentityResolver
	// Roles is required.
	Roles RoleProvider
	// RequiredRole defaults to "admin".
	RequiredRole string
	// LookupTimeout bounds the store lookup. Defaults to DefaultLookupTimeout.
	LookupTimeout  time.Duration
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
}

// New returns the authorization middleware.
func New(config Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			identity, ok := cfg.Identity(ctx)
			if !ok || identity == "" {
				return cfg.ErrorHandler(ctx, ErrMissingIdentity)
			}

			lookupCtx, cancel := context.WithTimeout(ctx.Context(), cfg.LookupTimeout)
			defer cancel()

			role, err := cfg.Roles.FindRole(lookupCtx, identity)
			if err != nil {
				if errors.Is(err, ErrNoRecord) {
					return cfg.ErrorHandler(ctx, fmt.Errorf("%w: %s", ErrRoleDenied, err))
				}
				return cfg.ErrorHandler(ctx, fmt.Errorf("%w: %w", ErrLookupFailed, err))
			}

			if role != cfg.RequiredRole {
				return cfg.ErrorHandler(ctx, fmt.Errorf("%w: '%s'", ErrRoleDenied, cfg.RequiredRole))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func GetDefaultConfig(cfg Config) Config {
	if cfg.Identity == nil {
		panic("ADMITME: role middleware configuration: Identity resolver is required.")
	}

	if cfg.Roles == nil {
		panic("ADMITME: role middleware configuration: RoleProvider is required.")
	}

	if cfg.RequiredRole == "" {
		cfg.RequiredRole = "admin"
	}

	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	switch {
	case errors.Is(err, ErrMissingIdentity):
		return ctx.JSON(router.StatusUnauthorized, map[string]string{"message": "Unauthorized access"})
	case errors.Is(err, ErrRoleDenied):
		return ctx.JSON(router.StatusForbidden, map[string]string{"message": "Forbidden access"})
	default:
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Service unavailable"})
	}
}
