package admitme

import (
	"context"

	"github.com/admitme/admitme-server/middleware/jwtware"
	"github.com/goliatone/go-router"
)

var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims stored by the session middleware
func GetRouterClaims(c router.Context, key string) (AuthClaims, bool) {
	raw, ok := jwtware.ClaimsFromLocals(c, key)
	if !ok {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// SessionIdentity resolves the identity placed on the request by the session
// middleware. It is the resolver the role middleware depends on.
func SessionIdentity(key string) func(c router.Context) (string, bool) {
	return func(c router.Context) (string, bool) {
		claims, ok := GetRouterClaims(c, key)
		if !ok {
			return "", false
		}
		email := claims.Email()
		return email, email != ""
	}
}
