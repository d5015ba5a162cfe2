package admitme

import (
	"context"

	"github.com/admitme/admitme-server/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use admitme helpers directly.
type ValidationListener = jwtware.ValidationListener

// JWTValidator adapts a TokenValidator to the jwtware contract.
func JWTValidator(v TokenValidator) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(tokenString string) (jwtware.AuthClaims, error) {
		claims, err := v.Validate(tokenString)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// ContextEnricherAdapter stores the session claims in the standard context.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
