package admitme

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenExpiration is used when no expiration is configured
const DefaultTokenExpiration = 24 * time.Hour

// TokenService signs and verifies session tokens
type TokenService struct {
	signingKey      []byte
	tokenExpiration time.Duration
	issuer          string
	logger          Logger
	now             func() time.Time
}

// TokenServiceOption configures a TokenService
type TokenServiceOption func(*TokenService)

// WithClock overrides the wall clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithIssuer sets the iss claim and requires it on validation.
func WithIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenService) {
		ts.issuer = issuer
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, tokenExpiration time.Duration, opts ...TokenServiceOption) *TokenService {
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpiration
	}

	ts := &TokenService{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		logger:          defLogger{},
		now:             time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// NewTokenServiceFromConfig builds a TokenService from the auth config
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) *TokenService {
	opts = append([]TokenServiceOption{WithIssuer(cfg.GetIssuer())}, opts...)
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenExpiration(), opts...)
}

// TokenExpiration returns the default token lifetime
func (ts *TokenService) TokenExpiration() time.Duration {
	return ts.tokenExpiration
}

// Issue signs a session token for the given identity payload. A zero ttl
// uses the configured expiration.
func (ts *TokenService) Issue(email, name string, ttl time.Duration) (string, time.Time, error) {
	return ts.SignClaims(NewSessionClaims(email, name), ttl)
}

// SignClaims stamps iat/exp on claims and signs them.
func (ts *TokenService) SignClaims(claims *SessionClaims, ttl time.Duration) (string, time.Time, error) {
	if claims == nil {
		return "", time.Time{}, errors.New("claims must not be nil", errors.CategoryBadInput)
	}

	if len(ts.signingKey) == 0 {
		return "", time.Time{}, ErrSigningKeyMissing
	}

	if ttl < 0 {
		return "", time.Time{}, errors.New("token TTL must be non-negative", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	if ttl == 0 {
		ttl = ts.tokenExpiration
	}

	issuedAt := ts.now()
	expiresAt := issuedAt.Add(ttl)

	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	if claims.RegisteredClaims.Issuer == "" {
		claims.RegisteredClaims.Issuer = ts.issuer
	}
	if claims.RegisteredClaims.Subject == "" {
		claims.RegisteredClaims.Subject = claims.UserEmail
	}
	if claims.RegisteredClaims.ID == "" {
		claims.RegisteredClaims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	// NumericDate truncates to seconds, report what the token carries
	return signedString, claims.RegisteredClaims.ExpiresAt.Time, nil
}

// Validate parses and validates a token string, returning structured claims.
// Failures carry a VerificationReason.
func (ts *TokenService) Validate(tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, NewVerificationError(ReasonMissing, nil)
	}

	if len(ts.signingKey) == 0 {
		return nil, ErrSigningKeyMissing
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		reason := classifyParseError(tokenString, err)
		ts.logger.Debug("TokenService validate rejected token", "reason", reason, "error", err)
		return nil, NewVerificationError(reason, err)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, NewVerificationError(ReasonMalformed, ErrUnableToDecodeSession)
}

func classifyParseError(tokenString string, err error) VerificationReason {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		if signatureUndecodable(tokenString) {
			return ReasonBadSignature
		}
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	default:
		return ReasonMalformed
	}
}

// signatureUndecodable reports whether header and claims decode but the
// signature segment does not. Such a token was well formed before its
// signature was altered.
func signatureUndecodable(tokenString string) bool {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return false
	}

	parser := jwt.NewParser(jwt.WithStrictDecoding())
	for _, seg := range parts[:2] {
		if _, err := parser.DecodeSegment(seg); err != nil {
			return false
		}
	}

	_, err := parser.DecodeSegment(parts[2])
	return err != nil
}

// IssueToken signs claims with secret, expiring ttl from now.
func IssueToken(claims *SessionClaims, secret []byte, ttl time.Duration) (string, time.Time, error) {
	return NewTokenService(secret, ttl).SignClaims(claims, ttl)
}

// VerifyToken checks token against secret and returns its claims.
func VerifyToken(token string, secret []byte) (AuthClaims, error) {
	return NewTokenService(secret, 0).Validate(token)
}
