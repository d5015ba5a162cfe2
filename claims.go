package admitme

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the decoded session token payload
type AuthClaims interface {
	Subject() string
	Email() string
	Name() string
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete implementation of AuthClaims
type SessionClaims struct {
	jwt.RegisteredClaims
	UserEmail string `json:"email"`
	UserName  string `json:"name,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*SessionClaims)(nil)

// NewSessionClaims builds claims for the given identity payload. The email is
// kept as supplied apart from surrounding space; lookups normalize it.
func NewSessionClaims(email, name string) *SessionClaims {
	email = strings.TrimSpace(email)
	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: email,
		},
		UserEmail: email,
		UserName:  strings.TrimSpace(name),
	}
}

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Email returns the identity claim, falling back to the subject
func (c *SessionClaims) Email() string {
	if c.UserEmail != "" {
		return c.UserEmail
	}
	return c.Subject()
}

// Name returns the optional display name
func (c *SessionClaims) Name() string {
	return c.UserName
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// NormalizeEmail lower cases and trims an email so lookups are case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
