package admitme_test

import (
	"testing"

	"github.com/admitme/admitme-server"
	"github.com/stretchr/testify/assert"
)

func TestNewSessionClaims(t *testing.T) {
	claims := admitme.NewSessionClaims("  Mallory@Example.COM ", "  Mallory ")

	assert.Equal(t, "Mallory@Example.COM", claims.Email())
	assert.Equal(t, "Mallory@Example.COM", claims.Subject())
	assert.Equal(t, "Mallory", claims.Name())
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())
}

func TestSessionClaimsEmailFallsBackToSubject(t *testing.T) {
	claims := &admitme.SessionClaims{}
	claims.RegisteredClaims.Subject = "niaj@example.com"

	assert.Equal(t, "niaj@example.com", claims.Email())
}

func TestRoles(t *testing.T) {
	role, err := admitme.ParseRole(" ADMIN ")
	assert.NoError(t, err)
	assert.Equal(t, admitme.RoleAdmin, role)
	assert.True(t, admitme.IsAdmin(role))

	role, err = admitme.ParseRole("")
	assert.NoError(t, err)
	assert.Equal(t, admitme.RoleUser, role)

	_, err = admitme.ParseRole("owner")
	assert.Error(t, err)

	assert.False(t, admitme.IsValidRole("guest"))
}

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, (&admitme.User{Email: "olivia@example.com", Role: admitme.RoleAdmin}).IsAdmin())
	assert.False(t, (&admitme.User{Email: "peggy@example.com", Role: admitme.RoleUser}).IsAdmin())
}
