package admitme

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// UserRole is the role flag stored on a user record
type UserRole = string

const (
	// RoleUser is the default role for applicants
	RoleUser UserRole = "user"
	// RoleAdmin can reach the admin endpoints
	RoleAdmin UserRole = "admin"
)

// IsValidRole checks if the role is one of the predefined roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether r grants admin access
func IsAdmin(r UserRole) bool {
	return r == RoleAdmin
}

// ParseRole maps free text to a UserRole, empty input means RoleUser
func ParseRole(raw string) (UserRole, error) {
	role := strings.ToLower(strings.TrimSpace(raw))
	if role == "" {
		return RoleUser, nil
	}

	if !IsValidRole(role) {
		return "", errors.New("unknown role", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"role": raw})
	}

	return role, nil
}
