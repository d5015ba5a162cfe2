package admitme

import (
	"context"
	"fmt"

	"github.com/admitme/admitme-server/middleware/roleware"
)

// UserFinder is the store lookup the role provider needs
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserRoleProvider resolves the role flag stored for an email. Unknown
// identities are reported as roleware.ErrNoRecord so the gate answers 403.
type UserRoleProvider struct {
	store  UserFinder
	logger Logger
}

var _ roleware.RoleProvider = (*UserRoleProvider)(nil)

// NewUserRoleProvider will create a new UserRoleProvider
func NewUserRoleProvider(store UserFinder) *UserRoleProvider {
	return &UserRoleProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserRoleProvider) WithLogger(l Logger) *UserRoleProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// FindRole returns the role stored for identity. Session claims keep the
// email as the client sent it, so the lookup key is normalized here.
func (u *UserRoleProvider) FindRole(ctx context.Context, identity string) (UserRole, error) {
	email := NormalizeEmail(identity)
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFoundError(err) {
			u.logger.Debug("role lookup found no record", "email", email)
			return "", fmt.Errorf("%w: %w", roleware.ErrNoRecord, err)
		}
		u.logger.Error("role lookup failed", "email", email, "error", err)
		return "", err
	}
	return user.Role, nil
}
