package admitme

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Name          string     `bun:"name" json:"name,omitempty"`
	PhotoURL      string     `bun:"photo_url" json:"photoURL,omitempty"`
	Role          UserRole   `bun:"role,notnull,default:'user'" json:"role"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*User)(nil)

// BeforeAppendModel keeps email lower cased and timestamps current
func (u *User) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		prepareUserDefaults(u)
		if u.CreatedAt == nil {
			u.CreatedAt = &now
		}
		u.UpdatedAt = &now
	case *bun.UpdateQuery:
		u.Email = NormalizeEmail(u.Email)
		u.UpdatedAt = &now
	}
	return nil
}

// IsAdmin reports whether the stored role flag is admin
func (u *User) IsAdmin() bool {
	return u != nil && IsAdmin(u.Role)
}

func prepareUserDefaults(u *User) {
	if u == nil {
		return
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
}
