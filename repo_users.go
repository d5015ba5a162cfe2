package admitme

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user store
type Users interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	SetRole(ctx context.Context, email string, role UserRole) (*User, error)
	SetRoleTx(ctx context.Context, tx bun.IDB, email string, role UserRole) (*User, error)
	Ping(ctx context.Context) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isRecordNotFound(err) {
			return nil, notFound(email)
		}
		return nil, NewUpstreamError(err, "users.get_by_email")
	}

	return record, nil
}

func (a *users) List(ctx context.Context, offset, limit int) ([]*User, error) {
	records := make([]*User, 0, limit)
	err := a.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.email ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)

	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return nil, NewUpstreamError(err, "users.list")
	}

	return records, nil
}

func (a *users) Count(ctx context.Context) (int, error) {
	count, err := a.db.NewSelect().Model((*User)(nil)).Count(ctx)
	if err != nil {
		return 0, NewUpstreamError(err, "users.count")
	}
	return count, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	if record == nil {
		return nil, errors.New("user record is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	prepareUserDefaults(record)

	if !IsValidRole(record.Role) {
		return nil, errors.New("unknown role", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"role": record.Role})
	}

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user").
			WithMetadata(map[string]any{"email": record.Email})
	}
	return created, nil
}

func (a *users) SetRole(ctx context.Context, email string, role UserRole) (*User, error) {
	var out *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := a.SetRoleTx(ctx, tx, email, role)
		out = record
		return err
	})
	return out, err
}

func (a *users) SetRoleTx(ctx context.Context, tx bun.IDB, email string, role UserRole) (*User, error) {
	if !IsValidRole(role) {
		return nil, errors.New("unknown role", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"role": role})
	}

	record, err := a.GetByEmailTx(ctx, tx, email)
	if err != nil {
		return nil, err
	}

	record.Role = role
	_, err = tx.NewUpdate().
		Model(record).
		Column("role", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, NewUpstreamError(err, "users.set_role")
	}

	return record, nil
}

func (a *users) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return NewUpstreamError(err, "users.ping")
	}
	return nil
}

func isRecordNotFound(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

func notFound(email string) *errors.Error {
	return ErrIdentityNotFound.Clone().WithMetadata(map[string]any{
		"email": NormalizeEmail(email),
	})
}
