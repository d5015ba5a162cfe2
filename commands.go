package admitme

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const commandTimeout = 10 * time.Second

// CreateUserMessage inserts a user record
type CreateUserMessage struct {
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	PhotoURL string   `json:"photoURL"`
	Role     UserRole `json:"role"`
}

func (e CreateUserMessage) Type() string { return "user.create" }

func (e CreateUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&e.Name, validation.Length(0, 200)),
		validation.Field(&e.PhotoURL, is.URL),
	)
}

// SetRoleMessage changes the role flag of an existing user
type SetRoleMessage struct {
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

func (e SetRoleMessage) Type() string { return "user.set_role" }

var (
	_ command.Commander[CreateUserMessage] = (*CreateUserHandler)(nil)
	_ command.Commander[SetRoleMessage]    = (*SetRoleHandler)(nil)
)

// CreateUserHandler stores new users. An email that already has a record is
// a conflict.
type CreateUserHandler struct {
	repo RepositoryManager
}

func NewCreateUserHandler(repo RepositoryManager) *CreateUserHandler {
	return &CreateUserHandler{repo: repo}
}

func (h *CreateUserHandler) Execute(ctx context.Context, event CreateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateUserHandler) execute(ctx context.Context, event CreateUserMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid user payload").
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users := h.repo.Users()

		existing, err := users.GetByEmailTx(ctx, tx, event.Email)
		if err == nil && existing != nil {
			return goerrors.New("user already exists", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithMetadata(map[string]any{"email": existing.Email})
		}
		if err != nil && !IsNotFoundError(err) {
			return err
		}

		_, err = users.CreateTx(ctx, tx, &User{
			Email:    event.Email,
			Name:     event.Name,
			PhotoURL: event.PhotoURL,
			Role:     event.Role,
		})
		return err
	})

	return commandError(err, "user creation transaction failed")
}

// SetRoleHandler grants or revokes the admin flag
type SetRoleHandler struct {
	repo RepositoryManager
}

func NewSetRoleHandler(repo RepositoryManager) *SetRoleHandler {
	return &SetRoleHandler{repo: repo}
}

func (h *SetRoleHandler) Execute(ctx context.Context, event SetRoleMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during role update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SetRoleHandler) execute(ctx context.Context, event SetRoleMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := h.repo.Users().SetRoleTx(ctx, tx, event.Email, event.Role)
		return err
	})

	return commandError(err, "role update transaction failed")
}

func commandError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
