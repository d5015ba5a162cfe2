package admitme

import (
	"context"
	"math"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// UserStore is the read side of the user store used by the handlers
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email string `json:"email" form:"email"`
	Name  string `json:"name" form:"name"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Name, validation.Length(0, 200)),
	)
}

// ActionResponse is the body of login and logout replies
type ActionResponse struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

// UserListResponse is one page of the admin listing
type UserListResponse struct {
	Users     []*User `json:"users"`
	UserCount int     `json:"userCount"`
	Page      int     `json:"page"`
	Size      int     `json:"size"`
}

type HTTPControllerRoutes struct {
	Prefix     string
	Login      string
	Logout     string
	AdminUsers string
	CheckAdmin string
	User       string
}

type HTTPController struct {
	Logger       Logger
	Config       Config
	Users        UserStore
	Auther       *RouteAuthenticator
	Routes       *HTTPControllerRoutes
	ErrorHandler router.ErrorHandler
}

type HTTPControllerOption func(*HTTPController) *HTTPController

func WithControllerLogger(l Logger) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerErrorHandler(h router.ErrorHandler) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.ErrorHandler = h
		return c
	}
}

func WithControllerConfig(cfg Config) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Config = cfg
		return c
	}
}

func WithControllerUsers(store UserStore) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Users = store
		return c
	}
}

func WithControllerAuthenticator(a *RouteAuthenticator) HTTPControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Auther = a
		return c
	}
}

func NewHTTPController(opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Logger: defLogger{},
		Routes: &HTTPControllerRoutes{
			Prefix:     "/api",
			Login:      "/jwt",
			Logout:     "/logout",
			AdminUsers: "/admin/users",
			CheckAdmin: "/users/admin/:email",
			User:       "/users/:email",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Config == nil {
		panic("Missing Config in admitme controller...")
	}

	if c.Users == nil {
		panic("Missing UserStore in admitme controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in admitme controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = RenderError(c.Logger)
	}

	return c
}

// RegisterRoutes mounts the API on app.
func RegisterRoutes[T any](app router.Router[T], opts ...HTTPControllerOption) *HTTPController {
	controller := NewHTTPController(opts...)

	app.Get("/", controller.Liveness).SetName("liveness.get")
	app.Get("/health", controller.Health).SetName("health.get")

	api := app.Group(controller.Routes.Prefix)

	api.Post(controller.Routes.Login, controller.Login).
		SetName("login.post")
	api.Post(controller.Routes.Logout, controller.Logout).
		SetName("logout.post")

	api.Get(controller.Routes.AdminUsers, controller.ListUsers, controller.Auther.AdminRoutes()...).
		SetName("admin-users.get")

	api.Get(controller.Routes.CheckAdmin, controller.CheckAdmin, controller.Auther.SessionRoute()).
		SetName("users-admin.get")

	if controller.Config.UserLookupRequiresSession() {
		api.Get(controller.Routes.User, controller.GetUser, controller.Auther.SessionRoute()).
			SetName("users.get")
	} else {
		api.Get(controller.Routes.User, controller.GetUser).
			SetName("users.get")
	}

	return controller
}

func (h *HTTPController) Liveness(ctx router.Context) error {
	return ctx.SendString("admitMe Server is running...")
}

func (h *HTTPController) Health(ctx router.Context) error {
	storeCtx, cancel := h.storeContext(ctx)
	defer cancel()

	if err := h.Users.Ping(storeCtx); err != nil {
		return h.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPController) Login(ctx router.Context) error {
	payload := LoginRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return h.ErrorHandler(ctx, errors.New("invalid login payload", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		h.Logger.Debug("Login payload rejected", "error", err)
		return h.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest))
	}

	token, err := h.Auther.Login(ctx, payload.Email, payload.Name)
	if err != nil {
		return h.ErrorHandler(ctx, err)
	}

	res := ActionResponse{Action: "login", Success: true}
	if h.Config.ExposeToken() {
		res.Token = token
	}

	return ctx.JSON(router.StatusOK, res)
}

func (h *HTTPController) Logout(ctx router.Context) error {
	h.Auther.Logout(ctx)
	return ctx.JSON(router.StatusOK, ActionResponse{Action: "logout", Success: true})
}

func (h *HTTPController) GetUser(ctx router.Context) error {
	email, err := emailParam(ctx)
	if err != nil {
		return h.ErrorHandler(ctx, err)
	}

	storeCtx, cancel := h.storeContext(ctx)
	defer cancel()

	user, err := h.Users.GetByEmail(storeCtx, email)
	if err != nil {
		return h.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

func (h *HTTPController) CheckAdmin(ctx router.Context) error {
	email, err := emailParam(ctx)
	if err != nil {
		return h.ErrorHandler(ctx, err)
	}

	storeCtx, cancel := h.storeContext(ctx)
	defer cancel()

	user, err := h.Users.GetByEmail(storeCtx, email)
	if err != nil {
		if IsNotFoundError(err) {
			return ctx.JSON(router.StatusOK, map[string]bool{"admin": false})
		}
		return h.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]bool{"admin": user.IsAdmin()})
}

func (h *HTTPController) ListUsers(ctx router.Context) error {
	page, err := queryInt(ctx, "page", 0)
	if err != nil {
		return h.ErrorHandler(ctx, err)
	}

	size, err := queryInt(ctx, "size", DefaultPageSize)
	if err != nil {
		return h.ErrorHandler(ctx, err)
	}

	if size == 0 {
		size = DefaultPageSize
	}

	if size > MaxPageSize {
		size = MaxPageSize
	}

	if page > math.MaxInt/size {
		return h.ErrorHandler(ctx, invalidQuery("page", ctx.Query("page")))
	}

	storeCtx, cancel := h.storeContext(ctx)
	defer cancel()

	users, err := h.Users.List(storeCtx, page*size, size)
	if err != nil {
		return h.ErrorHandler(ctx, err)
	}

	count, err := h.Users.Count(storeCtx)
	if err != nil {
		return h.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, UserListResponse{
		Users:     users,
		UserCount: count,
		Page:      page,
		Size:      size,
	})
}

func (h *HTTPController) storeContext(ctx router.Context) (context.Context, context.CancelFunc) {
	timeout := h.Config.GetStoreTimeout()
	if timeout <= 0 {
		return context.WithCancel(ctx.Context())
	}
	return context.WithTimeout(ctx.Context(), timeout)
}

func emailParam(ctx router.Context) (string, error) {
	raw, err := url.PathUnescape(ctx.Param("email"))
	if err != nil || raw == "" {
		return "", errors.New("invalid email parameter", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}
	return NormalizeEmail(raw), nil
}

func queryInt(ctx router.Context, key string, def int) (int, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return def, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0, invalidQuery(key, raw)
	}

	return val, nil
}

func invalidQuery(key, raw string) *errors.Error {
	return errors.New("invalid "+key+" parameter", errors.CategoryBadInput).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{key: raw})
}
