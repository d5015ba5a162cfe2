package admitme

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/admitme/admitme-server/middleware/jwtware"
	"github.com/admitme/admitme-server/middleware/roleware"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(email, name string, ttl time.Duration) (string, time.Time, error)
}

// SessionTokens issues and validates session tokens
type SessionTokens interface {
	TokenIssuer
	TokenValidator
}

// RouteAuthenticator owns the session cookie and composes the route gates:
// session first, then role.
type RouteAuthenticator struct {
	cfg            Config
	tokens         SessionTokens
	roles          roleware.RoleProvider
	cookieDuration time.Duration
	Logger         Logger
	Activity       ActivitySink
	ErrorHandler   router.ErrorHandler
	listeners      []ValidationListener
	now            func() time.Time
}

func NewHTTPAuthenticator(tokens SessionTokens, roles roleware.RoleProvider, cfg Config) (*RouteAuthenticator, error) {
	if cfg == nil {
		return nil, errors.New("route authenticator needs a config", errors.CategoryInternal)
	}

	if tokens == nil {
		return nil, errors.New("route authenticator needs a token service", errors.CategoryInternal)
	}

	if roles == nil {
		return nil, errors.New("route authenticator needs a role provider", errors.CategoryInternal)
	}

	cookieDuration := DefaultTokenExpiration
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = cfg.GetTokenExpiration()
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		tokens:         tokens,
		roles:          roles,
		cookieDuration: cookieDuration,
		Logger:         defLogger{},
		Activity:       noopActivitySink{},
		now:            time.Now,
	}
	a.ErrorHandler = RenderError(a.Logger)

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(l Logger) *RouteAuthenticator {
	if l != nil {
		a.Logger = l
		a.ErrorHandler = RenderError(l)
	}
	return a
}

// WithErrorHandler replaces the renderer used for rejected requests.
func (a *RouteAuthenticator) WithErrorHandler(h router.ErrorHandler) *RouteAuthenticator {
	if h != nil {
		a.ErrorHandler = h
	}
	return a
}

func (a *RouteAuthenticator) WithActivitySink(s ActivitySink) *RouteAuthenticator {
	a.Activity = normalizeActivitySink(s)
	return a
}

// WithValidationListeners adds checks that run after a token verifies. A
// listener error rejects the request like a bad token.
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.listeners = append(a.listeners, listeners...)
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// SessionRoute rejects requests that do not carry a verifiable session token.
func (a *RouteAuthenticator) SessionRoute() router.MiddlewareFunc {
	cfg := jwtware.Config{
		ErrorHandler:    a.sessionErrHandler,
		ContextKey:      a.cfg.GetContextKey(),
		TokenLookup:     a.cfg.GetTokenLookup(),
		TokenValidator:  JWTValidator(a.tokens),
		ContextEnricher: ContextEnricherAdapter,
	}
	RegisterValidationListeners(&cfg, a.listeners...)
	return jwtware.New(cfg)
}

// AdminRoute requires the session identity to carry the admin flag. It must
// be mounted after SessionRoute.
func (a *RouteAuthenticator) AdminRoute() router.MiddlewareFunc {
	return roleware.New(roleware.Config{
		Identity:      SessionIdentity(a.cfg.GetContextKey()),
		Roles:         a.roles,
		RequiredRole:  RoleAdmin,
		LookupTimeout: a.cfg.GetStoreTimeout(),
		ErrorHandler:  a.roleErrHandler,
	})
}

// AdminRoutes returns the full chain for admin endpoints.
func (a *RouteAuthenticator) AdminRoutes() []router.MiddlewareFunc {
	return []router.MiddlewareFunc{a.SessionRoute(), a.AdminRoute()}
}

// Login issues a token for email and stores it in the session cookie.
func (a *RouteAuthenticator) Login(c router.Context, email, name string) (string, error) {
	token, _, err := a.tokens.Issue(email, name, a.cookieDuration)
	if err != nil {
		a.Logger.Error("Login token error", "error", err)
		return "", err
	}

	a.setCookieToken(c, token, a.cookieDuration)
	a.record(c, ActivityEvent{
		EventType: ActivityEventLogin,
		Email:     NormalizeEmail(email),
	})

	return token, nil
}

// Logout asks the client to drop the session cookie. Tokens are stateless,
// a copy kept by the client stays valid until it expires.
func (a *RouteAuthenticator) Logout(c router.Context) {
	a.cookieDel(c, a.cfg.GetCookieName())
	a.record(c, ActivityEvent{EventType: ActivityEventLogout})
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	cookie := a.baseCookie(a.cfg.GetCookieName())
	cookie.Value = val
	cookie.MaxAge = int(duration.Seconds())
	cookie.Expires = a.now().Add(duration)
	c.Cookie(cookie)
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	cookie := a.baseCookie(name)
	cookie.Expires = a.now().Add(-time.Hour * (24 * 365))
	c.Cookie(cookie)
}

func (a *RouteAuthenticator) baseCookie(name string) *router.Cookie {
	cookie := &router.Cookie{
		Name:     name,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Strict",
	}
	if a.cfg.IsProduction() {
		cookie.Secure = true
		cookie.SameSite = "None"
	}
	return cookie
}

func (a *RouteAuthenticator) sessionErrHandler(c router.Context, err error) error {
	reason, ok := VerificationReasonOf(err)
	if !ok || stderrors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		reason = ReasonMissing
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) || richErr.Category != errors.CategoryAuth {
		richErr = NewVerificationError(reason, err)
	}

	a.Logger.Debug("Session rejected", "reason", reason, "path", c.Path())
	a.record(c, ActivityEvent{
		EventType: ActivityEventSessionRejected,
		Reason:    string(reason),
	})

	return a.ErrorHandler(c, richErr)
}

func (a *RouteAuthenticator) roleErrHandler(c router.Context, err error) error {
	return a.ErrorHandler(c, a.roleError(c, err))
}

func (a *RouteAuthenticator) roleError(c router.Context, err error) error {
	identity, _ := SessionIdentity(a.cfg.GetContextKey())(c)

	switch {
	case stderrors.Is(err, roleware.ErrMissingIdentity):
		return NewVerificationError(ReasonMissing, err)
	case stderrors.Is(err, roleware.ErrRoleDenied):
		a.record(c, ActivityEvent{
			EventType: ActivityEventAccessDenied,
			Email:     NormalizeEmail(identity),
			Reason:    "role",
		})
		clone := ErrForbidden.Clone()
		clone.Source = err
		return clone
	default:
		a.Logger.Error("Role lookup failed", "email", identity, "error", err)
		a.record(c, ActivityEvent{
			EventType: ActivityEventStoreFailure,
			Email:     NormalizeEmail(identity),
			Reason:    "role_lookup",
		})
		if IsUpstreamError(err) {
			var richErr *errors.Error
			errors.As(err, &richErr)
			return richErr
		}
		return NewUpstreamError(err, "roles.find")
	}
}

func (a *RouteAuthenticator) record(c router.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = a.now()
	}
	if event.Route == "" {
		event.Route = c.Path()
	}
	if err := a.Activity.Record(c.Context(), event); err != nil {
		a.Logger.Warn("Activity sink error", "event", event.EventType, "error", err)
	}
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Message string `json:"message"`
}

// RenderError writes err as a JSON error reply. Handlers and middlewares use
// it so replies do not depend on the server's fallback handler.
func RenderError(logger Logger) router.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c router.Context, err error) error {
		status, message := StatusFromError(err)
		logFailure(logger, status, c.Path(), err)
		return c.JSON(status, ErrorResponse{Message: message})
	}
}

// ErrorHandler is the fiber error handler for requests that never reach a
// route: unknown paths, panics and errors returned by fiber middleware.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if stderrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Message: fiberErr.Message})
		}

		status, message := StatusFromError(err)
		logFailure(logger, status, c.Path(), err)
		return c.Status(status).JSON(ErrorResponse{Message: message})
	}
}

func logFailure(logger Logger, status int, path string, err error) {
	if status < http.StatusInternalServerError {
		return
	}

	var richErr *errors.Error
	details := ""
	if errors.As(err, &richErr) {
		details = print.MaybePrettyJSON(richErr.Metadata)
	}

	logger.Error(
		"Request failed",
		"status", status,
		"path", path,
		"error", err,
		"details", details,
	)
}

// StatusFromError maps err to an HTTP status and a client safe message.
func StatusFromError(err error) (int, string) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError, "Internal server error"
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized, "Unauthorized access"
	case errors.CategoryAuthz:
		return http.StatusForbidden, "Forbidden access"
	case errors.CategoryNotFound:
		return http.StatusNotFound, richErr.Message
	case errors.CategoryBadInput, errors.CategoryValidation:
		return http.StatusBadRequest, strings.TrimSpace(richErr.Message)
	}

	if richErr.TextCode == TextCodeUpstream {
		return http.StatusServiceUnavailable, ErrUpstream.Message
	}

	return http.StatusInternalServerError, "Internal server error"
}
