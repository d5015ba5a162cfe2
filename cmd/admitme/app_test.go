package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/admitme/admitme-server"
	"github.com/admitme/admitme-server/config"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.LoadWith(ctx, envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "app-test-secret",
		"DB_DSN":     "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
	}))
	require.NoError(t, err)

	app, err := buildApp(ctx, cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	require.NoError(t, app.Migrate(ctx))
	return app
}

func send(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body := admitme.ErrorResponse{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Message
}

func TestServer(t *testing.T) {
	app := newTestApp(t)
	srv, err := app.Server()
	require.NoError(t, err)
	fapp := srv.WrappedRouter()

	require.NoError(t, createUser(context.Background(), app, io.Discard, admitme.CreateUserMessage{
		Email: "admin@example.com",
		Role:  admitme.RoleAdmin,
	}))

	t.Run("liveness", func(t *testing.T) {
		resp := send(t, fapp, httptest.NewRequest(fiber.MethodGet, "/", nil))
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("missing session is unauthorized", func(t *testing.T) {
		resp := send(t, fapp, httptest.NewRequest(fiber.MethodGet, "/api/admin/users", nil))
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Unauthorized access", errorMessage(t, resp))
	})

	t.Run("non admin is forbidden", func(t *testing.T) {
		token, _, err := app.Tokens.Issue("someone@example.com", "", 0)
		require.NoError(t, err)

		req := httptest.NewRequest(fiber.MethodGet, "/api/admin/users", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		resp := send(t, fapp, req)
		require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Forbidden access", errorMessage(t, resp))
	})

	t.Run("admin lists users", func(t *testing.T) {
		token, _, err := app.Tokens.Issue("Admin@Example.com", "", 0)
		require.NoError(t, err)

		req := httptest.NewRequest(fiber.MethodGet, "/api/admin/users", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		resp := send(t, fapp, req)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := admitme.UserListResponse{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 1, body.UserCount)
	})

	t.Run("bad paging is a client error", func(t *testing.T) {
		token, _, err := app.Tokens.Issue("admin@example.com", "", 0)
		require.NoError(t, err)

		req := httptest.NewRequest(fiber.MethodGet, "/api/admin/users?page=922337203685477581&size=10", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		resp := send(t, fapp, req)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid page parameter", errorMessage(t, resp))
	})

	t.Run("unknown route renders json", func(t *testing.T) {
		resp := send(t, fapp, httptest.NewRequest(fiber.MethodGet, "/api/universities", nil))
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.NotEmpty(t, errorMessage(t, resp))
	})

	t.Run("cors allows configured origins", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp := send(t, fapp, req)
		assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

		req = httptest.NewRequest(fiber.MethodOptions, "/api/jwt", nil)
		req.Header.Set("Origin", "https://admitmehq.web.app")
		req.Header.Set("Access-Control-Request-Method", fiber.MethodPost)
		resp = send(t, fapp, req)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "https://admitmehq.web.app", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("cors ignores other origins", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		resp := send(t, fapp, req)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("metrics count rejections", func(t *testing.T) {
		resp := send(t, fapp, httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "admitme_session_rejections_total")
		assert.Contains(t, string(raw), "admitme_auth_events_total")
	})
}

func TestUserCommands(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	out := &bytes.Buffer{}
	require.NoError(t, createUser(ctx, app, out, admitme.CreateUserMessage{
		Email: "Grace@Example.com",
		Name:  "Grace",
	}))
	assert.Equal(t, "user grace@example.com added with role user\n", out.String())

	err := createUser(ctx, app, io.Discard, admitme.CreateUserMessage{Email: "grace@example.com"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict))

	out.Reset()
	require.NoError(t, setRole(ctx, app, out, admitme.SetRoleMessage{
		Email: "grace@example.com",
		Role:  admitme.RoleAdmin,
	}))
	assert.Equal(t, "user grace@example.com now has role admin\n", out.String())

	user, err := app.Repo.Users().GetByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	err = setRole(ctx, app, io.Discard, admitme.SetRoleMessage{
		Email: "nobody@example.com",
		Role:  admitme.RoleAdmin,
	})
	assert.Error(t, err)
}

func TestUsersAddRejectsUnknownRole(t *testing.T) {
	require.NoError(t, usersAddCmd.Flags().Set("role", "root"))
	t.Cleanup(func() { _ = usersAddCmd.Flags().Set("role", admitme.RoleUser) })

	err := usersAddCmd.RunE(usersAddCmd, []string{"heidi@example.com"})
	require.Error(t, err)
}
