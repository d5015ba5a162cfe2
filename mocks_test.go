package admitme_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/admitme/admitme-server"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testSecret = "test-signing-key"

// MockLogger implements admitme.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// MockUserStore implements the controller and role provider store contracts
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*admitme.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*admitme.User)
	return user, args.Error(1)
}

func (m *MockUserStore) List(ctx context.Context, offset, limit int) ([]*admitme.User, error) {
	args := m.Called(ctx, offset, limit)
	users, _ := args.Get(0).([]*admitme.User)
	return users, args.Error(1)
}

func (m *MockUserStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUserStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// testConfig implements admitme.Config
type testConfig struct {
	secret        string
	ttl           time.Duration
	production    bool
	exposeToken   bool
	lookupSession bool
	storeTimeout  time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{
		secret:       testSecret,
		ttl:          24 * time.Hour,
		exposeToken:  true,
		storeTimeout: time.Second,
	}
}

func (c *testConfig) GetSigningKey() string             { return c.secret }
func (c *testConfig) GetIssuer() string                 { return "admitme-test" }
func (c *testConfig) GetTokenExpiration() time.Duration { return c.ttl }
func (c *testConfig) GetContextKey() string             { return "user" }
func (c *testConfig) GetTokenLookup() string            { return "cookie:token" }
func (c *testConfig) GetCookieName() string             { return "token" }
func (c *testConfig) GetStoreTimeout() time.Duration    { return c.storeTimeout }
func (c *testConfig) IsProduction() bool                { return c.production }
func (c *testConfig) ExposeToken() bool                 { return c.exposeToken }
func (c *testConfig) UserLookupRequiresSession() bool   { return c.lookupSession }

// fakeClock is a settable clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []admitme.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, e admitme.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []admitme.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]admitme.ActivityEvent(nil), s.events...)
}

// newRouterServer returns a fiber backed router with the package error handler
func newRouterServer() router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath: true,
			ErrorHandler: admitme.ErrorHandler(nopLogger{}),
		}))
	})
}

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.NewCreateTable().Model((*admitme.User)(nil)).IfNotExists().Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewCreateIndex().Model((*admitme.User)(nil)).
		Index("idx_users_role").
		Column("role").
		IfNotExists().
		Exec(ctx)
	require.NoError(t, err)

	return db
}

func seedUser(t *testing.T, users admitme.Users, email string, role admitme.UserRole) *admitme.User {
	t.Helper()
	user, err := users.Create(context.Background(), &admitme.User{
		Email: email,
		Name:  email,
		Role:  role,
	})
	require.NoError(t, err)
	return user
}
