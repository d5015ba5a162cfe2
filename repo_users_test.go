package admitme_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/admitme/admitme-server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	users := admitme.NewRepositoryManager(setupTestDB(t)).Users()

	created, err := users.Create(ctx, &admitme.User{
		Email:    " Grace@Example.COM ",
		Name:     "Grace",
		PhotoURL: "https://example.com/grace.png",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "grace@example.com", created.Email)
	assert.Equal(t, admitme.RoleUser, created.Role)

	found, err := users.GetByEmail(ctx, "GRACE@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Grace", found.Name)
	assert.Equal(t, "https://example.com/grace.png", found.PhotoURL)
	assert.False(t, found.IsAdmin())
}

func TestUsersRepository_GetUnknown(t *testing.T) {
	users := admitme.NewRepositoryManager(setupTestDB(t)).Users()

	user, err := users.GetByEmail(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, admitme.IsNotFoundError(err))
	assert.False(t, admitme.IsUpstreamError(err))
}

func TestUsersRepository_CreateRejectsDuplicatesAndBadRoles(t *testing.T) {
	ctx := context.Background()
	users := admitme.NewRepositoryManager(setupTestDB(t)).Users()

	seedUser(t, users, "heidi@example.com", admitme.RoleUser)

	_, err := users.Create(ctx, &admitme.User{Email: "HEIDI@example.com"})
	assert.Error(t, err)

	_, err = users.Create(ctx, &admitme.User{Email: "ivan@example.com", Role: "owner"})
	assert.Error(t, err)
}

func TestUsersRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	users := admitme.NewRepositoryManager(setupTestDB(t)).Users()

	for i := 0; i < 25; i++ {
		seedUser(t, users, fmt.Sprintf("user%02d@example.com", i), admitme.RoleUser)
	}

	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, count)

	first, err := users.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.Equal(t, "user00@example.com", first[0].Email)
	assert.Equal(t, "user09@example.com", first[9].Email)

	last, err := users.List(ctx, 20, 10)
	require.NoError(t, err)
	require.Len(t, last, 5)
	assert.Equal(t, "user24@example.com", last[4].Email)

	empty, err := users.List(ctx, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUsersRepository_SetRole(t *testing.T) {
	ctx := context.Background()
	users := admitme.NewRepositoryManager(setupTestDB(t)).Users()
	seedUser(t, users, "judy@example.com", admitme.RoleUser)

	updated, err := users.SetRole(ctx, "Judy@example.com", admitme.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())

	found, err := users.GetByEmail(ctx, "judy@example.com")
	require.NoError(t, err)
	assert.Equal(t, admitme.RoleAdmin, found.Role)

	_, err = users.SetRole(ctx, "judy@example.com", "root")
	assert.Error(t, err)

	_, err = users.SetRole(ctx, "nobody@example.com", admitme.RoleAdmin)
	assert.True(t, admitme.IsNotFoundError(err))
}

func TestUsersRepository_StoreFailureIsUpstream(t *testing.T) {
	db := setupTestDB(t)
	users := admitme.NewRepositoryManager(db).Users()
	require.NoError(t, db.Close())

	_, err := users.GetByEmail(context.Background(), "kate@example.com")
	require.Error(t, err)
	assert.True(t, admitme.IsUpstreamError(err))

	assert.Error(t, users.Ping(context.Background()))
}

func TestRepositoryManager_Validate(t *testing.T) {
	mngr := admitme.NewRepositoryManager(setupTestDB(t))
	assert.NoError(t, mngr.Validate())
	assert.NotPanics(t, mngr.MustValidate)
}
