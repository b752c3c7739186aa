package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates new user", func(t *testing.T) {
		store := newFakeUserStore()
		users := NewUsers(store, testLogger())

		id := "alice"
		name := "Alice"
		user, created, err := users.GetOrCreate(ctx, &id, &name)
		require.NoError(t, err)
		assert.True(t, created)
		require.NotNil(t, user.DisplayName)
		assert.Equal(t, "Alice", *user.DisplayName)
	})

	t.Run("returns existing user and touches", func(t *testing.T) {
		store := newFakeUserStore()
		users := NewUsers(store, testLogger())

		id := "bob"
		_, created, err := users.GetOrCreate(ctx, &id, nil)
		require.NoError(t, err)
		require.True(t, created)

		_, created, err = users.GetOrCreate(ctx, &id, nil)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, 1, store.touched["bob"])
	})

	t.Run("allocates uuid when id absent", func(t *testing.T) {
		store := newFakeUserStore()
		users := NewUsers(store, testLogger())

		user, created, err := users.GetOrCreate(ctx, nil, nil)
		require.NoError(t, err)
		assert.True(t, created)

		_, err = uuid.Parse(user.ID.ID.(string))
		assert.NoError(t, err, "generated ID is a UUID")
	})

	t.Run("blank id treated as absent", func(t *testing.T) {
		store := newFakeUserStore()
		users := NewUsers(store, testLogger())

		blank := "   "
		user, created, err := users.GetOrCreate(ctx, &blank, nil)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, "   ", user.ID.ID)
	})
}

func TestUsersGet(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	users := NewUsers(store, testLogger())

	_, err := users.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	id := "carol"
	_, _, err = users.GetOrCreate(ctx, &id, nil)
	require.NoError(t, err)

	user, err := users.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.ID.ID)
}

func TestUsersDelete(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	users := NewUsers(store, testLogger())

	t.Run("missing user", func(t *testing.T) {
		_, err := users.Delete(ctx, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("removes user and reports memory count", func(t *testing.T) {
		id := "dave"
		_, _, err := users.GetOrCreate(ctx, &id, nil)
		require.NoError(t, err)
		store.deleted = 7

		removed, err := users.Delete(ctx, "dave")
		require.NoError(t, err)
		assert.Equal(t, 7, removed)

		_, err = users.Get(ctx, "dave")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
