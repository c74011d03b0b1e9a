package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSearch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	fid := env.seedFoundation(t, "acme")
	otherFid := env.seedFoundation(t, "umbrella")

	alice := seedUser(t, env.UserRepo, fid, "alice@acme.org", "Alice", "Adams")
	bob := seedUser(t, env.UserRepo, fid, "bob@acme.org", "Bob", "Brown")
	bobby := seedUser(t, env.UserRepo, fid, "bobby@acme.org", "Bobby", "Bright")
	stranger := seedUser(t, env.UserRepo, otherFid, "bob@umbrella.org", "Bob", "Foreign")

	t.Run("MatchesByName", func(t *testing.T) {
		found, err := env.Users.Search(ctx, alice.ID, fid, "bob")
		require.NoError(t, err)
		ids := make([]int64, 0, len(found))
		for _, u := range found {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []int64{bob.ID, bobby.ID}, ids)
		assert.NotContains(t, ids, stranger.ID, "other foundations stay invisible")
	})

	t.Run("MatchesByEmail", func(t *testing.T) {
		found, err := env.Users.Search(ctx, alice.ID, fid, "bobby@acme")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, bobby.ID, found[0].ID)
	})

	t.Run("ExcludesCaller", func(t *testing.T) {
		found, err := env.Users.Search(ctx, bob.ID, fid, "b")
		require.NoError(t, err)
		for _, u := range found {
			assert.NotEqual(t, bob.ID, u.ID)
		}
	})

	t.Run("ExcludesDeletedUsers", func(t *testing.T) {
		require.NoError(t, env.Users.SoftDelete(ctx, bobby.ID))
		found, err := env.Users.Search(ctx, alice.ID, fid, "bobby")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("UnknownCallerGetsEmptyList", func(t *testing.T) {
		found, err := env.Users.Search(ctx, 9999, fid, "bob")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("ForeignCallerGetsEmptyList", func(t *testing.T) {
		found, err := env.Users.Search(ctx, stranger.ID, fid, "bob")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}
