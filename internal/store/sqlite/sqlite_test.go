package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/store/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))
	return db
}

func seed(t *testing.T, db *sql.DB) (int64, []*domain.User) {
	t.Helper()
	ctx := context.Background()

	f := &domain.Foundation{Name: "acme", IsActive: true}
	require.NoError(t, sqlite.NewFoundationRepo(db).Create(ctx, f))

	users := sqlite.NewUserRepo(db)
	var out []*domain.User
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		u := &domain.User{
			FoundationID:   f.ID,
			Email:          name + "@acme.org",
			HashedPassword: "x",
			FirstName:      name,
			LastName:       "Test",
			Role:           "member",
			IsActive:       true,
		}
		require.NoError(t, users.Create(ctx, u))
		out = append(out, u)
	}
	return f.ID, out
}

func TestFindExistingDirect(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fid, users := seed(t, db)
	alice, bob, carol := users[0], users[1], users[2]

	convs := sqlite.NewConversationRepo(db)

	direct := &domain.Conversation{FoundationID: fid, Type: domain.ConversationDirect, CreatedBy: alice.ID}
	require.NoError(t, convs.Create(ctx, direct, []int64{alice.ID, bob.ID}))

	t.Run("MatchesEitherOrder", func(t *testing.T) {
		found, err := convs.FindExistingDirect(ctx, fid, alice.ID, bob.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, direct.ID, found.ID)

		found, err = convs.FindExistingDirect(ctx, fid, bob.ID, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, direct.ID, found.ID)
	})

	t.Run("IgnoresGroupsContainingThePair", func(t *testing.T) {
		group := &domain.Conversation{FoundationID: fid, Type: domain.ConversationGroup, CreatedBy: alice.ID}
		require.NoError(t, convs.Create(ctx, group, []int64{alice.ID, carol.ID, bob.ID}))

		found, err := convs.FindExistingDirect(ctx, fid, alice.ID, carol.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("IgnoresInactive", func(t *testing.T) {
		require.NoError(t, convs.Deactivate(ctx, direct.ID))

		found, err := convs.FindExistingDirect(ctx, fid, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestParticipantInsertionOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fid, users := seed(t, db)
	alice, bob, carol := users[0], users[1], users[2]

	convs := sqlite.NewConversationRepo(db)
	parts := sqlite.NewParticipantRepo(db)

	conv := &domain.Conversation{FoundationID: fid, Type: domain.ConversationGroup, CreatedBy: carol.ID}
	require.NoError(t, convs.Create(ctx, conv, []int64{carol.ID, alice.ID, bob.ID}))

	ids, err := parts.ParticipantIDs(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{carol.ID, alice.ID, bob.ID}, ids)

	members, err := parts.ListParticipants(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, carol.ID, members[0].ID)
}

func TestMarkConversationReadRecomputesFlag(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	fid, users := seed(t, db)
	alice, bob, carol := users[0], users[1], users[2]

	convs := sqlite.NewConversationRepo(db)
	msgs := sqlite.NewMessageRepo(db)

	conv := &domain.Conversation{FoundationID: fid, Type: domain.ConversationGroup, CreatedBy: alice.ID}
	require.NoError(t, convs.Create(ctx, conv, []int64{alice.ID, bob.ID, carol.ID}))

	now := time.Now().UTC()
	m := &domain.Message{
		ConversationID: conv.ID,
		FoundationID:   fid,
		SenderID:       alice.ID,
		Content:        "hi",
		Type:           domain.MessageText,
	}
	require.NoError(t, msgs.Create(ctx, m, []domain.MessageRecipient{
		{UserID: alice.ID, ReadAt: &now},
		{UserID: bob.ID},
		{UserID: carol.ID},
	}))

	// Bob reads; carol has not, so the aggregate flag stays off.
	n, err := msgs.MarkConversationRead(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := msgs.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRead)

	// Carol reads too; every recipient entry is now stamped.
	n, err = msgs.MarkConversationRead(ctx, conv.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err = msgs.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
}
