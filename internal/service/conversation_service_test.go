package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/metrics"
	"foundation_backend/internal/service"
)

// failingUserRepo passes through failAfter GetByID calls, then errors.
type failingUserRepo struct {
	domain.UserRepository
	failAfter int
	calls     int
}

func (r *failingUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.calls++
	if r.calls > r.failAfter {
		return nil, errors.New("user repo down")
	}
	return r.UserRepository.GetByID(ctx, id)
}

func TestConversationCreate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	fid := env.seedFoundation(t, "acme")
	alice := seedUser(t, env.UserRepo, fid, "alice@acme.org", "Alice", "Adams")
	bob := seedUser(t, env.UserRepo, fid, "bob@acme.org", "Bob", "Brown")
	carol := seedUser(t, env.UserRepo, fid, "carol@acme.org", "Carol", "Clark")

	t.Run("DirectIsIdempotent", func(t *testing.T) {
		first, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{bob.ID},
			Type:           domain.ConversationDirect,
		})
		require.NoError(t, err)
		require.NotNil(t, first)

		// Same pair from the other side resolves to the same conversation.
		second, err := env.Conversations.Create(ctx, bob.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{alice.ID},
			Type:           domain.ConversationDirect,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("CreatorListedTwiceIsDeduplicated", func(t *testing.T) {
		conv, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{alice.ID, carol.ID, carol.ID},
			Type:           domain.ConversationGroup,
		})
		require.NoError(t, err)

		ids, err := env.ParticipantRepo.ParticipantIDs(ctx, conv.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{alice.ID, carol.ID}, ids)
	})

	t.Run("SystemMessageAnnouncesCreation", func(t *testing.T) {
		conv, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{bob.ID, carol.ID},
			Type:           domain.ConversationGroup,
		})
		require.NoError(t, err)

		msgs, err := env.MessageRepo.ListForConversation(ctx, conv.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, domain.MessageSystem, msgs[0].Type)
		assert.Equal(t, "Alice Adams created this group conversation", msgs[0].Content)
		assert.Equal(t, alice.ID, msgs[0].SenderID)

		// Unread for the other participants, invisible to the creator's count.
		unread, err := env.MessageRepo.CountUnread(ctx, conv.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, unread)
		unread, err = env.MessageRepo.CountUnread(ctx, conv.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, unread)
	})

	t.Run("DirectMustBeAPair", func(t *testing.T) {
		_, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{bob.ID, carol.ID},
			Type:           domain.ConversationDirect,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		// A direct chat with only yourself is no pair either.
		_, err = env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{alice.ID},
			Type:           domain.ConversationDirect,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("UnknownCaller", func(t *testing.T) {
		_, err := env.Conversations.Create(ctx, 9999, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{bob.ID},
			Type:           domain.ConversationDirect,
		})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("UnauthenticatedCaller", func(t *testing.T) {
		_, err := env.Conversations.Create(ctx, 0, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{bob.ID},
			Type:           domain.ConversationDirect,
		})
		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	})

	t.Run("ForeignFoundationCaller", func(t *testing.T) {
		otherFid := env.seedFoundation(t, "umbrella")
		_, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   otherFid,
			ParticipantIDs: []int64{bob.ID},
			Type:           domain.ConversationDirect,
		})
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("InvalidType", func(t *testing.T) {
		_, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{bob.ID},
			Type:           "broadcast",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestConversationListForUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	fid := env.seedFoundation(t, "acme")
	alice := seedUser(t, env.UserRepo, fid, "alice@acme.org", "Alice", "Adams")
	bob := seedUser(t, env.UserRepo, fid, "bob@acme.org", "Bob", "Brown")
	carol := seedUser(t, env.UserRepo, fid, "carol@acme.org", "Carol", "Clark")

	older, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
		FoundationID:   fid,
		ParticipantIDs: []int64{bob.ID},
		Type:           domain.ConversationDirect,
	})
	require.NoError(t, err)
	newer, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
		FoundationID:   fid,
		ParticipantIDs: []int64{carol.ID},
		Type:           domain.ConversationDirect,
	})
	require.NoError(t, err)

	t.Run("SortedByLastActivity", func(t *testing.T) {
		summaries, err := env.Conversations.ListForUser(ctx, alice.ID, fid)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, newer.ID, summaries[0].Conversation.ID)
		assert.Equal(t, older.ID, summaries[1].Conversation.ID)

		// A message in the older conversation moves it to the front.
		_, err = env.Messages.Send(ctx, bob.ID, service.MessageSendInput{
			ConversationID: older.ID,
			Content:        "ping",
		})
		require.NoError(t, err)

		summaries, err = env.Conversations.ListForUser(ctx, alice.ID, fid)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, older.ID, summaries[0].Conversation.ID)
	})

	t.Run("SummaryContent", func(t *testing.T) {
		summaries, err := env.Conversations.ListForUser(ctx, alice.ID, fid)
		require.NoError(t, err)
		top := summaries[0]
		require.NotNil(t, top.LastMessage)
		assert.Equal(t, "ping", top.LastMessage.Content)
		assert.Equal(t, "Bob", top.LastMessage.SenderFirstName)
		assert.Equal(t, 1, top.UnreadCount) // bob's ping; alice's own system message does not count
		assert.Len(t, top.Participants, 2)
	})

	t.Run("NonMemberSeesOnlyTheirs", func(t *testing.T) {
		summaries, err := env.Conversations.ListForUser(ctx, carol.ID, fid)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, newer.ID, summaries[0].Conversation.ID)
	})

	t.Run("UnknownCallerGetsEmptyList", func(t *testing.T) {
		summaries, err := env.Conversations.ListForUser(ctx, 9999, fid)
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})

	t.Run("SenderLookupFailureSurfaces", func(t *testing.T) {
		// The first lookup resolves the caller; every later one (the
		// last-message sender) fails and must not be swallowed.
		users := &failingUserRepo{UserRepository: env.UserRepo, failAfter: 1}
		svc := service.NewConversationService(
			env.ConversationRepo, env.ParticipantRepo, env.MessageRepo,
			users, metrics.New(prometheus.NewRegistry()),
		)

		_, err := svc.ListForUser(ctx, alice.ID, fid)
		require.Error(t, err)
		assert.ErrorContains(t, err, "user repo down")
	})

	t.Run("DeactivatedConversationDisappears", func(t *testing.T) {
		require.NoError(t, env.Conversations.Deactivate(ctx, alice.ID, newer.ID))

		summaries, err := env.Conversations.ListForUser(ctx, carol.ID, fid)
		require.NoError(t, err)
		assert.Empty(t, summaries)

		// The row itself survives as an inactive record.
		conv, err := env.ConversationRepo.GetByID(ctx, newer.ID)
		require.NoError(t, err)
		require.NotNil(t, conv)
		assert.False(t, conv.IsActive)
	})
}
