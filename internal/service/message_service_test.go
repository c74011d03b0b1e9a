package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/service"
)

func TestMessageSend(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	fid := env.seedFoundation(t, "acme")
	alice := seedUser(t, env.UserRepo, fid, "alice@acme.org", "Alice", "Adams")
	bob := seedUser(t, env.UserRepo, fid, "bob@acme.org", "Bob", "Brown")
	carol := seedUser(t, env.UserRepo, fid, "carol@acme.org", "Carol", "Clark")

	conv, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
		FoundationID:   fid,
		ParticipantIDs: []int64{bob.ID, carol.ID},
		Type:           domain.ConversationGroup,
	})
	require.NoError(t, err)

	t.Run("RecipientSnapshot", func(t *testing.T) {
		msg, err := env.Messages.Send(ctx, alice.ID, service.MessageSendInput{
			ConversationID: conv.ID,
			Content:        "hello everyone",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.MessageText, msg.Type)
		assert.False(t, msg.IsRead)

		recipients, err := env.MessageRepo.Recipients(ctx, msg.ID)
		require.NoError(t, err)
		require.Len(t, recipients, 3)
		for _, rec := range recipients {
			if rec.UserID == alice.ID {
				assert.NotNil(t, rec.ReadAt, "sender's copy is born read")
			} else {
				assert.Nil(t, rec.ReadAt)
			}
		}
	})

	t.Run("NotificationFanOut", func(t *testing.T) {
		notifs, err := env.NotificationRepo.ListForFoundation(ctx, fid)
		require.NoError(t, err)
		require.NotEmpty(t, notifs)
		n := notifs[0]
		assert.Equal(t, "New Message", n.Title)
		assert.Equal(t, "Alice Adams: hello everyone", n.Message)
		assert.Equal(t, domain.NotificationAlert, n.Type)
		assert.Equal(t, []string{domain.ChannelInApp}, n.Channels)
		assert.Equal(t, domain.RecipientSpecificUsers, n.RecipientType)
		assert.True(t, n.IsSent)
		require.NotNil(t, n.SentAt)
		assert.ElementsMatch(t, []int64{bob.ID, carol.ID}, n.Recipients)
		assert.False(t, n.HasRecipient(alice.ID))
	})

	t.Run("LongContentTruncatedInPreview", func(t *testing.T) {
		long := strings.Repeat("x", 150)
		_, err := env.Messages.Send(ctx, bob.ID, service.MessageSendInput{
			ConversationID: conv.ID,
			Content:        long,
		})
		require.NoError(t, err)

		notifs, err := env.NotificationRepo.ListForFoundation(ctx, fid)
		require.NoError(t, err)
		n := notifs[0]
		assert.Equal(t, "Bob Brown: "+strings.Repeat("x", 100)+"...", n.Message)
	})

	t.Run("NonParticipantDenied", func(t *testing.T) {
		mallory := seedUser(t, env.UserRepo, fid, "mallory@acme.org", "Mallory", "Mills")
		_, err := env.Messages.Send(ctx, mallory.ID, service.MessageSendInput{
			ConversationID: conv.ID,
			Content:        "let me in",
		})
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("UnknownSender", func(t *testing.T) {
		_, err := env.Messages.Send(ctx, 9999, service.MessageSendInput{
			ConversationID: conv.ID,
			Content:        "ghost",
		})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("UnauthenticatedSender", func(t *testing.T) {
		_, err := env.Messages.Send(ctx, 0, service.MessageSendInput{
			ConversationID: conv.ID,
			Content:        "anon",
		})
		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	})

	t.Run("MissingConversationReadsAsDenied", func(t *testing.T) {
		_, err := env.Messages.Send(ctx, alice.ID, service.MessageSendInput{
			ConversationID: 9999,
			Content:        "void",
		})
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("InactiveConversationDenied", func(t *testing.T) {
		dead, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{bob.ID},
			Type:           domain.ConversationDirect,
		})
		require.NoError(t, err)
		require.NoError(t, env.Conversations.Deactivate(ctx, alice.ID, dead.ID))

		_, err = env.Messages.Send(ctx, alice.ID, service.MessageSendInput{
			ConversationID: dead.ID,
			Content:        "too late",
		})
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})
}

func TestMessageList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	fid := env.seedFoundation(t, "acme")
	alice := seedUser(t, env.UserRepo, fid, "alice@acme.org", "Alice", "Adams")
	bob := seedUser(t, env.UserRepo, fid, "bob@acme.org", "Bob", "Brown")
	outsider := seedUser(t, env.UserRepo, fid, "eve@acme.org", "Eve", "Evans")

	conv, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
		FoundationID:   fid,
		ParticipantIDs: []int64{bob.ID},
		Type:           domain.ConversationDirect,
	})
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := env.Messages.Send(ctx, alice.ID, service.MessageSendInput{
			ConversationID: conv.ID,
			Content:        content,
		})
		require.NoError(t, err)
	}

	t.Run("ChronologicalOrder", func(t *testing.T) {
		msgs, err := env.Messages.List(ctx, bob.ID, conv.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 4) // system message plus three texts
		assert.Equal(t, domain.MessageSystem, msgs[0].Type)
		assert.Equal(t, "one", msgs[1].Content)
		assert.Equal(t, "two", msgs[2].Content)
		assert.Equal(t, "three", msgs[3].Content)
		assert.Equal(t, "Alice", msgs[1].SenderFirstName)
	})

	t.Run("Paging", func(t *testing.T) {
		msgs, err := env.Messages.List(ctx, bob.ID, conv.ID, 2, 1)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "one", msgs[0].Content)
		assert.Equal(t, "two", msgs[1].Content)
	})

	t.Run("LongHistoryIsReturnedWhole", func(t *testing.T) {
		long, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
			FoundationID:   fid,
			ParticipantIDs: []int64{bob.ID},
			Type:           domain.ConversationGroup,
		})
		require.NoError(t, err)
		for i := 0; i < 120; i++ {
			_, err := env.Messages.Send(ctx, alice.ID, service.MessageSendInput{
				ConversationID: long.ID,
				Content:        fmt.Sprintf("msg %d", i),
			})
			require.NoError(t, err)
		}

		msgs, err := env.Messages.List(ctx, bob.ID, long.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 121) // system message plus all texts
		assert.Equal(t, "msg 119", msgs[120].Content)
	})

	t.Run("NonParticipantGetsEmptyList", func(t *testing.T) {
		msgs, err := env.Messages.List(ctx, outsider.ID, conv.ID, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("UnknownCallerGetsEmptyList", func(t *testing.T) {
		msgs, err := env.Messages.List(ctx, 9999, conv.ID, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	fid := env.seedFoundation(t, "acme")
	alice := seedUser(t, env.UserRepo, fid, "alice@acme.org", "Alice", "Adams")
	bob := seedUser(t, env.UserRepo, fid, "bob@acme.org", "Bob", "Brown")

	conv, err := env.Conversations.Create(ctx, alice.ID, service.ConversationCreateInput{
		FoundationID:   fid,
		ParticipantIDs: []int64{bob.ID},
		Type:           domain.ConversationDirect,
	})
	require.NoError(t, err)

	_, err = env.Messages.Send(ctx, alice.ID, service.MessageSendInput{
		ConversationID: conv.ID,
		Content:        "first",
	})
	require.NoError(t, err)
	_, err = env.Messages.Send(ctx, alice.ID, service.MessageSendInput{
		ConversationID: conv.ID,
		Content:        "second",
	})
	require.NoError(t, err)

	t.Run("CountsAcrossConversations", func(t *testing.T) {
		// System message plus two texts, all from alice.
		count, err := env.Messages.UnreadCount(ctx, bob.ID, fid)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		count, err = env.Messages.UnreadCount(ctx, alice.ID, fid)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("MarkReadIsIdempotent", func(t *testing.T) {
		marked, err := env.Messages.MarkRead(ctx, bob.ID, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, marked)

		count, err := env.Messages.UnreadCount(ctx, bob.ID, fid)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		// Second pass finds nothing left to mark.
		marked, err = env.Messages.MarkRead(ctx, bob.ID, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, marked)
	})

	t.Run("ReadTimestampNotOverwritten", func(t *testing.T) {
		msgs, err := env.MessageRepo.ListForConversation(ctx, conv.ID)
		require.NoError(t, err)
		require.NotEmpty(t, msgs)

		recipients, err := env.MessageRepo.Recipients(ctx, msgs[len(msgs)-1].ID)
		require.NoError(t, err)
		var bobReadAt *string
		for _, rec := range recipients {
			if rec.UserID == bob.ID {
				require.NotNil(t, rec.ReadAt)
				s := rec.ReadAt.String()
				bobReadAt = &s
			}
		}
		require.NotNil(t, bobReadAt)

		_, err = env.Messages.MarkRead(ctx, bob.ID, conv.ID)
		require.NoError(t, err)

		recipients, err = env.MessageRepo.Recipients(ctx, msgs[len(msgs)-1].ID)
		require.NoError(t, err)
		for _, rec := range recipients {
			if rec.UserID == bob.ID {
				require.NotNil(t, rec.ReadAt)
				assert.Equal(t, *bobReadAt, rec.ReadAt.String())
			}
		}
	})

	t.Run("NewMessageAfterMarkIsUnreadAgain", func(t *testing.T) {
		_, err := env.Messages.Send(ctx, alice.ID, service.MessageSendInput{
			ConversationID: conv.ID,
			Content:        "third",
		})
		require.NoError(t, err)

		count, err := env.Messages.UnreadCount(ctx, bob.ID, fid)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("NonParticipantDenied", func(t *testing.T) {
		eve := seedUser(t, env.UserRepo, fid, "eve@acme.org", "Eve", "Evans")
		_, err := env.Messages.MarkRead(ctx, eve.ID, conv.ID)
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("UnknownCallerCountsZero", func(t *testing.T) {
		count, err := env.Messages.UnreadCount(ctx, 9999, fid)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
