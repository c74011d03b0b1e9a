package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/service"
)

func TestNotificationCreate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	fid := env.seedFoundation(t, "acme")
	alice := seedUser(t, env.UserRepo, fid, "alice@acme.org", "Alice", "Adams")
	bob := seedUser(t, env.UserRepo, fid, "bob@acme.org", "Bob", "Brown")

	t.Run("ImmediateIsSentAndPushed", func(t *testing.T) {
		n, err := env.Notifications.Create(ctx, alice.ID, service.NotificationCreateInput{
			FoundationID: fid,
			Recipients:   []int64{bob.ID},
			Title:        "Welcome",
			Message:      "Glad to have you",
		})
		require.NoError(t, err)
		assert.True(t, n.IsSent)
		require.NotNil(t, n.SentAt)
		assert.Equal(t, domain.NotificationInfo, n.Type)
		assert.Equal(t, []string{domain.ChannelInApp}, n.Channels)
		assert.Equal(t, "medium", n.Priority)

		events := env.Broadcast.Events()
		require.NotEmpty(t, events)
		assert.Equal(t, []int64{bob.ID}, events[len(events)-1].UserIDs)
	})

	t.Run("ScheduledWaitsForDispatcher", func(t *testing.T) {
		due := time.Now().UTC().Add(-time.Minute)
		n, err := env.Notifications.Create(ctx, alice.ID, service.NotificationCreateInput{
			FoundationID: fid,
			Recipients:   []int64{bob.ID},
			Title:        "Reminder",
			Message:      "Session starts soon",
			ScheduledFor: &due,
		})
		require.NoError(t, err)
		assert.True(t, n.IsScheduled)
		assert.False(t, n.IsSent)
		assert.Nil(t, n.SentAt)

		sent, err := env.Notifications.DispatchDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)

		stored, err := env.NotificationRepo.GetByID(ctx, n.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.True(t, stored.IsSent)
		require.NotNil(t, stored.SentAt)

		// Already sent: a second dispatch pass finds nothing.
		sent, err = env.Notifications.DispatchDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, sent)
	})

	t.Run("ListFiltersByRecipient", func(t *testing.T) {
		forBob, err := env.Notifications.ListForUser(ctx, bob.ID, fid, 0)
		require.NoError(t, err)
		require.Len(t, forBob, 2)

		forAlice, err := env.Notifications.ListForUser(ctx, alice.ID, fid, 0)
		require.NoError(t, err)
		assert.Empty(t, forAlice)
	})

	t.Run("UnknownCallerGetsEmptyList", func(t *testing.T) {
		notifs, err := env.Notifications.ListForUser(ctx, 9999, fid, 0)
		require.NoError(t, err)
		assert.Empty(t, notifs)
	})

	t.Run("MissingTitleRejected", func(t *testing.T) {
		_, err := env.Notifications.Create(ctx, alice.ID, service.NotificationCreateInput{
			FoundationID: fid,
			Recipients:   []int64{bob.ID},
			Message:      "no title",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("ForeignFoundationDenied", func(t *testing.T) {
		otherFid := env.seedFoundation(t, "umbrella")
		_, err := env.Notifications.Create(ctx, alice.ID, service.NotificationCreateInput{
			FoundationID: otherFid,
			Recipients:   []int64{bob.ID},
			Title:        "Spoof",
			Message:      "nope",
		})
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})
}
