package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/metrics"
	"foundation_backend/internal/service"
	"foundation_backend/internal/store/sqlite"
)

// captureBroadcaster records broadcast calls instead of pushing to sockets.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	UserIDs []int64
	Payload any
}

func (c *captureBroadcaster) BroadcastToUsers(userIDs []int64, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, capturedEvent{UserIDs: userIDs, Payload: payload})
}

func (c *captureBroadcaster) Events() []capturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedEvent(nil), c.events...)
}

// testEnv wires the services against an in-memory database.
type testEnv struct {
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Notifications *service.NotificationService
	Users         *service.UserService

	FoundationRepo   domain.FoundationRepository
	UserRepo         domain.UserRepository
	ConversationRepo domain.ConversationRepository
	ParticipantRepo  domain.ParticipantRepository
	MessageRepo      domain.MessageRepository
	NotificationRepo domain.NotificationRepository

	Broadcast *captureBroadcaster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, sqlite.Migrate(db))

	foundationRepo := sqlite.NewFoundationRepo(db)
	userRepo := sqlite.NewUserRepo(db)
	convRepo := sqlite.NewConversationRepo(db)
	partRepo := sqlite.NewParticipantRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)
	notifRepo := sqlite.NewNotificationRepo(db)

	m := metrics.New(prometheus.NewRegistry())
	log := zerolog.Nop()
	broadcast := &captureBroadcaster{}

	return &testEnv{
		Conversations: service.NewConversationService(convRepo, partRepo, msgRepo, userRepo, m),
		Messages:      service.NewMessageService(msgRepo, convRepo, partRepo, notifRepo, userRepo, broadcast, m, log),
		Notifications: service.NewNotificationService(notifRepo, userRepo, broadcast, m, log),
		Users:         service.NewUserService(userRepo),

		FoundationRepo:   foundationRepo,
		UserRepo:         userRepo,
		ConversationRepo: convRepo,
		ParticipantRepo:  partRepo,
		MessageRepo:      msgRepo,
		NotificationRepo: notifRepo,

		Broadcast: broadcast,
	}
}

// seedFoundation inserts a foundation and returns its id.
func (e *testEnv) seedFoundation(t *testing.T, name string) int64 {
	t.Helper()
	f := &domain.Foundation{Name: name, IsActive: true}
	require.NoError(t, e.FoundationRepo.Create(context.Background(), f))
	return f.ID
}

// seedUser inserts an active user and returns it.
func seedUser(t *testing.T, repo domain.UserRepository, foundationID int64, email, first, last string) *domain.User {
	t.Helper()
	u := &domain.User{
		FoundationID:   foundationID,
		Email:          email,
		HashedPassword: "x",
		FirstName:      first,
		LastName:       last,
		Role:           "member",
		IsActive:       true,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}
