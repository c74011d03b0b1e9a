package store

import (
	"database/sql"
	"fmt"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/store/postgres"
	"foundation_backend/internal/store/sqlite"
)

// Stores bundles one repository per aggregate, backed by the same database.
type Stores struct {
	Foundations   domain.FoundationRepository
	Users         domain.UserRepository
	Conversations domain.ConversationRepository
	Participants  domain.ParticipantRepository
	Messages      domain.MessageRepository
	Notifications domain.NotificationRepository
}

// Open connects to the configured driver, runs migrations, and returns the
// repository bundle together with the underlying handle for lifecycle control.
func Open(driver, dsn string) (*Stores, *sql.DB, error) {
	switch driver {
	case "sqlite":
		db, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &Stores{
			Foundations:   sqlite.NewFoundationRepo(db),
			Users:         sqlite.NewUserRepo(db),
			Conversations: sqlite.NewConversationRepo(db),
			Participants:  sqlite.NewParticipantRepo(db),
			Messages:      sqlite.NewMessageRepo(db),
			Notifications: sqlite.NewNotificationRepo(db),
		}, db, nil
	case "postgres":
		db, err := postgres.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &Stores{
			Foundations:   postgres.NewFoundationRepo(db),
			Users:         postgres.NewUserRepo(db),
			Conversations: postgres.NewConversationRepo(db),
			Participants:  postgres.NewParticipantRepo(db),
			Messages:      postgres.NewMessageRepo(db),
			Notifications: postgres.NewNotificationRepo(db),
		}, db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
