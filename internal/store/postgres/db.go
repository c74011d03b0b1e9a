package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the foundation messaging
// schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS foundations (
			id         BIGSERIAL    PRIMARY KEY,
			name       VARCHAR(100) NOT NULL,
			is_active  BOOLEAN      NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id              BIGSERIAL    PRIMARY KEY,
			foundation_id   BIGINT       NOT NULL REFERENCES foundations(id),
			email           VARCHAR(100) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			first_name      VARCHAR(50)  NOT NULL DEFAULT '',
			last_name       VARCHAR(50)  NOT NULL DEFAULT '',
			role            VARCHAR(30)  NOT NULL DEFAULT 'applicant',
			is_active       BOOLEAN      NOT NULL DEFAULT TRUE,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_seen       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id             BIGSERIAL    PRIMARY KEY,
			foundation_id  BIGINT       NOT NULL REFERENCES foundations(id),
			title          VARCHAR(100),
			type           VARCHAR(20)  NOT NULL DEFAULT 'direct',
			beneficiary_id BIGINT,
			program_id     BIGINT,
			session_id     BIGINT,
			is_active      BOOLEAN      NOT NULL DEFAULT TRUE,
			created_by     BIGINT       NOT NULL REFERENCES users(id),
			created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id BIGINT      NOT NULL REFERENCES conversations(id),
			user_id         BIGINT      NOT NULL REFERENCES users(id),
			position        INTEGER     NOT NULL DEFAULT 0,
			joined_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (conversation_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL    PRIMARY KEY,
			conversation_id BIGINT       NOT NULL REFERENCES conversations(id),
			foundation_id   BIGINT       NOT NULL REFERENCES foundations(id),
			sender_id       BIGINT       NOT NULL REFERENCES users(id),
			content         TEXT         NOT NULL,
			type            VARCHAR(10)  NOT NULL DEFAULT 'text',
			attachment_id   TEXT,
			is_read         BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS message_recipients (
			message_id BIGINT      NOT NULL REFERENCES messages(id),
			user_id    BIGINT      NOT NULL REFERENCES users(id),
			read_at    TIMESTAMPTZ,
			PRIMARY KEY (message_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id              BIGSERIAL    PRIMARY KEY,
			foundation_id   BIGINT       NOT NULL REFERENCES foundations(id),
			recipient_type  VARCHAR(20)  NOT NULL DEFAULT 'specific_users',
			recipients      TEXT         NOT NULL DEFAULT '[]',
			title           VARCHAR(200) NOT NULL,
			message         TEXT         NOT NULL,
			type            VARCHAR(20)  NOT NULL DEFAULT 'alert',
			channels        TEXT         NOT NULL DEFAULT '["in_app"]',
			priority        VARCHAR(10)  NOT NULL DEFAULT 'medium',
			requires_action BOOLEAN      NOT NULL DEFAULT FALSE,
			is_scheduled    BOOLEAN      NOT NULL DEFAULT FALSE,
			scheduled_for   TIMESTAMPTZ,
			is_sent         BOOLEAN      NOT NULL DEFAULT FALSE,
			sent_at         TIMESTAMPTZ,
			created_by      BIGINT       NOT NULL REFERENCES users(id),
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_foundation ON users(foundation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_foundation ON conversations(foundation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_user ON conversation_participants(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_conv ON conversation_participants(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_msg_recipients_user ON message_recipients(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_foundation ON notifications(foundation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_due ON notifications(is_scheduled, is_sent, scheduled_for)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
