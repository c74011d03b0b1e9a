package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent CREATE TABLE / CREATE INDEX statements for the
// foundation messaging schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Foundations (tenants)
		`CREATE TABLE IF NOT EXISTS foundations (
			id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			is_active BOOLEAN DEFAULT TRUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Users
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			foundation_id INTEGER NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			first_name VARCHAR(50) NOT NULL DEFAULT '',
			last_name VARCHAR(50) NOT NULL DEFAULT '',
			role VARCHAR(30) NOT NULL DEFAULT 'applicant',
			is_active BOOLEAN DEFAULT TRUE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (foundation_id) REFERENCES foundations(id)
		);`,
		// Conversations (soft-deleted via is_active, never removed)
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			foundation_id INTEGER NOT NULL,
			title VARCHAR(100),
			type VARCHAR(20) NOT NULL DEFAULT 'direct',
			beneficiary_id INTEGER,
			program_id INTEGER,
			session_id INTEGER,
			is_active BOOLEAN DEFAULT TRUE,
			created_by INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (foundation_id) REFERENCES foundations(id),
			FOREIGN KEY (created_by) REFERENCES users(id)
		);`,
		// Conversation participants; position preserves insertion order.
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (conversation_id, user_id),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL,
			foundation_id INTEGER NOT NULL,
			sender_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			type VARCHAR(10) NOT NULL DEFAULT 'text',
			attachment_id TEXT,
			is_read BOOLEAN DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			FOREIGN KEY (sender_id) REFERENCES users(id)
		);`,
		// Delivered-to snapshot and read-by state, one row per recipient.
		`CREATE TABLE IF NOT EXISTS message_recipients (
			message_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			read_at DATETIME DEFAULT NULL,
			PRIMARY KEY (message_id, user_id),
			FOREIGN KEY (message_id) REFERENCES messages(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		// Notifications; recipients and channels stored as JSON text.
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY,
			foundation_id INTEGER NOT NULL,
			recipient_type VARCHAR(20) NOT NULL DEFAULT 'specific_users',
			recipients TEXT NOT NULL DEFAULT '[]',
			title VARCHAR(200) NOT NULL,
			message TEXT NOT NULL,
			type VARCHAR(20) NOT NULL DEFAULT 'alert',
			channels TEXT NOT NULL DEFAULT '["in_app"]',
			priority VARCHAR(10) NOT NULL DEFAULT 'medium',
			requires_action BOOLEAN DEFAULT FALSE,
			is_scheduled BOOLEAN DEFAULT FALSE,
			scheduled_for DATETIME DEFAULT NULL,
			is_sent BOOLEAN DEFAULT FALSE,
			sent_at DATETIME DEFAULT NULL,
			created_by INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (foundation_id) REFERENCES foundations(id),
			FOREIGN KEY (created_by) REFERENCES users(id)
		);`,
		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_users_foundation ON users(foundation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_foundation ON conversations(foundation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_user ON conversation_participants(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conv_participants_conv ON conversation_participants(conversation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_msg_recipients_user ON message_recipients(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_foundation ON notifications(foundation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_due ON notifications(is_scheduled, is_sent, scheduled_for);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
