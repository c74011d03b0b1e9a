package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"foundation_backend/internal/domain"
)

const messageColumns = `id, conversation_id, foundation_id, sender_id, content, type, attachment_id, is_read, created_at, updated_at`

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message, recipients []domain.MessageRecipient) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, foundation_id, sender_id, content, type, attachment_id, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, m.ConversationID, m.FoundationID, m.SenderID, m.Content, m.Type, m.AttachmentID, m.IsRead).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	for i := range recipients {
		recipients[i].MessageID = m.ID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_recipients (message_id, user_id, read_at)
			VALUES ($1, $2, $3)
		`, m.ID, recipients[i].UserID, recipients[i].ReadAt); err != nil {
			return fmt.Errorf("insert recipient: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = $1
	`, id)
	m, err := scanMessage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *MessageRepo) LastMessage(ctx context.Context, conversationID int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, conversationID)
	m, err := scanMessage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) Recipients(ctx context.Context, messageID int64) ([]*domain.MessageRecipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, user_id, read_at
		FROM message_recipients
		WHERE message_id = $1
		ORDER BY user_id ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var res []*domain.MessageRecipient
	for rows.Next() {
		rec := &domain.MessageRecipient{}
		if err := rows.Scan(&rec.MessageID, &rec.UserID, &rec.ReadAt); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN message_recipients mr ON mr.message_id = m.id AND mr.user_id = $1
		WHERE m.conversation_id = $2 AND m.sender_id <> $3 AND mr.read_at IS NULL
	`, userID, conversationID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (r *MessageRepo) MarkConversationRead(ctx context.Context, conversationID, userID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE message_recipients mr SET read_at = NOW()
		FROM messages m
		WHERE m.id = mr.message_id
		AND mr.user_id = $1 AND mr.read_at IS NULL
		AND m.conversation_id = $2 AND m.sender_id <> $3
	`, userID, conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("mark recipients read: %w", err)
	}
	marked, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if marked == 0 {
		return 0, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET updated_at = NOW(),
		    is_read = NOT EXISTS (
		        SELECT 1 FROM message_recipients mr
		        WHERE mr.message_id = messages.id AND mr.read_at IS NULL
		    )
		WHERE conversation_id = $1 AND sender_id <> $2
	`, conversationID, userID); err != nil {
		return 0, fmt.Errorf("recompute is_read: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(marked), nil
}

func scanMessage(scan func(dest ...any) error) (*domain.Message, error) {
	m := &domain.Message{}
	if err := scan(
		&m.ID,
		&m.ConversationID,
		&m.FoundationID,
		&m.SenderID,
		&m.Content,
		&m.Type,
		&m.AttachmentID,
		&m.IsRead,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return m, nil
}
