package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

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

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, foundation_id, sender_id, content, type, attachment_id, is_read, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ConversationID, m.FoundationID, m.SenderID, m.Content, m.Type, m.AttachmentID, m.IsRead, now, now)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now

	for i := range recipients {
		recipients[i].MessageID = id
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO message_recipients (message_id, user_id, read_at)
			VALUES (?, ?, ?)
		`, id, recipients[i].UserID, recipients[i].ReadAt); err != nil {
			return fmt.Errorf("insert recipient: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM messages WHERE id = ?
	`, id).Scan(
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
	)
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
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

func (r *MessageRepo) LastMessage(ctx context.Context, conversationID int64) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, conversationID).Scan(
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
	)
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
		WHERE message_id = ?
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
		JOIN message_recipients mr ON mr.message_id = m.id AND mr.user_id = ?
		WHERE m.conversation_id = ? AND m.sender_id <> ? AND mr.read_at IS NULL
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

	// Collect the messages still unread by this user. This scans the whole
	// conversation on every call; no batching is attempted, which is fine
	// at the volumes this application targets.
	rows, err := tx.QueryContext(ctx, `
		SELECT m.id
		FROM messages m
		JOIN message_recipients mr ON mr.message_id = m.id AND mr.user_id = ?
		WHERE m.conversation_id = ? AND m.sender_id <> ? AND mr.read_at IS NULL
	`, userID, conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("select unread: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate unread: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return 0, tx.Commit()
	}

	now := time.Now().UTC()
	placeholders := "?" + strings.Repeat(",?", len(ids)-1)
	args := make([]any, 0, len(ids)+2)
	args = append(args, now, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE message_recipients SET read_at = ?
		WHERE user_id = ? AND read_at IS NULL AND message_id IN (`+placeholders+`)
	`, args...); err != nil {
		return 0, fmt.Errorf("mark recipients read: %w", err)
	}

	// Recompute the aggregate flag: a message is fully read once no unread
	// recipient entries remain in its delivered-to snapshot.
	args = args[:0]
	args = append(args, now)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE messages
		SET updated_at = ?,
		    is_read = CASE WHEN EXISTS (
		        SELECT 1 FROM message_recipients mr
		        WHERE mr.message_id = messages.id AND mr.read_at IS NULL
		    ) THEN 0 ELSE 1 END
		WHERE id IN (`+placeholders+`)
	`, args...); err != nil {
		return 0, fmt.Errorf("recompute is_read: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(ids), nil
}

func collectMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
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
			return nil, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
