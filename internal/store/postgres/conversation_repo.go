package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"foundation_backend/internal/domain"
)

const conversationColumns = `id, foundation_id, title, type, beneficiary_id, program_id, session_id, is_active, created_by, created_at, updated_at`

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation, participantIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO conversations (foundation_id, title, type, beneficiary_id, program_id, session_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, updated_at
	`, c.FoundationID, c.Title, c.Type, c.BeneficiaryID, c.ProgramID, c.SessionID, c.CreatedBy).
		Scan(&c.ID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}

	for i, uid := range participantIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (conversation_id, user_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, c.ID, uid, i); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations WHERE id = $1
	`, id)
	c, err := scanConversation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListActiveForUser(ctx context.Context, foundationID, userID int64) ([]*domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.foundation_id, c.title, c.type, c.beneficiary_id, c.program_id, c.session_id, c.is_active, c.created_by, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE c.foundation_id = $1 AND cp.user_id = $2 AND c.is_active = TRUE
		ORDER BY c.updated_at DESC
	`, foundationID, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) FindExistingDirect(ctx context.Context, foundationID, userA, userB int64) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.foundation_id, c.title, c.type, c.beneficiary_id, c.program_id, c.session_id, c.is_active, c.created_by, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants cp1 ON cp1.conversation_id = c.id AND cp1.user_id = $1
		JOIN conversation_participants cp2 ON cp2.conversation_id = c.id AND cp2.user_id = $2
		WHERE c.foundation_id = $3 AND c.type = $4 AND c.is_active = TRUE
		AND (SELECT COUNT(*) FROM conversation_participants cp WHERE cp.conversation_id = c.id) = 2
		LIMIT 1
	`, userA, userB, foundationID, domain.ConversationDirect)
	c, err := scanConversation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find direct conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) Touch(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = NOW() WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET is_active = FALSE, updated_at = NOW() WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("deactivate conversation: %w", err)
	}
	return nil
}

func scanConversation(scan func(dest ...any) error) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	if err := scan(
		&c.ID,
		&c.FoundationID,
		&c.Title,
		&c.Type,
		&c.BeneficiaryID,
		&c.ProgramID,
		&c.SessionID,
		&c.IsActive,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return c, nil
}
