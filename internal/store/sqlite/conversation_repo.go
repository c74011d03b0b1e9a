package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

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

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (foundation_id, title, type, beneficiary_id, program_id, session_id, is_active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.FoundationID, c.Title, c.Type, c.BeneficiaryID, c.ProgramID, c.SessionID, true, c.CreatedBy, now, now)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	c.IsActive = true
	c.CreatedAt = now
	c.UpdatedAt = now

	for i, uid := range participantIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id, position, joined_at)
			VALUES (?, ?, ?, ?)
		`, id, uid, i, now); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations WHERE id = ?
	`, id).Scan(
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
	)
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
		WHERE c.foundation_id = ? AND cp.user_id = ? AND c.is_active = 1
		ORDER BY c.updated_at DESC
	`, foundationID, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c := &domain.Conversation{}
		if err := rows.Scan(
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
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) FindExistingDirect(ctx context.Context, foundationID, userA, userB int64) (*domain.Conversation, error) {
	// A direct conversation matches only when its participant set is
	// exactly the unordered pair, so the pair join is guarded by a
	// participant count check.
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id, c.foundation_id, c.title, c.type, c.beneficiary_id, c.program_id, c.session_id, c.is_active, c.created_by, c.created_at, c.updated_at
		FROM conversations c
		JOIN conversation_participants cp1 ON cp1.conversation_id = c.id AND cp1.user_id = ?
		JOIN conversation_participants cp2 ON cp2.conversation_id = c.id AND cp2.user_id = ?
		WHERE c.foundation_id = ? AND c.type = ? AND c.is_active = 1
		AND (SELECT COUNT(*) FROM conversation_participants cp WHERE cp.conversation_id = c.id) = 2
		LIMIT 1
	`, userA, userB, foundationID, domain.ConversationDirect).Scan(
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
	)
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
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET is_active = 0, updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("deactivate conversation: %w", err)
	}
	return nil
}
