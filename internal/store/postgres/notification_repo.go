package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"foundation_backend/internal/domain"
)

const notificationColumns = `id, foundation_id, recipient_type, recipients, title, message, type, channels, priority, requires_action, is_scheduled, scheduled_for, is_sent, sent_at, created_by, created_at, updated_at`

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

var _ domain.NotificationRepository = (*NotificationRepo)(nil)

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	recipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}
	channels, err := json.Marshal(n.Channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (foundation_id, recipient_type, recipients, title, message, type, channels, priority, requires_action, is_scheduled, scheduled_for, is_sent, sent_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`, n.FoundationID, n.RecipientType, string(recipients), n.Title, n.Message, n.Type, string(channels),
		n.Priority, n.RequiresAction, n.IsScheduled, n.ScheduledFor, n.IsSent, n.SentAt, n.CreatedBy).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications WHERE id = $1
	`, id)
	n, err := scanNotification(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

func (r *NotificationRepo) ListForFoundation(ctx context.Context, foundationID int64) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE foundation_id = $1
		ORDER BY created_at DESC, id DESC
	`, foundationID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *NotificationRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE is_scheduled = TRUE AND is_sent = FALSE AND scheduled_for IS NOT NULL AND scheduled_for <= $1
		ORDER BY scheduled_for ASC
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *NotificationRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_sent = TRUE, sent_at = $1, updated_at = $2 WHERE id = $3
	`, at.UTC(), at.UTC(), id); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

func scanNotification(scan func(dest ...any) error) (*domain.Notification, error) {
	n := &domain.Notification{}
	var recipients, channels string
	if err := scan(
		&n.ID,
		&n.FoundationID,
		&n.RecipientType,
		&recipients,
		&n.Title,
		&n.Message,
		&n.Type,
		&channels,
		&n.Priority,
		&n.RequiresAction,
		&n.IsScheduled,
		&n.ScheduledFor,
		&n.IsSent,
		&n.SentAt,
		&n.CreatedBy,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(recipients), &n.Recipients); err != nil {
		return nil, fmt.Errorf("unmarshal recipients: %w", err)
	}
	if err := json.Unmarshal([]byte(channels), &n.Channels); err != nil {
		return nil, fmt.Errorf("unmarshal channels: %w", err)
	}
	return n, nil
}

func collectNotifications(rows *sql.Rows) ([]*domain.Notification, error) {
	var res []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		res = append(res, n)
	}
	return res, rows.Err()
}
