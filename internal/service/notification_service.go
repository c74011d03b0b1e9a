package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/metrics"
)

type NotificationService struct {
	notifications domain.NotificationRepository
	users         domain.UserRepository
	broadcaster   Broadcaster
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

func NewNotificationService(
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	broadcaster Broadcaster,
	m *metrics.Metrics,
	log zerolog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		broadcaster:   broadcaster,
		metrics:       m,
		log:           log,
	}
}

type NotificationCreateInput struct {
	FoundationID   int64
	RecipientType  string
	Recipients     []int64
	Title          string
	Message        string
	Type           string
	Channels       []string
	Priority       string
	RequiresAction bool
	ScheduledFor   *time.Time
}

// Create stores a notification. Without a schedule it is sent immediately
// and pushed to connected recipients; with one it waits for the dispatcher.
func (s *NotificationService) Create(
	ctx context.Context,
	callerID int64,
	in NotificationCreateInput,
) (*domain.Notification, error) {
	if callerID == 0 {
		return nil, domain.ErrNotAuthenticated
	}
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, domain.ErrUserNotFound
	}
	if caller.FoundationID != in.FoundationID {
		return nil, domain.ErrAccessDenied
	}
	if in.Title == "" || in.Message == "" {
		return nil, domain.ErrInvalidInput
	}

	notif := &domain.Notification{
		FoundationID:   in.FoundationID,
		RecipientType:  in.RecipientType,
		Recipients:     in.Recipients,
		Title:          in.Title,
		Message:        in.Message,
		Type:           in.Type,
		Channels:       in.Channels,
		Priority:       in.Priority,
		RequiresAction: in.RequiresAction,
		CreatedBy:      callerID,
	}
	if notif.RecipientType == "" {
		notif.RecipientType = domain.RecipientSpecificUsers
	}
	if notif.Type == "" {
		notif.Type = domain.NotificationInfo
	}
	if len(notif.Channels) == 0 {
		notif.Channels = []string{domain.ChannelInApp}
	}
	if notif.Priority == "" {
		notif.Priority = "medium"
	}

	if in.ScheduledFor != nil {
		at := in.ScheduledFor.UTC()
		notif.IsScheduled = true
		notif.ScheduledFor = &at
	} else {
		now := time.Now().UTC()
		notif.IsSent = true
		notif.SentAt = &now
	}

	if err := s.notifications.Create(ctx, notif); err != nil {
		return nil, err
	}
	s.metrics.NotificationsCreatedTotal.Inc()

	if notif.IsSent {
		s.push(notif)
	}
	return notif, nil
}

// ListForUser returns foundation notifications addressed to the caller,
// newest first. An unknown or foreign caller gets an empty list.
func (s *NotificationService) ListForUser(
	ctx context.Context,
	callerID int64,
	foundationID int64,
	limit int,
) ([]*domain.Notification, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil || !caller.IsActive || caller.FoundationID != foundationID {
		return []*domain.Notification{}, nil
	}
	all, err := s.notifications.ListForFoundation(ctx, foundationID)
	if err != nil {
		return nil, err
	}
	mine := make([]*domain.Notification, 0, len(all))
	for _, n := range all {
		if n.HasRecipient(callerID) {
			mine = append(mine, n)
		}
		if limit > 0 && len(mine) == limit {
			break
		}
	}
	return mine, nil
}

// DispatchDue sends every scheduled notification whose time has come.
// Called from the cron job; returns how many were dispatched.
func (s *NotificationService) DispatchDue(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	due, err := s.notifications.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, n := range due {
		if err := s.notifications.MarkSent(ctx, n.ID, now); err != nil {
			s.log.Error().Err(err).Int64("notification_id", n.ID).
				Msg("mark notification sent failed")
			continue
		}
		n.IsSent = true
		at := now
		n.SentAt = &at
		s.push(n)
		s.metrics.NotificationsDispatchedTotal.Inc()
		sent++
	}
	return sent, nil
}

func (s *NotificationService) push(n *domain.Notification) {
	if s.broadcaster == nil || len(n.Recipients) == 0 {
		return
	}
	s.broadcaster.BroadcastToUsers(n.Recipients, map[string]any{
		"type":         "notification",
		"notification": n,
	})
}
