package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/metrics"
)

// messagePreviewLimit caps the notification body excerpted from a message.
const messagePreviewLimit = 100

type MessageService struct {
	messages      domain.MessageRepository
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	notifications domain.NotificationRepository
	users         domain.UserRepository
	broadcaster   Broadcaster
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

func NewMessageService(
	messages domain.MessageRepository,
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	broadcaster Broadcaster,
	m *metrics.Metrics,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		participants:  participants,
		notifications: notifications,
		users:         users,
		broadcaster:   broadcaster,
		metrics:       m,
		log:           log,
	}
}

type MessageSendInput struct {
	ConversationID int64
	Content        string
	Type           string
	AttachmentID   *string
}

// preview truncates content to messagePreviewLimit runes, appending an
// ellipsis marker when anything was cut.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= messagePreviewLimit {
		return content
	}
	return string(runes[:messagePreviewLimit]) + "..."
}

// Send appends a message to a conversation, snapshots the recipient set
// from the current participants, and fans out an in-app notification to
// everyone but the sender.
func (s *MessageService) Send(
	ctx context.Context,
	callerID int64,
	in MessageSendInput,
) (*domain.Message, error) {
	if callerID == 0 {
		return nil, domain.ErrNotAuthenticated
	}
	sender, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("get sender: %w", err)
	}
	if sender == nil {
		return nil, domain.ErrUserNotFound
	}

	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil || !conv.IsActive {
		return nil, domain.ErrAccessDenied
	}
	isParticipant, err := s.participants.IsParticipant(ctx, in.ConversationID, callerID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, domain.ErrAccessDenied
	}

	msgType := in.Type
	if msgType == "" {
		msgType = domain.MessageText
	}

	participantIDs, err := s.participants.ParticipantIDs(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recipients := make([]domain.MessageRecipient, 0, len(participantIDs))
	others := make([]int64, 0, len(participantIDs))
	for _, id := range participantIDs {
		r := domain.MessageRecipient{UserID: id}
		if id == callerID {
			// The sender's own copy is born read.
			at := now
			r.ReadAt = &at
		} else {
			others = append(others, id)
		}
		recipients = append(recipients, r)
	}

	msg := &domain.Message{
		ConversationID: in.ConversationID,
		FoundationID:   conv.FoundationID,
		SenderID:       callerID,
		Content:        in.Content,
		Type:           msgType,
		AttachmentID:   in.AttachmentID,
		IsRead:         len(others) == 0,
	}
	if err := s.messages.Create(ctx, msg, recipients); err != nil {
		return nil, err
	}
	s.metrics.MessagesSentTotal.Inc()

	if err := s.conversations.Touch(ctx, in.ConversationID); err != nil {
		s.log.Warn().Err(err).Int64("conversation_id", in.ConversationID).
			Msg("touch conversation failed")
	}

	if len(others) > 0 {
		sentAt := now
		notif := &domain.Notification{
			FoundationID:   conv.FoundationID,
			RecipientType:  domain.RecipientSpecificUsers,
			Recipients:     others,
			Title:          "New Message",
			Message:        sender.FullName() + ": " + preview(in.Content),
			Type:           domain.NotificationAlert,
			Channels:       []string{domain.ChannelInApp},
			Priority:       "medium",
			RequiresAction: false,
			IsSent:         true,
			SentAt:         &sentAt,
			CreatedBy:      callerID,
		}
		if err := s.notifications.Create(ctx, notif); err != nil {
			// The message landed; losing the notification is logged, not fatal.
			s.log.Error().Err(err).Int64("message_id", msg.ID).
				Msg("notification fan-out failed")
		} else {
			s.metrics.NotificationsCreatedTotal.Inc()
		}
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToUsers(others, map[string]any{
				"type":    "message",
				"message": msg,
			})
		}
	}

	return msg, nil
}

// MessageView is a message enriched with the sender's display name.
type MessageView struct {
	*domain.Message
	SenderFirstName string `json:"sender_first_name"`
	SenderLastName  string `json:"sender_last_name"`
}

// List returns a conversation's messages in chronological order with
// sender profiles resolved. Callers who are not participants, unknown,
// or inactive get an empty slice.
func (s *MessageService) List(
	ctx context.Context,
	callerID int64,
	conversationID int64,
	limit, offset int,
) ([]*MessageView, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil || !caller.IsActive {
		return []*MessageView{}, nil
	}
	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return []*MessageView{}, nil
	}
	msgs, err := s.messages.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	// Paging is applied in memory; conversations here stay small enough
	// that the full scan is the simpler contract.
	if offset > 0 {
		if offset >= len(msgs) {
			return []*MessageView{}, nil
		}
		msgs = msgs[offset:]
	}
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}

	senders := make(map[int64]*domain.User)
	views := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		view := &MessageView{Message: m}
		sender, ok := senders[m.SenderID]
		if !ok {
			sender, err = s.users.GetByID(ctx, m.SenderID)
			if err != nil {
				return nil, err
			}
			senders[m.SenderID] = sender
		}
		// A vanished sender leaves the name fields empty.
		if sender != nil {
			view.SenderFirstName = sender.FirstName
			view.SenderLastName = sender.LastName
		}
		views = append(views, view)
	}
	return views, nil
}

// MarkRead marks every message of the conversation as read by the caller,
// skipping the caller's own messages. Repeated calls are no-ops and
// earlier read timestamps are never overwritten.
func (s *MessageService) MarkRead(
	ctx context.Context,
	callerID int64,
	conversationID int64,
) (int, error) {
	if callerID == 0 {
		return 0, domain.ErrNotAuthenticated
	}
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return 0, err
	}
	if caller == nil {
		return 0, domain.ErrUserNotFound
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if conv == nil {
		return 0, domain.ErrAccessDenied
	}
	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, callerID)
	if err != nil {
		return 0, err
	}
	if !isParticipant {
		return 0, domain.ErrAccessDenied
	}
	n, err := s.messages.MarkConversationRead(ctx, conversationID, callerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.MessagesMarkedReadTotal.Add(float64(n))
	}
	return n, nil
}

// UnreadCount sums unread messages for the caller across all their active
// conversations. Unknown or foreign callers count zero.
func (s *MessageService) UnreadCount(
	ctx context.Context,
	callerID int64,
	foundationID int64,
) (int, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return 0, err
	}
	if caller == nil || !caller.IsActive || caller.FoundationID != foundationID {
		return 0, nil
	}
	convs, err := s.conversations.ListActiveForUser(ctx, foundationID, callerID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, conv := range convs {
		n, err := s.messages.CountUnread(ctx, conv.ID, callerID)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
