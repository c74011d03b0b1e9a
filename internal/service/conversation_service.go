package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/metrics"
)

type ConversationService struct {
	conversations domain.ConversationRepository
	participants  domain.ParticipantRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
	metrics       *metrics.Metrics
}

func NewConversationService(
	conversations domain.ConversationRepository,
	participants domain.ParticipantRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	m *metrics.Metrics,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		participants:  participants,
		messages:      messages,
		users:         users,
		metrics:       m,
	}
}

type ConversationCreateInput struct {
	FoundationID   int64
	ParticipantIDs []int64
	Type           string
	Title          *string
	BeneficiaryID  *int64
	ProgramID      *int64
	SessionID      *int64
}

func validConversationType(t string) bool {
	switch t {
	case domain.ConversationDirect, domain.ConversationGroup,
		domain.ConversationProgram, domain.ConversationAnnouncement:
		return true
	}
	return false
}

// Create creates a conversation, or returns the existing one for a direct
// pair (idempotent creation for direct chats). The creator is always part
// of the participant list even when omitted from the input.
func (s *ConversationService) Create(
	ctx context.Context,
	callerID int64,
	in ConversationCreateInput,
) (*domain.Conversation, error) {
	if callerID == 0 {
		return nil, domain.ErrNotAuthenticated
	}
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("get caller: %w", err)
	}
	if caller == nil {
		return nil, domain.ErrUserNotFound
	}
	if !caller.IsActive || caller.FoundationID != in.FoundationID {
		return nil, domain.ErrAccessDenied
	}
	if len(in.ParticipantIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if !validConversationType(in.Type) {
		return nil, domain.ErrInvalidInput
	}

	// Deduplicate while preserving input order; the creator is appended
	// when absent.
	seen := make(map[int64]struct{}, len(in.ParticipantIDs)+1)
	ids := make([]int64, 0, len(in.ParticipantIDs)+1)
	for _, id := range in.ParticipantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if _, ok := seen[callerID]; !ok {
		ids = append(ids, callerID)
	}

	if in.Type == domain.ConversationDirect {
		// A direct conversation is exactly one pair.
		if len(ids) != 2 {
			return nil, domain.ErrInvalidInput
		}
		existing, err := s.conversations.FindExistingDirect(ctx, in.FoundationID, ids[0], ids[1])
		if err != nil {
			return nil, fmt.Errorf("find existing direct: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	conv := &domain.Conversation{
		FoundationID:  in.FoundationID,
		Title:         in.Title,
		Type:          in.Type,
		BeneficiaryID: in.BeneficiaryID,
		ProgramID:     in.ProgramID,
		SessionID:     in.SessionID,
		CreatedBy:     callerID,
	}
	if err := s.conversations.Create(ctx, conv, ids); err != nil {
		return nil, err
	}
	s.metrics.ConversationsCreatedTotal.Inc()

	// Announce the conversation with a system message nobody has read yet.
	content := "Conversation started"
	if in.Type != domain.ConversationDirect {
		content = fmt.Sprintf("%s created this %s conversation", caller.FullName(), in.Type)
	}
	recipients := make([]domain.MessageRecipient, len(ids))
	for i, id := range ids {
		recipients[i] = domain.MessageRecipient{UserID: id}
	}
	sysMsg := &domain.Message{
		ConversationID: conv.ID,
		FoundationID:   in.FoundationID,
		SenderID:       callerID,
		Content:        content,
		Type:           domain.MessageSystem,
	}
	if err := s.messages.Create(ctx, sysMsg, recipients); err != nil {
		return nil, fmt.Errorf("create system message: %w", err)
	}

	return conv, nil
}

// ParticipantProfile is the resolved view of a conversation member.
type ParticipantProfile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func profileOf(u *domain.User) *ParticipantProfile {
	return &ParticipantProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}

// LastMessagePreview carries the most recent message of a conversation
// together with the sender's name.
type LastMessagePreview struct {
	ID              int64     `json:"id"`
	Content         string    `json:"content"`
	Type            string    `json:"type"`
	SenderID        int64     `json:"sender_id"`
	SenderFirstName string    `json:"sender_first_name"`
	SenderLastName  string    `json:"sender_last_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// ConversationSummary is the list view of a conversation for one caller.
type ConversationSummary struct {
	Conversation *domain.Conversation  `json:"conversation"`
	LastMessage  *LastMessagePreview   `json:"last_message,omitempty"`
	UnreadCount  int                   `json:"unread_count"`
	Participants []*ParticipantProfile `json:"participants"`
}

// activityTime is the sort key: last message time when present, otherwise
// the conversation's creation time.
func (cs *ConversationSummary) activityTime() time.Time {
	if cs.LastMessage != nil {
		return cs.LastMessage.CreatedAt
	}
	return cs.Conversation.CreatedAt
}

// ListForUser returns summaries of the caller's active conversations in
// the foundation, most recently active first. Unknown callers and callers
// from another foundation get an empty list rather than an error.
func (s *ConversationService) ListForUser(
	ctx context.Context,
	callerID int64,
	foundationID int64,
) ([]*ConversationSummary, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("get caller: %w", err)
	}
	if caller == nil || !caller.IsActive || caller.FoundationID != foundationID {
		return []*ConversationSummary{}, nil
	}

	convs, err := s.conversations.ListActiveForUser(ctx, foundationID, callerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := &ConversationSummary{Conversation: conv}

		last, err := s.messages.LastMessage(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			preview := &LastMessagePreview{
				ID:        last.ID,
				Content:   last.Content,
				Type:      last.Type,
				SenderID:  last.SenderID,
				CreatedAt: last.CreatedAt,
			}
			sender, err := s.users.GetByID(ctx, last.SenderID)
			if err != nil {
				return nil, fmt.Errorf("get sender: %w", err)
			}
			// A vanished sender leaves the name fields empty.
			if sender != nil {
				preview.SenderFirstName = sender.FirstName
				preview.SenderLastName = sender.LastName
			}
			summary.LastMessage = preview
		}

		unread, err := s.messages.CountUnread(ctx, conv.ID, callerID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		// Vanished users are absent from the join result and therefore
		// dropped from the resolved profile list.
		members, err := s.participants.ListParticipants(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		profiles := make([]*ParticipantProfile, 0, len(members))
		for _, m := range members {
			profiles = append(profiles, profileOf(m))
		}
		summary.Participants = profiles

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].activityTime().After(summaries[j].activityTime())
	})
	return summaries, nil
}

// Get returns one conversation for a participant.
func (s *ConversationService) Get(
	ctx context.Context,
	callerID int64,
	conversationID int64,
) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.ErrAccessDenied
	}
	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, domain.ErrAccessDenied
	}
	return conv, nil
}

// Deactivate soft-deletes a conversation. The row, its messages, and its
// notifications all remain.
func (s *ConversationService) Deactivate(
	ctx context.Context,
	callerID int64,
	conversationID int64,
) error {
	if callerID == 0 {
		return domain.ErrNotAuthenticated
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return domain.ErrAccessDenied
	}
	isParticipant, err := s.participants.IsParticipant(ctx, conversationID, callerID)
	if err != nil {
		return err
	}
	if !isParticipant {
		return domain.ErrAccessDenied
	}
	return s.conversations.Deactivate(ctx, conversationID)
}
