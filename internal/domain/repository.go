package domain

import (
	"context"
	"time"
)

// FoundationRepository defines persistence operations for foundations.
type FoundationRepository interface {
	Create(ctx context.Context, f *Foundation) error
	GetByID(ctx context.Context, id int64) (*Foundation, error)
	List(ctx context.Context) ([]*Foundation, error)
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByFoundation(ctx context.Context, foundationID int64) ([]*User, error)
	// Search matches active users of the foundation whose full name or
	// email contains the term (case-insensitive), excluding excludeID.
	Search(ctx context.Context, foundationID int64, term string, excludeID int64) ([]*User, error)
	Update(ctx context.Context, u *User) error
	SoftDelete(ctx context.Context, id int64) error
	TouchLastSeen(ctx context.Context, id int64) error
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation, participantIDs []int64) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	// ListActiveForUser returns active conversations of the foundation in
	// which the user participates.
	ListActiveForUser(ctx context.Context, foundationID, userID int64) ([]*Conversation, error)
	// FindExistingDirect finds an active direct conversation of the
	// foundation whose participant set is exactly the unordered pair.
	FindExistingDirect(ctx context.Context, foundationID, userA, userB int64) (*Conversation, error)
	Touch(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

// ParticipantRepository defines operations around conversation participants.
type ParticipantRepository interface {
	ListParticipants(ctx context.Context, conversationID int64) ([]*User, error)
	ParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}

// MessageRepository defines persistence operations for messages and their
// delivered-to/read-by state.
type MessageRepository interface {
	// Create inserts the message together with its delivered-to snapshot
	// in one transaction.
	Create(ctx context.Context, m *Message, recipients []MessageRecipient) error
	GetByID(ctx context.Context, id int64) (*Message, error)
	// ListForConversation returns all messages ascending by creation time.
	ListForConversation(ctx context.Context, conversationID int64) ([]*Message, error)
	LastMessage(ctx context.Context, conversationID int64) (*Message, error)
	Recipients(ctx context.Context, messageID int64) ([]*MessageRecipient, error)
	// CountUnread counts messages of the conversation not sent by the user
	// and not yet read by them.
	CountUnread(ctx context.Context, conversationID, userID int64) (int, error)
	// MarkConversationRead stamps the user's unread recipient entries and
	// recomputes the aggregate is_read flag of affected messages. Returns
	// the number of messages newly marked. Idempotent.
	MarkConversationRead(ctx context.Context, conversationID, userID int64) (int, error)
}

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListForFoundation(ctx context.Context, foundationID int64) ([]*Notification, error)
	// ListDue returns scheduled, unsent notifications whose scheduled_for
	// is at or before now.
	ListDue(ctx context.Context, now time.Time) ([]*Notification, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
}
