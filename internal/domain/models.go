package domain

import "time"

// Conversation types.
const (
	ConversationDirect       = "direct"
	ConversationGroup        = "group"
	ConversationProgram      = "program"
	ConversationAnnouncement = "announcement"
)

// Message types.
const (
	MessageText   = "text"
	MessageFile   = "file"
	MessageImage  = "image"
	MessageSystem = "system"
)

// Notification constants used by the message fan-out path.
const (
	RecipientSpecificUsers = "specific_users"
	NotificationAlert      = "alert"
	NotificationInfo       = "info"
	ChannelInApp           = "in_app"
)

// Foundation is a tenant boundary; every row in the system is scoped to
// exactly one foundation.
type Foundation struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User represents an application user belonging to a foundation.
type User struct {
	ID             int64     `db:"id" json:"id"`
	FoundationID   int64     `db:"foundation_id" json:"foundation_id"`
	Email          string    `db:"email" json:"email"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Role           string    `db:"role" json:"role"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	LastSeen       time.Time `db:"last_seen" json:"last_seen"`
}

// FullName returns the display name used in system messages and
// notification bodies.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Conversation represents a conversation between foundation members.
// Deleting a conversation only flips IsActive; rows are never removed.
type Conversation struct {
	ID            int64     `db:"id" json:"id"`
	FoundationID  int64     `db:"foundation_id" json:"foundation_id"`
	Title         *string   `db:"title" json:"title,omitempty"`
	Type          string    `db:"type" json:"type"`
	BeneficiaryID *int64    `db:"beneficiary_id" json:"beneficiary_id,omitempty"`
	ProgramID     *int64    `db:"program_id" json:"program_id,omitempty"`
	SessionID     *int64    `db:"session_id" json:"session_id,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedBy     int64     `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Message represents a single message in a conversation. IsRead is an
// aggregate: true once every delivered-to recipient has read the message.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	FoundationID   int64     `db:"foundation_id" json:"foundation_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	Type           string    `db:"type" json:"type"`
	AttachmentID   *string   `db:"attachment_id" json:"attachment_id,omitempty"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// MessageRecipient is one entry of a message's delivered-to snapshot.
// The snapshot is fixed at send time; membership changes afterwards do not
// re-sync it. ReadAt is set at most once and never cleared.
type MessageRecipient struct {
	MessageID int64      `db:"message_id" json:"message_id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
}

// Notification is a single fan-out record addressed to one or more
// recipients. Per-recipient read state is not tracked on this row.
type Notification struct {
	ID             int64      `db:"id" json:"id"`
	FoundationID   int64      `db:"foundation_id" json:"foundation_id"`
	RecipientType  string     `db:"recipient_type" json:"recipient_type"`
	Recipients     []int64    `db:"recipients" json:"recipients"`
	Title          string     `db:"title" json:"title"`
	Message        string     `db:"message" json:"message"`
	Type           string     `db:"type" json:"type"`
	Channels       []string   `db:"channels" json:"channels"`
	Priority       string     `db:"priority" json:"priority"`
	RequiresAction bool       `db:"requires_action" json:"requires_action"`
	IsScheduled    bool       `db:"is_scheduled" json:"is_scheduled"`
	ScheduledFor   *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	IsSent         bool       `db:"is_sent" json:"is_sent"`
	SentAt         *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedBy      int64      `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// HasRecipient reports whether the given user is addressed by this
// notification.
func (n *Notification) HasRecipient(userID int64) bool {
	for _, id := range n.Recipients {
		if id == userID {
			return true
		}
	}
	return false
}
