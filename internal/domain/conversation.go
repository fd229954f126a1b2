package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxMessageBody = 4000

// Conversation is a 1:1 thread between two members.
type Conversation struct {
	ID             string
	ParticipantIDs []string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func (c *Conversation) HasParticipant(profileID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == profileID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not profileID.
func (c *Conversation) OtherParticipant(profileID string) string {
	for _, id := range c.ParticipantIDs {
		if id != profileID {
			return id
		}
	}
	return ""
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageCursor marks the oldest message a reader has seen. Messages are
// ordered by (CreatedAt, ID); the zero cursor selects the newest page.
type MessageCursor struct {
	Before   time.Time
	BeforeID string
}

func (c MessageCursor) IsZero() bool { return c.Before.IsZero() }

// Admits reports whether m sorts strictly before the cursor.
func (c MessageCursor) Admits(m *Message) bool {
	if c.Before.IsZero() || m.CreatedAt.Before(c.Before) {
		return true
	}
	return c.BeforeID != "" && m.CreatedAt.Equal(c.Before) && m.ID < c.BeforeID
}

// NewerThan orders messages newest first, breaking timestamp ties by ID.
func (m *Message) NewerThan(o *Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.After(o.CreatedAt)
	}
	return m.ID > o.ID
}

// DirectPairKey identifies the 1:1 thread between two members regardless of order.
func DirectPairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// NewMessage validates a body and stamps the creation time.
func NewMessage(conversationID, senderID, body string) (*Message, error) {
	if conversationID == "" || senderID == "" {
		return nil, fmt.Errorf("%w: conversation_id and sender_id are required", ErrInvalidInput)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(body) > MaxMessageBody {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, MaxMessageBody)
	}
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ConversationSummary is one row of a member's inbox.
type ConversationSummary struct {
	ID             string       `json:"id"`
	Other          *ProfileCard `json:"other"`
	LastMessage    *Message     `json:"last_message,omitempty"`
	UnreadCount    int          `json:"unread_count"`
	LastActivityAt time.Time    `json:"last_activity_at"`
}

// InboxRow is what the repository returns for one conversation of a member.
type InboxRow struct {
	ConversationID string
	OtherID        string
	LastMessage    *Message
	UnreadCount    int
	LastActivityAt time.Time
}
