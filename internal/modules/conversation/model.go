// README: Conversation and message models; one conversation per accepted match.
package conversation

import (
	"time"

	"charterhub/internal/types"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusClosed  Status = "closed"
	StatusExpired Status = "expired"
)

const (
	DefaultTTL       = 5 * time.Hour
	MaxMessageLength = 2000
)

type Conversation struct {
	ID         types.ID   `json:"id"`
	MatchID    types.ID   `json:"match_id"`
	UserID     types.ID   `json:"user_id"`
	CharterID  types.ID   `json:"charter_id"`
	Status     Status     `json:"status"`
	IsArchived bool       `json:"is_archived"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ClosedBy   *types.ID  `json:"closed_by,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (c *Conversation) IsMember(userID types.ID) bool {
	return userID != "" && (userID == c.UserID || userID == c.CharterID)
}

// Other returns the counterpart of userID, or "" when userID is not a member.
func (c *Conversation) Other(userID types.ID) types.ID {
	switch userID {
	case c.UserID:
		return c.CharterID
	case c.CharterID:
		return c.UserID
	}
	return ""
}

// ExpiredAt reports whether an active conversation has silently run past its window.
func (c *Conversation) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type Message struct {
	ID             types.ID  `json:"id"`
	ConversationID types.ID  `json:"conversation_id"`
	SenderID       types.ID  `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary is a conversation list row for the inbox view.
type Summary struct {
	Conversation
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int64    `json:"unread_count"`
}

// MatchParties is the slice of a match the engine needs to open a conversation.
type MatchParties struct {
	MatchID   types.ID
	UserID    types.ID
	CharterID *types.ID
	Status    string
}

type SweepResult struct {
	Expired int64 `json:"expired"`
	Deleted int64 `json:"deleted"`
}
