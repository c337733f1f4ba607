// README: Realtime event envelope and payloads pushed to websocket clients.
package realtime

import (
	"encoding/json"
	"time"

	"charterhub/internal/types"
)

type EventType string

// Outbound.
const (
	EventMatchUpdated        EventType = "match:updated"
	EventTripCreated         EventType = "trip:created"
	EventTripUpdated         EventType = "trip:updated"
	EventConversationNew     EventType = "conversation:new"
	EventConversationClosed  EventType = "conversation:closed"
	EventConversationExpired EventType = "conversation:expired"
	EventMessageNew          EventType = "message:new"
	EventMessageRead         EventType = "message:read"
	EventUserTyping          EventType = "user:typing"
	EventJoinedConversation  EventType = "conversation:joined"
	EventLeftConversation    EventType = "conversation:left"
	EventError               EventType = "error"
)

// Inbound.
const (
	EventJoinConversation  EventType = "join-conversation"
	EventLeaveConversation EventType = "leave-conversation"
	EventTyping            EventType = "typing"
	EventStopTyping        EventType = "stop-typing"
)

type Event struct {
	Type      EventType       `json:"type"`
	Room      types.ID        `json:"conversation_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type MatchUpdate struct {
	MatchID          types.ID       `json:"match_id"`
	Status           string         `json:"status"`
	CharterID        *types.ID      `json:"charter_id,omitempty"`
	EstimatedCredits *types.Credits `json:"estimated_credits,omitempty"`
	ConversationID   *types.ID      `json:"conversation_id,omitempty"`
	TripID           *types.ID      `json:"trip_id,omitempty"`
}

type TripUpdate struct {
	TripID           types.ID      `json:"trip_id"`
	MatchID          types.ID      `json:"match_id"`
	Status           string        `json:"status"`
	EstimatedCredits types.Credits `json:"estimated_credits"`
}

type ConversationOpened struct {
	ConversationID types.ID  `json:"conversation_id"`
	MatchID        types.ID  `json:"match_id"`
	UserID         types.ID  `json:"user_id"`
	CharterID      types.ID  `json:"charter_id"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type ConversationClosed struct {
	ConversationID types.ID `json:"conversation_id"`
	ClosedBy       types.ID `json:"closed_by,omitempty"`
}

type MessagesRead struct {
	ConversationID types.ID `json:"conversation_id"`
	ReaderID       types.ID `json:"reader_id"`
	Count          int64    `json:"count"`
}

type Typing struct {
	UserID types.ID `json:"user_id"`
	Typing bool     `json:"typing"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// inbound is what clients send; identity is never read from it.
type inbound struct {
	Type           EventType `json:"type"`
	ConversationID types.ID  `json:"conversation_id"`
}
