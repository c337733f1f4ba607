// README: Hub is the fire-and-forget push surface used by the matching, conversation and trip modules.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"charterhub/internal/types"
)

// RoomAuthorizer decides whether a user may join a conversation room.
type RoomAuthorizer interface {
	CanJoin(ctx context.Context, conversationID, userID types.ID) (bool, error)
}

type Hub struct {
	reg *Registry
	log *zap.Logger
	now func() time.Time

	authMu sync.RWMutex
	auth   RoomAuthorizer
}

func NewHub(reg *Registry, log *zap.Logger) *Hub {
	return &Hub{reg: reg, log: log, now: time.Now}
}

// SetAuthorizer installs the room membership check. Joins are refused until one is set.
// Safe to call while connections are being served.
func (h *Hub) SetAuthorizer(a RoomAuthorizer) {
	h.authMu.Lock()
	h.auth = a
	h.authMu.Unlock()
}

func (h *Hub) authorizer() RoomAuthorizer {
	h.authMu.RLock()
	defer h.authMu.RUnlock()
	return h.auth
}

func (h *Hub) Registry() *Registry { return h.reg }

func (h *Hub) NotifyMatchUpdate(userID types.ID, u MatchUpdate) {
	h.toUser(userID, EventMatchUpdated, "", u)
}

func (h *Hub) NotifyTripCreated(userID types.ID, u TripUpdate) {
	h.toUser(userID, EventTripCreated, "", u)
}

func (h *Hub) NotifyTripUpdate(userID types.ID, u TripUpdate) {
	h.toUser(userID, EventTripUpdated, "", u)
}

func (h *Hub) NotifyNewConversation(userID types.ID, c ConversationOpened) {
	h.toUser(userID, EventConversationNew, c.ConversationID, c)
}

// BroadcastMessage reaches every socket in the room, the sender's own sessions included.
func (h *Hub) BroadcastMessage(room types.ID, message any) {
	h.toRoom(room, EventMessageNew, message, "")
}

func (h *Hub) NotifyMessagesRead(room types.ID, r MessagesRead) {
	h.toRoom(room, EventMessageRead, r, "")
}

func (h *Hub) NotifyConversationClosed(room types.ID, closedBy types.ID) {
	h.toRoom(room, EventConversationClosed, ConversationClosed{ConversationID: room, ClosedBy: closedBy}, "")
}

func (h *Hub) NotifyConversationExpired(room types.ID) {
	h.toRoom(room, EventConversationExpired, ConversationClosed{ConversationID: room}, "")
}

// NotifyTyping fans out to the room, skipping the originating connection.
func (h *Hub) NotifyTyping(room types.ID, from Conn, typing bool) {
	h.toRoom(room, EventUserTyping, Typing{UserID: from.UserID(), Typing: typing}, from.ID())
}

func (h *Hub) toUser(userID types.ID, typ EventType, room types.ID, payload any) int {
	conns := h.reg.ConnsForUser(userID)
	if len(conns) == 0 {
		h.log.Debug("no live connections; dropping event", zap.String("user_id", string(userID)), zap.String("event", string(typ)))
		return 0
	}
	msg, ok := h.encode(typ, room, payload)
	if !ok {
		return 0
	}
	return h.deliver(conns, msg, typ, "")
}

func (h *Hub) toRoom(room types.ID, typ EventType, payload any, skipConn string) int {
	conns := h.reg.ConnsInRoom(room)
	if len(conns) == 0 {
		h.log.Debug("empty room; dropping event", zap.String("conversation_id", string(room)), zap.String("event", string(typ)))
		return 0
	}
	msg, ok := h.encode(typ, room, payload)
	if !ok {
		return 0
	}
	return h.deliver(conns, msg, typ, skipConn)
}

func (h *Hub) deliver(conns []Conn, msg []byte, typ EventType, skipConn string) int {
	sent := 0
	for _, c := range conns {
		if c.ID() == skipConn {
			continue
		}
		if c.Send(msg) {
			sent++
			continue
		}
		h.log.Warn("send buffer full; dropping event",
			zap.String("conn_id", c.ID()),
			zap.String("user_id", string(c.UserID())),
			zap.String("event", string(typ)))
	}
	return sent
}

func (h *Hub) encode(typ EventType, room types.ID, payload any) ([]byte, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal realtime payload", zap.String("event", string(typ)), zap.Error(err))
		return nil, false
	}
	msg, err := json.Marshal(Event{Type: typ, Room: room, Timestamp: h.now(), Payload: raw})
	if err != nil {
		h.log.Error("marshal realtime event", zap.String("event", string(typ)), zap.Error(err))
		return nil, false
	}
	return msg, true
}

// reply sends a direct event to a single connection.
func (h *Hub) reply(c Conn, typ EventType, room types.ID, payload any) {
	if msg, ok := h.encode(typ, room, payload); ok {
		h.deliver([]Conn{c}, msg, typ, "")
	}
}

// HandleInbound processes one client frame. Identity comes from c, never the payload.
func (h *Hub) HandleInbound(ctx context.Context, c Conn, frame []byte) {
	var in inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		h.reply(c, EventError, "", errorPayload{Message: "malformed event"})
		return
	}
	switch in.Type {
	case EventJoinConversation:
		h.join(ctx, c, in.ConversationID)
	case EventLeaveConversation:
		h.reg.Leave(c, in.ConversationID)
		h.reply(c, EventLeftConversation, in.ConversationID, struct{}{})
	case EventTyping, EventStopTyping:
		if !h.reg.InRoom(c, in.ConversationID) {
			return
		}
		h.NotifyTyping(in.ConversationID, c, in.Type == EventTyping)
	default:
		h.reply(c, EventError, "", errorPayload{Message: "unknown event type " + string(in.Type)})
	}
}

func (h *Hub) join(ctx context.Context, c Conn, room types.ID) {
	if room == "" {
		h.reply(c, EventError, "", errorPayload{Message: "conversation_id is required"})
		return
	}
	auth := h.authorizer()
	if auth == nil {
		h.reply(c, EventError, room, errorPayload{Message: "joining is unavailable"})
		return
	}
	ok, err := auth.CanJoin(ctx, room, c.UserID())
	if err != nil {
		h.log.Warn("room authorization failed", zap.String("conversation_id", string(room)), zap.Error(err))
		h.reply(c, EventError, room, errorPayload{Message: "cannot join conversation"})
		return
	}
	if !ok {
		h.reply(c, EventError, room, errorPayload{Message: "not a participant of this conversation"})
		return
	}
	h.reg.Join(c, room)
	h.reply(c, EventJoinedConversation, room, struct{}{})
}
