// README: Conversation handlers: open for a match, inbox, messages, close.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"charterhub/internal/http/middleware"
	"charterhub/internal/modules/conversation"
	"charterhub/internal/modules/matching"
	"charterhub/internal/types"
)

type ConversationService interface {
	Create(ctx context.Context, matchID types.ID) (*conversation.Conversation, error)
	ListForUser(ctx context.Context, userID types.ID) ([]conversation.Summary, error)
	GetMessages(ctx context.Context, conversationID, userID types.ID) ([]conversation.Message, error)
	SendMessage(ctx context.Context, conversationID, senderID types.ID, content string) (*conversation.Message, error)
	Close(ctx context.Context, conversationID, userID types.ID) (*conversation.Conversation, error)
}

// MatchReader gates conversation creation on match membership.
type MatchReader interface {
	GetMatch(ctx context.Context, userID, matchID types.ID) (*matching.TravelMatch, error)
}

type ConversationHandler struct {
	svc     ConversationService
	matches MatchReader
}

func NewConversationHandler(svc ConversationService, matches MatchReader) *ConversationHandler {
	return &ConversationHandler{svc: svc, matches: matches}
}

func (h *ConversationHandler) CreateForMatch(c *gin.Context) {
	ctx := c.Request.Context()
	matchID := types.ID(c.Param("matchId"))
	if _, err := h.matches.GetMatch(ctx, middleware.CallerUID(c), matchID); err != nil {
		writeError(c, err)
		return
	}
	conv, err := h.svc.Create(ctx, matchID)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, conv)
}

func (h *ConversationHandler) Mine(c *gin.Context) {
	out, err := h.svc.ListForUser(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	out, err := h.svc.GetMessages(c.Request.Context(), types.ID(c.Param("id")), middleware.CallerUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *ConversationHandler) Send(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if !bind(c, &req) {
		return
	}
	msg, err := h.svc.SendMessage(c.Request.Context(), types.ID(c.Param("id")), middleware.CallerUID(c), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, msg)
}

func (h *ConversationHandler) Close(c *gin.Context) {
	conv, err := h.svc.Close(c.Request.Context(), types.ID(c.Param("id")), middleware.CallerUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, conv)
}
