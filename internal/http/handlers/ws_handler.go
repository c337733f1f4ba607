// README: Websocket endpoint; authenticates before upgrading and hands the socket to the hub.
package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"charterhub/internal/http/middleware"
	"charterhub/internal/realtime"
)

type WSHandler struct {
	hub *realtime.Hub
	log *zap.Logger
}

func NewWSHandler(hub *realtime.Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: log}
}

// Serve must run behind middleware.Auth; the caller id is already resolved.
func (h *WSHandler) Serve(c *gin.Context) {
	uid := middleware.CallerUID(c)
	conn, err := realtime.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", string(uid)), zap.Error(err))
		return
	}
	h.hub.Serve(c.Request.Context(), uid, conn)
}
