// README: Trip handlers: completion handshake and feedback eligibility.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"charterhub/internal/http/middleware"
	"charterhub/internal/modules/trip"
	"charterhub/internal/types"
)

type TripService interface {
	Get(ctx context.Context, userID, tripID types.ID) (*trip.Trip, error)
	CharterComplete(ctx context.Context, charterID, tripID types.ID) (*trip.Trip, error)
	Confirm(ctx context.Context, requesterID, tripID types.ID) (*trip.Trip, error)
	CanLeaveFeedback(ctx context.Context, userID, tripID types.ID) (bool, error)
}

type TripHandler struct {
	svc TripService
}

func NewTripHandler(svc TripService) *TripHandler {
	return &TripHandler{svc: svc}
}

func (h *TripHandler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) CharterComplete(c *gin.Context) {
	t, err := h.svc.CharterComplete(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) Confirm(c *gin.Context) {
	t, err := h.svc.Confirm(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) CanFeedback(c *gin.Context) {
	ok, err := h.svc.CanLeaveFeedback(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"can_leave_feedback": ok})
}
