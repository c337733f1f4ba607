// README: Match handlers: requester-side lifecycle and the charter's inbox and response.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"charterhub/internal/apperr"
	"charterhub/internal/http/middleware"
	"charterhub/internal/modules/matching"
	"charterhub/internal/modules/trip"
	"charterhub/internal/types"
)

type MatchService interface {
	CreateMatch(ctx context.Context, cmd matching.CreateCommand) (*matching.CreateResult, error)
	SelectCharter(ctx context.Context, requesterID, matchID, charterID types.ID) (*matching.TravelMatch, error)
	RespondToMatch(ctx context.Context, charterID, matchID types.ID, accept bool) (*matching.TravelMatch, error)
	CreateTripFromMatch(ctx context.Context, requesterID, matchID types.ID) (*trip.Trip, error)
	CancelMatch(ctx context.Context, requesterID, matchID types.ID) (*matching.TravelMatch, error)
	GetMatch(ctx context.Context, userID, matchID types.ID) (*matching.TravelMatch, error)
	ListUserMatches(ctx context.Context, userID types.ID, status string) ([]matching.TravelMatch, error)
	ListCharterMatches(ctx context.Context, charterID types.ID, status string) ([]matching.TravelMatch, error)
}

type MatchHandler struct {
	svc MatchService
}

func NewMatchHandler(svc MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

type createMatchRequest struct {
	PickupAddress      string      `json:"pickup_address"`
	PickupLat          json.Number `json:"pickup_lat" binding:"required"`
	PickupLng          json.Number `json:"pickup_lng" binding:"required"`
	DestinationAddress string      `json:"destination_address"`
	DestinationLat     json.Number `json:"destination_lat" binding:"required"`
	DestinationLng     json.Number `json:"destination_lng" binding:"required"`
	ScheduledAt        string      `json:"scheduled_at"`
	MaxRadiusKm        *float64    `json:"max_radius_km"`
	WorkersCount       *int        `json:"workers_count"`
}

func (h *MatchHandler) Create(c *gin.Context) {
	var req createMatchRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.CreateMatch(c.Request.Context(), matching.CreateCommand{
		RequesterID:        middleware.CallerUID(c),
		PickupAddress:      req.PickupAddress,
		PickupLat:          req.PickupLat.String(),
		PickupLng:          req.PickupLng.String(),
		DestinationAddress: req.DestinationAddress,
		DestinationLat:     req.DestinationLat.String(),
		DestinationLng:     req.DestinationLng.String(),
		ScheduledAt:        req.ScheduledAt,
		MaxRadiusKm:        req.MaxRadiusKm,
		WorkersCount:       req.WorkersCount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, res)
}

func (h *MatchHandler) List(c *gin.Context) {
	out, err := h.svc.ListUserMatches(c.Request.Context(), middleware.CallerUID(c), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *MatchHandler) Get(c *gin.Context) {
	m, err := h.svc.GetMatch(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}

func (h *MatchHandler) SelectCharter(c *gin.Context) {
	var req struct {
		CharterID types.ID `json:"charter_id" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	m, err := h.svc.SelectCharter(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")), req.CharterID)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}

func (h *MatchHandler) Cancel(c *gin.Context) {
	m, err := h.svc.CancelMatch(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}

func (h *MatchHandler) CreateTrip(c *gin.Context) {
	t, err := h.svc.CreateTripFromMatch(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

func (h *MatchHandler) CharterList(c *gin.Context) {
	out, err := h.svc.ListCharterMatches(c.Request.Context(), middleware.CallerUID(c), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *MatchHandler) Respond(c *gin.Context) {
	var req struct {
		Accept *bool `json:"accept"`
	}
	if !bind(c, &req) {
		return
	}
	if req.Accept == nil {
		writeError(c, apperr.Validation("accept is required"))
		return
	}
	m, err := h.svc.RespondToMatch(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")), *req.Accept)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, m)
}
