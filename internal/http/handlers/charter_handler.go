// README: Charter self-service handlers: availability toggle and origin updates.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"charterhub/internal/apperr"
	"charterhub/internal/http/middleware"
	"charterhub/internal/modules/charter"
	"charterhub/internal/types"
)

type CharterService interface {
	ToggleAvailability(ctx context.Context, charterID types.ID, available bool) (*charter.Availability, error)
	GetAvailability(ctx context.Context, charterID types.ID) (*charter.Availability, error)
	UpdateOrigin(ctx context.Context, charterID types.ID, address, lat, lng string) (*types.Point, error)
}

type CharterHandler struct {
	svc CharterService
}

func NewCharterHandler(svc CharterService) *CharterHandler {
	return &CharterHandler{svc: svc}
}

func (h *CharterHandler) SetAvailability(c *gin.Context) {
	var req struct {
		IsAvailable *bool `json:"is_available"`
	}
	if !bind(c, &req) {
		return
	}
	if req.IsAvailable == nil {
		writeError(c, apperr.Validation("is_available is required"))
		return
	}
	a, err := h.svc.ToggleAvailability(c.Request.Context(), middleware.CallerUID(c), *req.IsAvailable)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, a)
}

func (h *CharterHandler) GetAvailability(c *gin.Context) {
	a, err := h.svc.GetAvailability(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, a)
}

func (h *CharterHandler) UpdateOrigin(c *gin.Context) {
	var req struct {
		Address string      `json:"address"`
		Lat     json.Number `json:"lat" binding:"required"`
		Lng     json.Number `json:"lng" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	p, err := h.svc.UpdateOrigin(c.Request.Context(), middleware.CallerUID(c), req.Address, req.Lat.String(), req.Lng.String())
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"origin_address": req.Address, "origin": p})
}
