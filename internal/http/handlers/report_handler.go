// README: Report handlers: filing by members, review and resolution by admins.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"charterhub/internal/http/middleware"
	"charterhub/internal/modules/report"
	"charterhub/internal/types"
)

type ReportService interface {
	Create(ctx context.Context, reporterID types.ID, cmd report.CreateCommand) (*report.Report, error)
	List(ctx context.Context, status string) ([]report.Report, error)
	Get(ctx context.Context, reportID types.ID) (*report.Detail, error)
	Update(ctx context.Context, adminID, reportID types.ID, cmd report.UpdateCommand) (*report.Report, error)
	ListByReporter(ctx context.Context, reporterID types.ID) ([]report.Report, error)
	ListAgainst(ctx context.Context, reportedID types.ID) ([]report.Report, error)
}

type ReportHandler struct {
	svc ReportService
}

func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

func (h *ReportHandler) Create(c *gin.Context) {
	var cmd report.CreateCommand
	if !bind(c, &cmd) {
		return
	}
	r, err := h.svc.Create(c.Request.Context(), middleware.CallerUID(c), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *ReportHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *ReportHandler) Mine(c *gin.Context) {
	out, err := h.svc.ListByReporter(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *ReportHandler) AgainstMe(c *gin.Context) {
	out, err := h.svc.ListAgainst(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (h *ReportHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *ReportHandler) Update(c *gin.Context) {
	var cmd report.UpdateCommand
	if !bind(c, &cmd) {
		return
	}
	r, err := h.svc.Update(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}
