package handlers

import (
	"github.com/gin-gonic/gin"

	"lotledger/internal/domain/reports"
	"lotledger/internal/infrastructure/http/v1/dto"
)

// ReportHandler handles HTTP requests for reports.
type ReportHandler struct {
	*BaseHandler
	reports *reports.Service
}

// NewReportHandler creates a new report handler.
func NewReportHandler(base *BaseHandler, svc *reports.Service) *ReportHandler {
	return &ReportHandler{BaseHandler: base, reports: svc}
}

// Dashboard handles GET /reports/dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	var q dto.DashboardQuery
	if !h.BindQuery(c, &q) {
		return
	}
	cfg, ok := h.Settings(c)
	if !ok {
		return
	}

	d, err := h.reports.Dashboard(c.Request.Context(), cfg, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, d)
}
