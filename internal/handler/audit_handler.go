package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/internal/service"
	"github.com/carehero-care/portal-api/pkg/response"
)

// AuditHandler exposes the read-only audit log.
type AuditHandler struct {
	audits *service.AuditService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audits *service.AuditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// List godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Param tableName query string false "Filter by table"
// @Param recordId query string false "Filter by record"
// @Param userId query string false "Filter by acting user"
// @Param action query string false "Filter by action"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var filter models.AuditFilter
	filter.TableName = c.Query("tableName")
	filter.RecordID = c.Query("recordId")
	filter.UserID = c.Query("userId")
	filter.Action = c.Query("action")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, total, err := h.audits.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, paginationFor(filter.Page, filter.PageSize, total))
}
