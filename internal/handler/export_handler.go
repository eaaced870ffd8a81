package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/internal/service"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
	"github.com/carehero-care/portal-api/pkg/response"
)

// ExportHandler exposes the synchronous CSV downloads and the async
// export job endpoints.
type ExportHandler struct {
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService, metrics *service.MetricsService) *ExportHandler {
	return &ExportHandler{exports: exports, metrics: metrics}
}

// DownloadCSV godoc
// @Summary Download a dataset as CSV
// @Tags Exports
// @Produce text/csv
// @Param type path string true "leads, referrals, tasks or weekly_report"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /exports/csv/{type} [get]
func (h *ExportHandler) DownloadCSV(c *gin.Context) {
	payload, filename, err := h.exports.ExportCSV(c.Request.Context(), models.ExportType(c.Param("type")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/csv", payload)
}

// CSVFor returns a handler that downloads a fixed dataset as CSV. It backs
// the per-resource export routes such as GET /leads/export.
func (h *ExportHandler) CSVFor(typ models.ExportType) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, filename, err := h.exports.ExportCSV(c.Request.Context(), typ)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "text/csv", payload)
	}
}

// Enqueue godoc
// @Summary Queue an asynchronous export job
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body service.CreateExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /exports [post]
func (h *ExportHandler) Enqueue(c *gin.Context) {
	var req service.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.exports.Enqueue(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		h.metrics.RecordExportJob(req.Type, "rejected")
		response.Error(c, err)
		return
	}
	h.metrics.RecordExportJob(req.Type, "queued")
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Export job status and, once finished, its signed download URL
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	status, err := h.exports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.exports.OpenDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat export file"))
		return
	}
	filename := filepath.Base(file.Name())
	mimeType := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		mimeType = "text/csv"
	case ".pdf":
		mimeType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mimeType, file, nil)
}
