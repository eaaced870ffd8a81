package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/internal/service"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
	"github.com/carehero-care/portal-api/pkg/response"
)

// ReferralHandler exposes internal referral tracking endpoints.
type ReferralHandler struct {
	referrals *service.ReferralService
	metrics   *service.MetricsService
}

// NewReferralHandler constructs ReferralHandler.
func NewReferralHandler(referrals *service.ReferralService, metrics *service.MetricsService) *ReferralHandler {
	return &ReferralHandler{referrals: referrals, metrics: metrics}
}

// List godoc
// @Summary List referral submissions
// @Tags Referrals
// @Produce json
// @Param agency query string false "Filter by agency"
// @Param locStatus query string false "Filter by LOC outcome"
// @Param leadId query string false "Filter by linked lead"
// @Param search query string false "Search by client name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /referrals [get]
func (h *ReferralHandler) List(c *gin.Context) {
	var filter models.ReferralFilter
	filter.Agency = c.Query("agency")
	filter.LOCStatus = models.LOCOutcome(c.Query("locStatus"))
	filter.LeadID = c.Query("leadId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	referrals, total, err := h.referrals.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, referrals, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get referral detail
// @Tags Referrals
// @Produce json
// @Param id path string true "Referral ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /referrals/{id} [get]
func (h *ReferralHandler) Get(c *gin.Context) {
	referral, err := h.referrals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, referral, nil)
}

// Create godoc
// @Summary Record a referral submission
// @Tags Referrals
// @Accept json
// @Produce json
// @Param payload body service.UpsertReferralRequest true "Referral payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /referrals [post]
func (h *ReferralHandler) Create(c *gin.Context) {
	var req service.UpsertReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	referral, err := h.referrals.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, referral)
}

// Update godoc
// @Summary Update a referral submission
// @Tags Referrals
// @Accept json
// @Produce json
// @Param id path string true "Referral ID"
// @Param payload body service.UpsertReferralRequest true "Referral payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /referrals/{id} [put]
func (h *ReferralHandler) Update(c *gin.Context) {
	var req service.UpsertReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	referral, err := h.referrals.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, referral, nil)
}

// Delete godoc
// @Summary Delete a referral submission
// @Tags Referrals
// @Produce json
// @Param id path string true "Referral ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /referrals/{id} [delete]
func (h *ReferralHandler) Delete(c *gin.Context) {
	if err := h.referrals.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AttachScreenshot godoc
// @Summary Attach a confirmation screenshot to a referral
// @Tags Referrals
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Referral ID"
// @Param file formData file true "Screenshot image"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /referrals/{id}/screenshot [post]
func (h *ReferralHandler) AttachScreenshot(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "screenshot file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}
	defer file.Close()

	referral, err := h.referrals.AttachScreenshot(c.Request.Context(), actorFromContext(c), c.Param("id"), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		h.metrics.RecordUpload("rejected")
		response.Error(c, err)
		return
	}
	h.metrics.RecordUpload("accepted")
	response.JSON(c, http.StatusOK, referral, nil)
}

// WeeklyReport godoc
// @Summary Weekly referral report
// @Tags Referrals
// @Produce json
// @Param weekOffset query int false "Weeks back from the current week"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /referrals/reports/weekly [get]
func (h *ReferralHandler) WeeklyReport(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("weekOffset", "0"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "weekOffset must be an integer"))
		return
	}
	report, err := h.referrals.WeeklyReport(c.Request.Context(), offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
