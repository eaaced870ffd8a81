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

// IntakeHandler exposes the public intake forms and the staff views of
// their submissions. The public endpoints require no authentication.
type IntakeHandler struct {
	intake *service.IntakeService
}

// NewIntakeHandler constructs IntakeHandler.
func NewIntakeHandler(intake *service.IntakeService) *IntakeHandler {
	return &IntakeHandler{intake: intake}
}

// SubmitContact godoc
// @Summary Submit the public contact form
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body service.ContactRequest true "Contact form"
// @Success 201 {object} response.Envelope
// @Router /public/contact [post]
func (h *IntakeHandler) SubmitContact(c *gin.Context) {
	var req service.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	submission, err := h.intake.SubmitContact(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// SubmitJobApplication godoc
// @Summary Submit the public caregiver job application
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body service.JobApplicationRequest true "Job application"
// @Success 201 {object} response.Envelope
// @Router /public/job-applications [post]
func (h *IntakeHandler) SubmitJobApplication(c *gin.Context) {
	var req service.JobApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.intake.SubmitJobApplication(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// SubmitReferral godoc
// @Summary Submit the public referral form
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body service.PublicReferralRequest true "Referral form"
// @Success 201 {object} response.Envelope
// @Router /public/referrals [post]
func (h *IntakeHandler) SubmitReferral(c *gin.Context) {
	var req service.PublicReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lead, err := h.intake.SubmitReferral(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lead)
}

// GetStarted godoc
// @Summary Submit the get-started form and open an enrollment pipeline
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body service.GetStartedRequest true "Get-started form"
// @Success 201 {object} response.Envelope
// @Router /public/get-started [post]
func (h *IntakeHandler) GetStarted(c *gin.Context) {
	var req service.GetStartedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.intake.GetStarted(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ListContacts godoc
// @Summary List contact form submissions
// @Tags Intake
// @Produce json
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /intake/contacts [get]
func (h *IntakeHandler) ListContacts(c *gin.Context) {
	filter := submissionFilterFrom(c)
	contacts, total, err := h.intake.ListContacts(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, paginationFor(filter.Page, filter.PageSize, total))
}

// ListJobApplications godoc
// @Summary List job applications
// @Tags Intake
// @Produce json
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /intake/job-applications [get]
func (h *IntakeHandler) ListJobApplications(c *gin.Context) {
	filter := submissionFilterFrom(c)
	applications, total, err := h.intake.ListJobApplications(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, paginationFor(filter.Page, filter.PageSize, total))
}

func submissionFilterFrom(c *gin.Context) models.SubmissionFilter {
	var filter models.SubmissionFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}
