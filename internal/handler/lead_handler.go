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

// LeadHandler exposes client lead endpoints.
type LeadHandler struct {
	leads     *service.LeadService
	pipelines *service.PipelineService
}

// NewLeadHandler constructs LeadHandler.
func NewLeadHandler(leads *service.LeadService, pipelines *service.PipelineService) *LeadHandler {
	return &LeadHandler{leads: leads, pipelines: pipelines}
}

// List godoc
// @Summary List client leads
// @Tags Leads
// @Produce json
// @Param status query string false "Filter by lead status"
// @Param county query string false "Filter by county"
// @Param assignedTo query string false "Filter by assignee"
// @Param search query string false "Search by name or phone"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort column"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads [get]
func (h *LeadHandler) List(c *gin.Context) {
	var filter models.LeadFilter
	filter.Status = models.LeadStatus(c.Query("status"))
	filter.County = strings.TrimSpace(c.Query("county"))
	filter.AssignedTo = c.Query("assignedTo")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	leads, total, err := h.leads.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leads, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get lead detail
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads/{id} [get]
func (h *LeadHandler) Get(c *gin.Context) {
	lead, err := h.leads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lead, nil)
}

// Create godoc
// @Summary Create a lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body service.CreateLeadRequest true "Lead payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /leads [post]
func (h *LeadHandler) Create(c *gin.Context) {
	var req service.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lead, err := h.leads.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lead)
}

// Update godoc
// @Summary Update a lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param payload body service.UpdateLeadRequest true "Lead payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads/{id} [put]
func (h *LeadHandler) Update(c *gin.Context) {
	var req service.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lead, err := h.leads.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lead, nil)
}

// Delete godoc
// @Summary Delete a lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /leads/{id} [delete]
func (h *LeadHandler) Delete(c *gin.Context) {
	if err := h.leads.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkUpdateStatus godoc
// @Summary Update the status of several leads at once
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body service.BulkLeadStatusRequest true "Lead IDs and target status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads/bulk/status [post]
func (h *LeadHandler) BulkUpdateStatus(c *gin.Context) {
	var req service.BulkLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.leads.BulkUpdateStatus(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BulkDelete godoc
// @Summary Delete several leads at once
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body service.BulkLeadDeleteRequest true "Lead IDs"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads/bulk/delete [post]
func (h *LeadHandler) BulkDelete(c *gin.Context) {
	var req service.BulkLeadDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.leads.BulkDelete(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Statuses godoc
// @Summary List the lead statuses in funnel order
// @Tags Leads
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads/statuses [get]
func (h *LeadHandler) Statuses(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.leads.Statuses(), nil)
}

// GetPipeline godoc
// @Summary Get the enrollment pipeline for a lead
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads/{id}/pipeline [get]
func (h *LeadHandler) GetPipeline(c *gin.Context) {
	pipeline, err := h.pipelines.GetByLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pipeline, nil)
}

// UpsertPipeline godoc
// @Summary Create or update the enrollment pipeline for a lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param payload body service.UpsertPipelineRequest true "Pipeline payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leads/{id}/pipeline [put]
func (h *LeadHandler) UpsertPipeline(c *gin.Context) {
	var req service.UpsertPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pipeline, err := h.pipelines.Upsert(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pipeline, nil)
}
