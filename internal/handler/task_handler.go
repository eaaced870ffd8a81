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

// TaskHandler exposes follow-up task endpoints.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler constructs TaskHandler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// List godoc
// @Summary List follow-up tasks
// @Tags Tasks
// @Produce json
// @Param leadId query string false "Filter by lead"
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param assignedTo query string false "Filter by assignee"
// @Param search query string false "Search by description"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	var filter models.TaskFilter
	filter.LeadID = c.Query("leadId")
	filter.Status = models.TaskStatus(c.Query("status"))
	filter.Priority = models.TaskPriority(c.Query("priority"))
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

	tasks, total, err := h.tasks.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get task detail
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Create godoc
// @Summary Create a follow-up task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body service.CreateTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// Update godoc
// @Summary Update a pending or escalated task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body service.UpdateTaskRequest true "Task payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Complete godoc
// @Summary Mark a task completed
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	task, err := h.tasks.Complete(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Delete godoc
// @Summary Delete a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
