package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type taskRepo interface {
	List(ctx context.Context, filter models.TaskFilter) ([]models.FollowUpTask, int, error)
	FindByID(ctx context.Context, id string) (*models.FollowUpTask, error)
	Create(ctx context.Context, task *models.FollowUpTask) error
	Update(ctx context.Context, task *models.FollowUpTask) error
	MarkComplete(ctx context.Context, id string, completedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// CreateTaskRequest schedules a follow-up action against a lead.
type CreateTaskRequest struct {
	LeadID      string    `json:"lead_id" validate:"required"`
	TaskType    string    `json:"task_type" validate:"required,oneof=call email portal_follow_up document_request"`
	Description string    `json:"description" validate:"required"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Priority    string    `json:"priority" validate:"required,oneof=high medium low"`
	Notes       *string   `json:"notes"`
	AssignedTo  *string   `json:"assigned_to"`
}

// UpdateTaskRequest edits a pending or escalated task.
type UpdateTaskRequest struct {
	TaskType    string    `json:"task_type" validate:"required,oneof=call email portal_follow_up document_request"`
	Description string    `json:"description" validate:"required"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Priority    string    `json:"priority" validate:"required,oneof=high medium low"`
	Status      string    `json:"status" validate:"required,oneof=pending escalated"`
	Notes       *string   `json:"notes"`
	AssignedTo  *string   `json:"assigned_to"`
}

// TaskService manages follow-up tasks. A completed task is frozen: edits and
// re-completion are rejected.
type TaskService struct {
	tasks     taskRepo
	leads     leadReader
	audits    auditor
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTaskService constructs TaskService.
func NewTaskService(tasks taskRepo, leads leadReader, audits auditor, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		tasks:     tasks,
		leads:     leads,
		audits:    audits,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns tasks matching the filter.
func (s *TaskService) List(ctx context.Context, filter models.TaskFilter) ([]models.FollowUpTask, int, error) {
	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	return tasks, total, nil
}

// Get fetches a single task.
func (s *TaskService) Get(ctx context.Context, id string) (*models.FollowUpTask, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

// Create schedules a task for an existing lead in pending status.
func (s *TaskService) Create(ctx context.Context, actor Actor, req CreateTaskRequest) (*models.FollowUpTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	if _, err := s.leads.FindByID(ctx, req.LeadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}

	task := &models.FollowUpTask{
		LeadID:      req.LeadID,
		TaskType:    models.TaskType(req.TaskType),
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    models.TaskPriority(req.Priority),
		Status:      models.TaskPending,
		Notes:       req.Notes,
		AssignedTo:  req.AssignedTo,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	s.audits.Record(ctx, actor, models.AuditActionCreate, "follow_up_tasks", task.ID, nil, task)
	return task, nil
}

// Update edits a task that has not been completed.
func (s *TaskService) Update(ctx context.Context, actor Actor, id string, req UpdateTaskRequest) (*models.FollowUpTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.TaskCompleted {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "completed tasks cannot be edited")
	}

	before := *current
	current.TaskType = models.TaskType(req.TaskType)
	current.Description = req.Description
	current.DueDate = req.DueDate
	current.Priority = models.TaskPriority(req.Priority)
	current.Status = models.TaskStatus(req.Status)
	current.Notes = req.Notes
	current.AssignedTo = req.AssignedTo

	if err := s.tasks.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	s.audits.Record(ctx, actor, models.AuditActionUpdate, "follow_up_tasks", id, before, current)
	return current, nil
}

// Complete marks a task done, stamping the completion time.
func (s *TaskService) Complete(ctx context.Context, actor Actor, id string) (*models.FollowUpTask, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == models.TaskCompleted {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "task is already completed")
	}

	completedAt := s.now()
	if err := s.tasks.MarkComplete(ctx, id, completedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete task")
	}
	before := *current
	current.Status = models.TaskCompleted
	current.CompletedDate = &completedAt
	s.audits.Record(ctx, actor, models.AuditActionUpdate, "follow_up_tasks", id, before, current)
	return current, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, actor Actor, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	s.audits.Record(ctx, actor, models.AuditActionDelete, "follow_up_tasks", id, current, nil)
	return nil
}
