package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carehero-care/portal-api/internal/models"
)

// TaskRepository manages persistence for follow-up tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, lead_id, task_type, description, due_date, priority, status,
        completed_date, notes, assigned_to, created_at, updated_at`

// List returns tasks matching the provided filters.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.FollowUpTask, int, error) {
	base := "FROM follow_up_tasks"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.LeadID != "" {
		conditions = append(conditions, fmt.Sprintf("lead_id = $%d", len(args)+1))
		args = append(args, filter.LeadID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, filter.Priority)
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)+1))
		args = append(args, filter.AssignedTo)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(description) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"due_date":   "due_date",
		"priority":   "priority",
		"status":     "status",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "due_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", taskColumns, base, column, order, size, offset)

	var tasks []models.FollowUpTask
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, total, nil
}

// FindByID fetches a task by ID.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.FollowUpTask, error) {
	query := fmt.Sprintf("SELECT %s FROM follow_up_tasks WHERE id = $1", taskColumns)
	var task models.FollowUpTask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// Create inserts a new task record.
func (r *TaskRepository) Create(ctx context.Context, task *models.FollowUpTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	const query = `INSERT INTO follow_up_tasks (id, lead_id, task_type, description, due_date, priority, status,
        completed_date, notes, assigned_to, created_at, updated_at)
        VALUES (:id, :lead_id, :task_type, :description, :due_date, :priority, :status,
        :completed_date, :notes, :assigned_to, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update modifies an existing task record.
func (r *TaskRepository) Update(ctx context.Context, task *models.FollowUpTask) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE follow_up_tasks SET task_type = :task_type, description = :description,
        due_date = :due_date, priority = :priority, status = :status, completed_date = :completed_date,
        notes = :notes, assigned_to = :assigned_to, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// MarkComplete sets the task status to completed with the completion time.
func (r *TaskRepository) MarkComplete(ctx context.Context, id string, completedAt time.Time) error {
	const query = `UPDATE follow_up_tasks SET status = $2, completed_date = $3, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.TaskCompleted, completedAt); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

// Delete removes a task record.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM follow_up_tasks WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
