package models

import "time"

// TaskType categorises a scheduled staff action.
type TaskType string

const (
	TaskCall            TaskType = "call"
	TaskEmail           TaskType = "email"
	TaskPortalFollowUp  TaskType = "portal_follow_up"
	TaskDocumentRequest TaskType = "document_request"
)

// TaskPriority orders staff attention.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// TaskStatus tracks a follow-up task's lifecycle. Completed tasks are
// read-only afterwards.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskEscalated TaskStatus = "escalated"
)

// FollowUpTask is a scheduled staff action tied to a lead.
type FollowUpTask struct {
	ID            string       `db:"id" json:"id"`
	LeadID        string       `db:"lead_id" json:"lead_id"`
	TaskType      TaskType     `db:"task_type" json:"task_type"`
	Description   string       `db:"description" json:"description"`
	DueDate       time.Time    `db:"due_date" json:"due_date"`
	Priority      TaskPriority `db:"priority" json:"priority"`
	Status        TaskStatus   `db:"status" json:"status"`
	CompletedDate *time.Time   `db:"completed_date" json:"completed_date,omitempty"`
	Notes         *string      `db:"notes" json:"notes,omitempty"`
	AssignedTo    *string      `db:"assigned_to" json:"assigned_to,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// TaskFilter provides filters for listing follow-up tasks.
type TaskFilter struct {
	LeadID     string
	Status     TaskStatus
	Priority   TaskPriority
	AssignedTo string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
