package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type mockTaskRepo struct {
	tasks map[string]*models.FollowUpTask
}

func newMockTaskRepo(tasks ...*models.FollowUpTask) *mockTaskRepo {
	m := &mockTaskRepo{tasks: map[string]*models.FollowUpTask{}}
	for _, task := range tasks {
		m.tasks[task.ID] = task
	}
	return m
}

func (m *mockTaskRepo) List(ctx context.Context, filter models.TaskFilter) ([]models.FollowUpTask, int, error) {
	var out []models.FollowUpTask
	for _, task := range m.tasks {
		out = append(out, *task)
	}
	return out, len(out), nil
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id string) (*models.FollowUpTask, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *task
	return &cp, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.FollowUpTask) error {
	if task.ID == "" {
		task.ID = "generated"
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.FollowUpTask) error {
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) MarkComplete(ctx context.Context, id string, completedAt time.Time) error {
	task, ok := m.tasks[id]
	if !ok {
		return sql.ErrNoRows
	}
	task.Status = models.TaskCompleted
	task.CompletedDate = &completedAt
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id string) error {
	delete(m.tasks, id)
	return nil
}

func pendingTask(id string) *models.FollowUpTask {
	return &models.FollowUpTask{
		ID:          id,
		LeadID:      "l1",
		TaskType:    models.TaskCall,
		Description: "call back about waiver paperwork",
		DueDate:     time.Now().UTC().AddDate(0, 0, 2),
		Priority:    models.PriorityHigh,
		Status:      models.TaskPending,
	}
}

func newTaskService(repo *mockTaskRepo) *TaskService {
	return NewTaskService(repo, mockUploadLeadReader{}, nopAuditor{}, nil, nil)
}

func TestTaskServiceCreateStartsPending(t *testing.T) {
	repo := newMockTaskRepo()
	svc := newTaskService(repo)

	task, err := svc.Create(context.Background(), Actor{}, CreateTaskRequest{
		LeadID:      "l1",
		TaskType:    "call",
		Description: "initial outreach call",
		DueDate:     time.Now().UTC().AddDate(0, 0, 1),
		Priority:    "medium",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Nil(t, task.CompletedDate)
}

func TestTaskServiceCompleteStampsTime(t *testing.T) {
	repo := newMockTaskRepo(pendingTask("t1"))
	svc := newTaskService(repo)
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	task, err := svc.Complete(context.Background(), Actor{}, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, task.Status)
	require.NotNil(t, task.CompletedDate)
	assert.Equal(t, fixed, *task.CompletedDate)
}

func TestTaskServiceCompleteTwiceRejected(t *testing.T) {
	repo := newMockTaskRepo(pendingTask("t1"))
	svc := newTaskService(repo)

	_, err := svc.Complete(context.Background(), Actor{}, "t1")
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), Actor{}, "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestTaskServiceUpdateCompletedRejected(t *testing.T) {
	task := pendingTask("t1")
	task.Status = models.TaskCompleted
	repo := newMockTaskRepo(task)
	svc := newTaskService(repo)

	_, err := svc.Update(context.Background(), Actor{}, "t1", UpdateTaskRequest{
		TaskType:    "email",
		Description: "send documents",
		DueDate:     time.Now().UTC(),
		Priority:    "low",
		Status:      "pending",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestTaskServiceUpdateEscalates(t *testing.T) {
	repo := newMockTaskRepo(pendingTask("t1"))
	svc := newTaskService(repo)

	updated, err := svc.Update(context.Background(), Actor{}, "t1", UpdateTaskRequest{
		TaskType:    "call",
		Description: "call back about waiver paperwork",
		DueDate:     time.Now().UTC(),
		Priority:    "high",
		Status:      "escalated",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskEscalated, updated.Status)
}
