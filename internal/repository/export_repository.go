package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carehero-care/portal-api/internal/models"
)

// ExportRepository persists asynchronous export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs an ExportRepository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a new export job in queued state.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	const query = `INSERT INTO export_jobs (id, type, format, status, week_offset, requested_by, file_path, error_msg, created_at, updated_at, finished_at)
        VALUES (:id, :type, :format, :status, :week_offset, :requested_by, :file_path, :error_msg, :created_at, :updated_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID fetches an export job by ID.
func (r *ExportRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, type, format, status, week_offset, requested_by, file_path, error_msg, created_at, updated_at, finished_at
        FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkRunning transitions a job to running.
func (r *ExportRepository) MarkRunning(ctx context.Context, id string) error {
	const query = `UPDATE export_jobs SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusRunning, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export running: %w", err)
	}
	return nil
}

// MarkFinished records the rendered file path on a finished job.
func (r *ExportRepository) MarkFinished(ctx context.Context, id, filePath string) error {
	now := time.Now().UTC()
	const query = `UPDATE export_jobs SET status = $2, file_path = $3, updated_at = $4, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFinished, filePath, now); err != nil {
		return fmt.Errorf("mark export finished: %w", err)
	}
	return nil
}

// MarkFailed records a failure message on a job.
func (r *ExportRepository) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC()
	const query = `UPDATE export_jobs SET status = $2, error_msg = $3, updated_at = $4, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFailed, message, now); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}
