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

// SubmissionRepository persists public form captures. Both tables are
// append-only from the application's point of view.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// CreateContact inserts a contact submission.
func (r *SubmissionRepository) CreateContact(ctx context.Context, submission *models.ContactSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contact_submissions (id, name, email, phone, message, created_at)
        VALUES (:id, :name, :email, :phone, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create contact submission: %w", err)
	}
	return nil
}

// CreateJobApplication inserts a job application.
func (r *SubmissionRepository) CreateJobApplication(ctx context.Context, application *models.JobApplication) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.CreatedAt.IsZero() {
		application.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO job_applications (id, first_name, last_name, email, phone, city, position, experience, created_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :city, :position, :experience, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("create job application: %w", err)
	}
	return nil
}

// ListContacts pages through contact submissions, newest first.
func (r *SubmissionRepository) ListContacts(ctx context.Context, filter models.SubmissionFilter) ([]models.ContactSubmission, int, error) {
	base := "FROM contact_submissions WHERE 1=1"
	args := []interface{}{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR phone LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, name, email, phone, message, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, (page-1)*size)

	var submissions []models.ContactSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contact submissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count contact submissions: %w", err)
	}
	return submissions, total, nil
}

// ListJobApplications pages through job applications, newest first.
func (r *SubmissionRepository) ListJobApplications(ctx context.Context, filter models.SubmissionFilter) ([]models.JobApplication, int, error) {
	base := "FROM job_applications WHERE 1=1"
	args := []interface{}{}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(position) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT id, first_name, last_name, email, phone, city, position, experience, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, (page-1)*size)

	var applications []models.JobApplication
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list job applications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count job applications: %w", err)
	}
	return applications, total, nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
