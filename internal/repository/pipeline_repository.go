package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carehero-care/portal-api/internal/models"
)

// PipelineRepository manages persistence for enrollment pipelines.
type PipelineRepository struct {
	db *sqlx.DB
}

// NewPipelineRepository constructs a PipelineRepository.
func NewPipelineRepository(db *sqlx.DB) *PipelineRepository {
	return &PipelineRepository{db: db}
}

const pipelineColumns = `id, lead_id, consent_signed, consent_date,
        cicoa_referral_submitted, cicoa_referral_date, cicoa_confirmation,
        maximus_assessment_required, maximus_scheduled_date, maximus_completed_date,
        loc_outcome, assigned_mce, medicaid_effective_date, approved_services,
        care_start_date, created_at, updated_at`

// FindByID fetches a pipeline row by ID.
func (r *PipelineRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentPipeline, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollment_pipelines WHERE id = $1", pipelineColumns)
	var pipeline models.EnrollmentPipeline
	if err := r.db.GetContext(ctx, &pipeline, query, id); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// FindByLeadID fetches the pipeline row for a lead. The relation is 1:1 by
// convention; when duplicates exist the newest row wins.
func (r *PipelineRepository) FindByLeadID(ctx context.Context, leadID string) (*models.EnrollmentPipeline, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollment_pipelines WHERE lead_id = $1 ORDER BY created_at DESC LIMIT 1", pipelineColumns)
	var pipeline models.EnrollmentPipeline
	if err := r.db.GetContext(ctx, &pipeline, query, leadID); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// Create inserts a new pipeline record.
func (r *PipelineRepository) Create(ctx context.Context, pipeline *models.EnrollmentPipeline) error {
	if pipeline.ID == "" {
		pipeline.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pipeline.CreatedAt.IsZero() {
		pipeline.CreatedAt = now
	}
	pipeline.UpdatedAt = now
	const query = `INSERT INTO enrollment_pipelines (id, lead_id, consent_signed, consent_date,
        cicoa_referral_submitted, cicoa_referral_date, cicoa_confirmation,
        maximus_assessment_required, maximus_scheduled_date, maximus_completed_date,
        loc_outcome, assigned_mce, medicaid_effective_date, approved_services, care_start_date, created_at, updated_at)
        VALUES (:id, :lead_id, :consent_signed, :consent_date,
        :cicoa_referral_submitted, :cicoa_referral_date, :cicoa_confirmation,
        :maximus_assessment_required, :maximus_scheduled_date, :maximus_completed_date,
        :loc_outcome, :assigned_mce, :medicaid_effective_date, :approved_services, :care_start_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pipeline); err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	return nil
}

// Update modifies an existing pipeline record.
func (r *PipelineRepository) Update(ctx context.Context, pipeline *models.EnrollmentPipeline) error {
	pipeline.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollment_pipelines SET consent_signed = :consent_signed, consent_date = :consent_date,
        cicoa_referral_submitted = :cicoa_referral_submitted, cicoa_referral_date = :cicoa_referral_date,
        cicoa_confirmation = :cicoa_confirmation, maximus_assessment_required = :maximus_assessment_required,
        maximus_scheduled_date = :maximus_scheduled_date, maximus_completed_date = :maximus_completed_date,
        loc_outcome = :loc_outcome, assigned_mce = :assigned_mce, medicaid_effective_date = :medicaid_effective_date,
        approved_services = :approved_services, care_start_date = :care_start_date, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, pipeline); err != nil {
		return fmt.Errorf("update pipeline: %w", err)
	}
	return nil
}

// Delete removes a pipeline record.
func (r *PipelineRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollment_pipelines WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	return nil
}
