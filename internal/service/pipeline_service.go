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

type pipelineRepo interface {
	FindByLeadID(ctx context.Context, leadID string) (*models.EnrollmentPipeline, error)
	Create(ctx context.Context, pipeline *models.EnrollmentPipeline) error
	Update(ctx context.Context, pipeline *models.EnrollmentPipeline) error
}

type leadReader interface {
	FindByID(ctx context.Context, id string) (*models.ClientLead, error)
}

// UpsertPipelineRequest carries the Medicaid waiver milestone fields.
type UpsertPipelineRequest struct {
	ConsentSigned             bool       `json:"consent_signed"`
	ConsentDate               *time.Time `json:"consent_date"`
	CICOAReferralSubmitted    bool       `json:"cicoa_referral_submitted"`
	CICOAReferralDate         *time.Time `json:"cicoa_referral_date"`
	CICOAConfirmation         *string    `json:"cicoa_confirmation"`
	MaximusAssessmentRequired bool       `json:"maximus_assessment_required"`
	MaximusScheduledDate      *time.Time `json:"maximus_scheduled_date"`
	MaximusCompletedDate      *time.Time `json:"maximus_completed_date"`
	LOCOutcome                string     `json:"loc_outcome" validate:"required,oneof=pending approved denied"`
	AssignedMCE               *string    `json:"assigned_mce" validate:"omitempty,oneof=anthem humana unitedhealthcare"`
	MedicaidEffectiveDate     *time.Time `json:"medicaid_effective_date"`
	ApprovedServices          *string    `json:"approved_services"`
	CareStartDate             *time.Time `json:"care_start_date"`
}

// PipelineService manages the enrollment milestone record attached to a lead.
type PipelineService struct {
	pipelines pipelineRepo
	leads     leadReader
	audits    auditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPipelineService constructs PipelineService.
func NewPipelineService(pipelines pipelineRepo, leads leadReader, audits auditor, validate *validator.Validate, logger *zap.Logger) *PipelineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineService{pipelines: pipelines, leads: leads, audits: audits, validator: validate, logger: logger}
}

// GetByLead fetches the pipeline record for a lead.
func (s *PipelineService) GetByLead(ctx context.Context, leadID string) (*models.EnrollmentPipeline, error) {
	pipeline, err := s.pipelines.FindByLeadID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no pipeline for lead")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pipeline")
	}
	return pipeline, nil
}

// Upsert creates the pipeline for a lead on first write and updates it on
// subsequent writes. The lead must exist.
func (s *PipelineService) Upsert(ctx context.Context, actor Actor, leadID string, req UpsertPipelineRequest) (*models.EnrollmentPipeline, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pipeline payload")
	}
	if req.ConsentSigned && req.ConsentDate == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "consent_date required when consent is signed")
	}

	if _, err := s.leads.FindByID(ctx, leadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}

	existing, err := s.pipelines.FindByLeadID(ctx, leadID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pipeline")
	}

	pipeline := &models.EnrollmentPipeline{
		LeadID:                    leadID,
		ConsentSigned:             req.ConsentSigned,
		ConsentDate:               req.ConsentDate,
		CICOAReferralSubmitted:    req.CICOAReferralSubmitted,
		CICOAReferralDate:         req.CICOAReferralDate,
		CICOAConfirmation:         req.CICOAConfirmation,
		MaximusAssessmentRequired: req.MaximusAssessmentRequired,
		MaximusScheduledDate:      req.MaximusScheduledDate,
		MaximusCompletedDate:      req.MaximusCompletedDate,
		LOCOutcome:                models.LOCOutcome(req.LOCOutcome),
		MedicaidEffectiveDate:     req.MedicaidEffectiveDate,
		ApprovedServices:          req.ApprovedServices,
		CareStartDate:             req.CareStartDate,
	}
	if req.AssignedMCE != nil {
		mce := models.ManagedCareEntity(*req.AssignedMCE)
		pipeline.AssignedMCE = &mce
	}

	if existing == nil {
		if err := s.pipelines.Create(ctx, pipeline); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pipeline")
		}
		s.audits.Record(ctx, actor, models.AuditActionCreate, "enrollment_pipelines", pipeline.ID, nil, pipeline)
		return pipeline, nil
	}

	pipeline.ID = existing.ID
	pipeline.CreatedAt = existing.CreatedAt
	if err := s.pipelines.Update(ctx, pipeline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update pipeline")
	}
	s.audits.Record(ctx, actor, models.AuditActionUpdate, "enrollment_pipelines", pipeline.ID, existing, pipeline)
	return pipeline, nil
}
