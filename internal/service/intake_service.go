package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type submissionRepo interface {
	CreateContact(ctx context.Context, submission *models.ContactSubmission) error
	CreateJobApplication(ctx context.Context, application *models.JobApplication) error
	ListContacts(ctx context.Context, filter models.SubmissionFilter) ([]models.ContactSubmission, int, error)
	ListJobApplications(ctx context.Context, filter models.SubmissionFilter) ([]models.JobApplication, int, error)
}

type intakeLeadRepo interface {
	Create(ctx context.Context, lead *models.ClientLead) error
	CreateWithPipeline(ctx context.Context, lead *models.ClientLead, pipeline *models.EnrollmentPipeline) error
}

// ContactRequest is the public contact form payload.
type ContactRequest struct {
	Name    string  `json:"name" validate:"required"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   string  `json:"phone" validate:"required"`
	Message string  `json:"message" validate:"required"`
}

// JobApplicationRequest is the public careers form payload.
type JobApplicationRequest struct {
	FirstName  string  `json:"first_name" validate:"required"`
	LastName   string  `json:"last_name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      string  `json:"phone" validate:"required"`
	City       *string `json:"city"`
	Position   string  `json:"position" validate:"required"`
	Experience *string `json:"experience"`
}

// PublicReferralRequest is the public third-party referral form. It lands in
// the lead funnel with the caller-supplied referral source.
type PublicReferralRequest struct {
	FirstName       string  `json:"first_name" validate:"required"`
	LastName        string  `json:"last_name" validate:"required"`
	Phone           string  `json:"phone" validate:"required"`
	Email           *string `json:"email" validate:"omitempty,email"`
	County          string  `json:"county" validate:"required"`
	ContactType     string  `json:"contact_type" validate:"required,oneof=client family_member caregiver referral_source"`
	InsuranceStatus string  `json:"insurance_status" validate:"required,oneof=medicaid medicare medicaid_medicare private_pay unknown"`
	InitialNeed     string  `json:"initial_need" validate:"required,oneof=personal_care attendant_care respite unsure"`
	ReferralSource  string  `json:"referral_source" validate:"required,oneof=website cicoa hospital word_of_mouth caregiver_referral event_outreach other"`
	Notes           *string `json:"notes"`
}

// GetStartedRequest is the public consent-first enrollment form.
type GetStartedRequest struct {
	FirstName       string  `json:"first_name" validate:"required"`
	LastName        string  `json:"last_name" validate:"required"`
	Phone           string  `json:"phone" validate:"required"`
	Email           *string `json:"email" validate:"omitempty,email"`
	County          string  `json:"county" validate:"required"`
	City            *string `json:"city"`
	Zip             *string `json:"zip"`
	Address         *string `json:"address"`
	ContactType     string  `json:"contact_type" validate:"required,oneof=client family_member caregiver referral_source"`
	InsuranceStatus string  `json:"insurance_status" validate:"required,oneof=medicaid medicare medicaid_medicare private_pay unknown"`
	InitialNeed     string  `json:"initial_need" validate:"required,oneof=personal_care attendant_care respite unsure"`
	Notes           *string `json:"notes"`
}

// GetStartedResponse returns the identifiers of the created records.
type GetStartedResponse struct {
	Lead     *models.ClientLead         `json:"lead"`
	Pipeline *models.EnrollmentPipeline `json:"pipeline"`
}

// IntakeService handles the unauthenticated public forms.
type IntakeService struct {
	submissions submissionRepo
	leads       intakeLeadRepo
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewIntakeService constructs IntakeService.
func NewIntakeService(submissions submissionRepo, leads intakeLeadRepo, validate *validator.Validate, logger *zap.Logger) *IntakeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{
		submissions: submissions,
		leads:       leads,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SubmitContact stores a contact form submission.
func (s *IntakeService) SubmitContact(ctx context.Context, req ContactRequest) (*models.ContactSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}
	submission := &models.ContactSubmission{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	}
	if err := s.submissions.CreateContact(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store contact submission")
	}
	return submission, nil
}

// SubmitJobApplication stores a careers form submission.
func (s *IntakeService) SubmitJobApplication(ctx context.Context, req JobApplicationRequest) (*models.JobApplication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	application := &models.JobApplication{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		City:       req.City,
		Position:   req.Position,
		Experience: req.Experience,
	}
	if err := s.submissions.CreateJobApplication(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store job application")
	}
	return application, nil
}

// SubmitReferral creates a lead in new_inquiry status from the public
// third-party referral form.
func (s *IntakeService) SubmitReferral(ctx context.Context, req PublicReferralRequest) (*models.ClientLead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid referral payload")
	}
	lead := &models.ClientLead{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Email:           req.Email,
		County:          req.County,
		ContactType:     models.ContactType(req.ContactType),
		InsuranceStatus: models.InsuranceStatus(req.InsuranceStatus),
		InitialNeed:     models.InitialNeed(req.InitialNeed),
		ReferralSource:  models.ReferralSource(req.ReferralSource),
		LeadStatus:      models.LeadStatusNewInquiry,
		Notes:           req.Notes,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store referral lead")
	}
	return lead, nil
}

// GetStarted creates a lead that has already consented, together with its
// pipeline record, in a single transaction. The lead enters the funnel at
// consent_received and the pipeline starts with consent signed today.
func (s *IntakeService) GetStarted(ctx context.Context, req GetStartedRequest) (*GetStartedResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid get-started payload")
	}

	lead := &models.ClientLead{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Email:           req.Email,
		County:          req.County,
		City:            req.City,
		Zip:             req.Zip,
		Address:         req.Address,
		ContactType:     models.ContactType(req.ContactType),
		InsuranceStatus: models.InsuranceStatus(req.InsuranceStatus),
		InitialNeed:     models.InitialNeed(req.InitialNeed),
		ReferralSource:  models.SourceWebsite,
		LeadStatus:      models.LeadStatusConsentReceived,
		Notes:           req.Notes,
	}
	consentDate := s.now()
	pipeline := &models.EnrollmentPipeline{
		ConsentSigned: true,
		ConsentDate:   &consentDate,
		LOCOutcome:    models.LOCPending,
	}

	if err := s.leads.CreateWithPipeline(ctx, lead, pipeline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start enrollment")
	}
	return &GetStartedResponse{Lead: lead, Pipeline: pipeline}, nil
}

// ListContacts returns stored contact submissions for staff review.
func (s *IntakeService) ListContacts(ctx context.Context, filter models.SubmissionFilter) ([]models.ContactSubmission, int, error) {
	contacts, total, err := s.submissions.ListContacts(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contact submissions")
	}
	return contacts, total, nil
}

// ListJobApplications returns stored job applications for staff review.
func (s *IntakeService) ListJobApplications(ctx context.Context, filter models.SubmissionFilter) ([]models.JobApplication, int, error) {
	applications, total, err := s.submissions.ListJobApplications(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list job applications")
	}
	return applications, total, nil
}
