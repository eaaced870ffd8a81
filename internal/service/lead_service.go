package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type leadRepo interface {
	List(ctx context.Context, filter models.LeadFilter) ([]models.ClientLead, int, error)
	FindByID(ctx context.Context, id string) (*models.ClientLead, error)
	Create(ctx context.Context, lead *models.ClientLead) error
	Update(ctx context.Context, lead *models.ClientLead) error
	Delete(ctx context.Context, id string) error
	StatusesByIDs(ctx context.Context, ids []string) (map[string]models.LeadStatus, error)
	BulkUpdateStatus(ctx context.Context, ids []string, status models.LeadStatus) (int64, error)
	BulkDelete(ctx context.Context, ids []string) (int64, error)
}

// CreateLeadRequest is the staff lead creation payload.
type CreateLeadRequest struct {
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
	ReferralSource  string  `json:"referral_source" validate:"required,oneof=website cicoa hospital word_of_mouth caregiver_referral event_outreach other"`
	Notes           *string `json:"notes"`
	AssignedTo      *string `json:"assigned_to"`
}

// UpdateLeadRequest is the staff lead update payload. Status changes run
// through the funnel state machine when enforcement is enabled.
type UpdateLeadRequest struct {
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
	ReferralSource  string  `json:"referral_source" validate:"required,oneof=website cicoa hospital word_of_mouth caregiver_referral event_outreach other"`
	LeadStatus      string  `json:"lead_status" validate:"required"`
	Notes           *string `json:"notes"`
	AssignedTo      *string `json:"assigned_to"`
}

// BulkLeadStatusRequest updates the status of a set of leads atomically.
type BulkLeadStatusRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required"`
}

// BulkLeadDeleteRequest deletes a set of leads atomically.
type BulkLeadDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// BulkResult reports how many records a bulk operation touched.
type BulkResult struct {
	Affected int64 `json:"affected"`
}

// LeadService orchestrates the client lead funnel.
type LeadService struct {
	leads              leadRepo
	audits             auditor
	validator          *validator.Validate
	logger             *zap.Logger
	enforceTransitions bool
}

// NewLeadService constructs LeadService.
func NewLeadService(leads leadRepo, audits auditor, validate *validator.Validate, logger *zap.Logger, enforceTransitions bool) *LeadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{
		leads:              leads,
		audits:             audits,
		validator:          validate,
		logger:             logger,
		enforceTransitions: enforceTransitions,
	}
}

// List returns leads matching the filter with a total count.
func (s *LeadService) List(ctx context.Context, filter models.LeadFilter) ([]models.ClientLead, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown lead status %q", filter.Status))
	}
	leads, total, err := s.leads.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leads")
	}
	return leads, total, nil
}

// Get fetches a single lead.
func (s *LeadService) Get(ctx context.Context, id string) (*models.ClientLead, error) {
	lead, err := s.leads.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}
	return lead, nil
}

// Create inserts a new lead in new_inquiry status.
func (s *LeadService) Create(ctx context.Context, actor Actor, req CreateLeadRequest) (*models.ClientLead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lead payload")
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
		ReferralSource:  models.ReferralSource(req.ReferralSource),
		LeadStatus:      models.LeadStatusNewInquiry,
		Notes:           req.Notes,
		AssignedTo:      req.AssignedTo,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lead")
	}
	s.audits.Record(ctx, actor, models.AuditActionCreate, "client_leads", lead.ID, nil, lead)
	return lead, nil
}

// Update modifies a lead, validating the status transition against the
// current stored status.
func (s *LeadService) Update(ctx context.Context, actor Actor, id string, req UpdateLeadRequest) (*models.ClientLead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lead payload")
	}
	target := models.LeadStatus(req.LeadStatus)
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown lead status %q", req.LeadStatus))
	}

	current, err := s.leads.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}

	if s.enforceTransitions && !models.CanTransition(current.LeadStatus, target) {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("cannot move lead from %s to %s", current.LeadStatus, target))
	}

	before := *current
	current.FirstName = req.FirstName
	current.LastName = req.LastName
	current.Phone = req.Phone
	current.Email = req.Email
	current.County = req.County
	current.City = req.City
	current.Zip = req.Zip
	current.Address = req.Address
	current.ContactType = models.ContactType(req.ContactType)
	current.InsuranceStatus = models.InsuranceStatus(req.InsuranceStatus)
	current.InitialNeed = models.InitialNeed(req.InitialNeed)
	current.ReferralSource = models.ReferralSource(req.ReferralSource)
	current.LeadStatus = target
	current.Notes = req.Notes
	current.AssignedTo = req.AssignedTo

	if err := s.leads.Update(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lead")
	}
	s.audits.Record(ctx, actor, models.AuditActionUpdate, "client_leads", id, before, current)
	return current, nil
}

// Delete removes a lead and, through the schema, its pipeline and tasks.
func (s *LeadService) Delete(ctx context.Context, actor Actor, id string) error {
	lead, err := s.leads.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}
	if err := s.leads.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lead")
	}
	s.audits.Record(ctx, actor, models.AuditActionDelete, "client_leads", id, lead, nil)
	return nil
}

// BulkUpdateStatus moves every lead in the set to the target status. The
// operation is all-or-nothing: if any lead is missing or the transition is
// illegal for any lead, nothing changes.
func (s *LeadService) BulkUpdateStatus(ctx context.Context, actor Actor, req BulkLeadStatusRequest) (*BulkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk status payload")
	}
	target := models.LeadStatus(req.Status)
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown lead status %q", req.Status))
	}

	ids := dedupe(req.IDs)
	statuses, err := s.leads.StatusesByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead statuses")
	}
	for _, id := range ids {
		current, ok := statuses[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("lead %s not found", id))
		}
		if s.enforceTransitions && !models.CanTransition(current, target) {
			return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
				fmt.Sprintf("cannot move lead %s from %s to %s", id, current, target))
		}
	}

	affected, err := s.leads.BulkUpdateStatus(ctx, ids, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk update leads")
	}
	for _, id := range ids {
		s.audits.Record(ctx, actor, models.AuditActionUpdate, "client_leads", id,
			map[string]models.LeadStatus{"lead_status": statuses[id]},
			map[string]models.LeadStatus{"lead_status": target})
	}
	return &BulkResult{Affected: affected}, nil
}

// BulkDelete removes every lead in the set. Missing IDs fail the whole
// request before anything is deleted.
func (s *LeadService) BulkDelete(ctx context.Context, actor Actor, req BulkLeadDeleteRequest) (*BulkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk delete payload")
	}
	ids := dedupe(req.IDs)
	statuses, err := s.leads.StatusesByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leads")
	}
	for _, id := range ids {
		if _, ok := statuses[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("lead %s not found", id))
		}
	}

	affected, err := s.leads.BulkDelete(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk delete leads")
	}
	for _, id := range ids {
		s.audits.Record(ctx, actor, models.AuditActionDelete, "client_leads", id, nil, nil)
	}
	return &BulkResult{Affected: affected}, nil
}

// Statuses returns the funnel statuses in order, for populating UI filters.
func (s *LeadService) Statuses() []models.LeadStatus {
	return models.LeadStatuses
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
