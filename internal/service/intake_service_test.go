package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type mockSubmissionRepo struct {
	contacts     []*models.ContactSubmission
	applications []*models.JobApplication
}

func (m *mockSubmissionRepo) CreateContact(ctx context.Context, submission *models.ContactSubmission) error {
	submission.ID = "c1"
	m.contacts = append(m.contacts, submission)
	return nil
}

func (m *mockSubmissionRepo) CreateJobApplication(ctx context.Context, application *models.JobApplication) error {
	application.ID = "j1"
	m.applications = append(m.applications, application)
	return nil
}

func (m *mockSubmissionRepo) ListContacts(ctx context.Context, filter models.SubmissionFilter) ([]models.ContactSubmission, int, error) {
	var out []models.ContactSubmission
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockSubmissionRepo) ListJobApplications(ctx context.Context, filter models.SubmissionFilter) ([]models.JobApplication, int, error) {
	var out []models.JobApplication
	for _, a := range m.applications {
		out = append(out, *a)
	}
	return out, len(out), nil
}

type mockIntakeLeadRepo struct {
	created      []*models.ClientLead
	withPipeline []*models.EnrollmentPipeline
}

func (m *mockIntakeLeadRepo) Create(ctx context.Context, lead *models.ClientLead) error {
	lead.ID = "lead-1"
	m.created = append(m.created, lead)
	return nil
}

func (m *mockIntakeLeadRepo) CreateWithPipeline(ctx context.Context, lead *models.ClientLead, pipeline *models.EnrollmentPipeline) error {
	lead.ID = "lead-1"
	pipeline.ID = "pipe-1"
	pipeline.LeadID = lead.ID
	m.created = append(m.created, lead)
	m.withPipeline = append(m.withPipeline, pipeline)
	return nil
}

func TestIntakeServiceGetStarted(t *testing.T) {
	leads := &mockIntakeLeadRepo{}
	svc := NewIntakeService(&mockSubmissionRepo{}, leads, nil, nil)
	fixed := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	resp, err := svc.GetStarted(context.Background(), GetStartedRequest{
		FirstName:       "Jane",
		LastName:        "Doe",
		Phone:           "317-555-0101",
		County:          "Marion",
		ContactType:     "client",
		InsuranceStatus: "medicaid",
		InitialNeed:     "personal_care",
	})
	require.NoError(t, err)

	assert.Equal(t, models.LeadStatusConsentReceived, resp.Lead.LeadStatus)
	assert.Equal(t, models.SourceWebsite, resp.Lead.ReferralSource)
	assert.True(t, resp.Pipeline.ConsentSigned)
	require.NotNil(t, resp.Pipeline.ConsentDate)
	assert.Equal(t, fixed, *resp.Pipeline.ConsentDate)
	assert.Equal(t, resp.Lead.ID, resp.Pipeline.LeadID)
	// Both rows came from the single transactional write.
	assert.Len(t, leads.withPipeline, 1)
}

func TestIntakeServiceGetStartedRejectsInvalid(t *testing.T) {
	svc := NewIntakeService(&mockSubmissionRepo{}, &mockIntakeLeadRepo{}, nil, nil)

	_, err := svc.GetStarted(context.Background(), GetStartedRequest{FirstName: "Jane"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestIntakeServiceSubmitContact(t *testing.T) {
	repo := &mockSubmissionRepo{}
	svc := NewIntakeService(repo, &mockIntakeLeadRepo{}, nil, nil)

	submission, err := svc.SubmitContact(context.Background(), ContactRequest{
		Name:    "Family Member",
		Phone:   "317-555-0102",
		Message: "Looking for care options for my mother.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, submission.ID)
	assert.Len(t, repo.contacts, 1)
}

func TestIntakeServiceSubmitReferralLandsAsNewInquiry(t *testing.T) {
	leads := &mockIntakeLeadRepo{}
	svc := NewIntakeService(&mockSubmissionRepo{}, leads, nil, nil)

	lead, err := svc.SubmitReferral(context.Background(), PublicReferralRequest{
		FirstName:       "John",
		LastName:        "Smith",
		Phone:           "317-555-0103",
		County:          "Hamilton",
		ContactType:     "referral_source",
		InsuranceStatus: "unknown",
		InitialNeed:     "unsure",
		ReferralSource:  "hospital",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNewInquiry, lead.LeadStatus)
	assert.Equal(t, models.SourceHospital, lead.ReferralSource)
	assert.Len(t, leads.created, 1)
	assert.Empty(t, leads.withPipeline)
}
