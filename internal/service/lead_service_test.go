package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type mockLeadRepo struct {
	leads       map[string]*models.ClientLead
	bulkUpdated []string
	bulkDeleted []string
}

func newMockLeadRepo(leads ...*models.ClientLead) *mockLeadRepo {
	m := &mockLeadRepo{leads: map[string]*models.ClientLead{}}
	for _, l := range leads {
		m.leads[l.ID] = l
	}
	return m
}

func (m *mockLeadRepo) List(ctx context.Context, filter models.LeadFilter) ([]models.ClientLead, int, error) {
	var out []models.ClientLead
	for _, l := range m.leads {
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (m *mockLeadRepo) FindByID(ctx context.Context, id string) (*models.ClientLead, error) {
	l, ok := m.leads[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (m *mockLeadRepo) Create(ctx context.Context, lead *models.ClientLead) error {
	if lead.ID == "" {
		lead.ID = "generated"
	}
	m.leads[lead.ID] = lead
	return nil
}

func (m *mockLeadRepo) Update(ctx context.Context, lead *models.ClientLead) error {
	m.leads[lead.ID] = lead
	return nil
}

func (m *mockLeadRepo) Delete(ctx context.Context, id string) error {
	delete(m.leads, id)
	return nil
}

func (m *mockLeadRepo) StatusesByIDs(ctx context.Context, ids []string) (map[string]models.LeadStatus, error) {
	statuses := map[string]models.LeadStatus{}
	for _, id := range ids {
		if l, ok := m.leads[id]; ok {
			statuses[id] = l.LeadStatus
		}
	}
	return statuses, nil
}

func (m *mockLeadRepo) BulkUpdateStatus(ctx context.Context, ids []string, status models.LeadStatus) (int64, error) {
	m.bulkUpdated = ids
	var n int64
	for _, id := range ids {
		if l, ok := m.leads[id]; ok {
			l.LeadStatus = status
			n++
		}
	}
	return n, nil
}

func (m *mockLeadRepo) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	m.bulkDeleted = ids
	var n int64
	for _, id := range ids {
		if _, ok := m.leads[id]; ok {
			delete(m.leads, id)
			n++
		}
	}
	return n, nil
}

func testLead(id string, status models.LeadStatus) *models.ClientLead {
	return &models.ClientLead{
		ID:              id,
		FirstName:       "Jane",
		LastName:        "Doe",
		Phone:           "317-555-0101",
		County:          "Marion",
		ContactType:     models.ContactTypeClient,
		InsuranceStatus: models.InsuranceMedicaid,
		InitialNeed:     models.NeedPersonalCare,
		ReferralSource:  models.SourceWebsite,
		LeadStatus:      status,
	}
}

func updateReqFrom(lead *models.ClientLead, status models.LeadStatus) UpdateLeadRequest {
	return UpdateLeadRequest{
		FirstName:       lead.FirstName,
		LastName:        lead.LastName,
		Phone:           lead.Phone,
		County:          lead.County,
		ContactType:     string(lead.ContactType),
		InsuranceStatus: string(lead.InsuranceStatus),
		InitialNeed:     string(lead.InitialNeed),
		ReferralSource:  string(lead.ReferralSource),
		LeadStatus:      string(status),
	}
}

func TestLeadServiceCreateStartsAtNewInquiry(t *testing.T) {
	repo := newMockLeadRepo()
	svc := NewLeadService(repo, nopAuditor{}, nil, nil, true)

	lead, err := svc.Create(context.Background(), Actor{UserID: "u1"}, CreateLeadRequest{
		FirstName:       "Jane",
		LastName:        "Doe",
		Phone:           "317-555-0101",
		County:          "Marion",
		ContactType:     "client",
		InsuranceStatus: "medicaid",
		InitialNeed:     "personal_care",
		ReferralSource:  "website",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNewInquiry, lead.LeadStatus)
}

func TestLeadServiceUpdateRejectsSkippedStage(t *testing.T) {
	lead := testLead("l1", models.LeadStatusNewInquiry)
	svc := NewLeadService(newMockLeadRepo(lead), nopAuditor{}, nil, nil, true)

	_, err := svc.Update(context.Background(), Actor{}, "l1", updateReqFrom(lead, models.LeadStatusApproved))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
}

func TestLeadServiceUpdateAllowsNextStage(t *testing.T) {
	lead := testLead("l1", models.LeadStatusNewInquiry)
	repo := newMockLeadRepo(lead)
	svc := NewLeadService(repo, nopAuditor{}, nil, nil, true)

	updated, err := svc.Update(context.Background(), Actor{}, "l1", updateReqFrom(lead, models.LeadStatusContacted))
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusContacted, updated.LeadStatus)
}

func TestLeadServiceUpdateUnenforcedAllowsAnyStatus(t *testing.T) {
	lead := testLead("l1", models.LeadStatusNewInquiry)
	svc := NewLeadService(newMockLeadRepo(lead), nopAuditor{}, nil, nil, false)

	updated, err := svc.Update(context.Background(), Actor{}, "l1", updateReqFrom(lead, models.LeadStatusApproved))
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusApproved, updated.LeadStatus)
}

func TestLeadServiceBulkUpdateMovesExactSet(t *testing.T) {
	repo := newMockLeadRepo(
		testLead("l1", models.LeadStatusNewInquiry),
		testLead("l2", models.LeadStatusNewInquiry),
		testLead("l3", models.LeadStatusApproved),
	)
	svc := NewLeadService(repo, nopAuditor{}, nil, nil, true)

	result, err := svc.BulkUpdateStatus(context.Background(), Actor{}, BulkLeadStatusRequest{
		IDs:    []string{"l1", "l2"},
		Status: string(models.LeadStatusContacted),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Affected)
	assert.Equal(t, models.LeadStatusContacted, repo.leads["l1"].LeadStatus)
	assert.Equal(t, models.LeadStatusContacted, repo.leads["l2"].LeadStatus)
	// l3 was not in the set and must be untouched.
	assert.Equal(t, models.LeadStatusApproved, repo.leads["l3"].LeadStatus)
}

func TestLeadServiceBulkUpdateAllOrNothing(t *testing.T) {
	repo := newMockLeadRepo(
		testLead("l1", models.LeadStatusNewInquiry),
		testLead("l2", models.LeadStatusApproved),
	)
	svc := NewLeadService(repo, nopAuditor{}, nil, nil, true)

	_, err := svc.BulkUpdateStatus(context.Background(), Actor{}, BulkLeadStatusRequest{
		IDs:    []string{"l1", "l2"},
		Status: string(models.LeadStatusContacted),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.bulkUpdated)
	assert.Equal(t, models.LeadStatusNewInquiry, repo.leads["l1"].LeadStatus)
}

func TestLeadServiceBulkUpdateMissingLead(t *testing.T) {
	repo := newMockLeadRepo(testLead("l1", models.LeadStatusNewInquiry))
	svc := NewLeadService(repo, nopAuditor{}, nil, nil, true)

	_, err := svc.BulkUpdateStatus(context.Background(), Actor{}, BulkLeadStatusRequest{
		IDs:    []string{"l1", "ghost"},
		Status: string(models.LeadStatusContacted),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.bulkUpdated)
}

func TestLeadServiceBulkDelete(t *testing.T) {
	repo := newMockLeadRepo(
		testLead("l1", models.LeadStatusNewInquiry),
		testLead("l2", models.LeadStatusContacted),
	)
	svc := NewLeadService(repo, nopAuditor{}, nil, nil, true)

	result, err := svc.BulkDelete(context.Background(), Actor{}, BulkLeadDeleteRequest{IDs: []string{"l1", "l2", "l1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Affected)
	assert.Empty(t, repo.leads)
}
