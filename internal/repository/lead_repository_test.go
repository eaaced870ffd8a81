package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
)

func newLeadMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func leadRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "phone", "email", "county", "city", "zip", "address",
		"contact_type", "insurance_status", "initial_need", "referral_source", "lead_status",
		"notes", "assigned_to", "created_at", "updated_at",
	}).AddRow("lead-1", "Jane", "Doe", "317-555-0101", nil, "Marion", nil, nil, nil,
		"client", "medicaid", "personal_care", "website", "new_inquiry",
		nil, nil, time.Now(), time.Now())
}

func TestLeadRepositoryList(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM client_leads WHERE 1=1 AND lead_status = \$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs(models.LeadStatusNewInquiry).
		WillReturnRows(leadRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM client_leads WHERE 1=1 AND lead_status = \$1`).
		WithArgs(models.LeadStatusNewInquiry).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	leads, total, err := repo.List(context.Background(), models.LeadFilter{Status: models.LeadStatusNewInquiry})
	require.NoError(t, err)
	assert.Len(t, leads, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec("INSERT INTO client_leads").
		WillReturnResult(sqlmock.NewResult(1, 1))

	lead := &models.ClientLead{
		FirstName:       "Jane",
		LastName:        "Doe",
		Phone:           "317-555-0101",
		County:          "Marion",
		ContactType:     models.ContactTypeClient,
		InsuranceStatus: models.InsuranceMedicaid,
		InitialNeed:     models.NeedPersonalCare,
		ReferralSource:  models.SourceWebsite,
		LeadStatus:      models.LeadStatusNewInquiry,
	}
	err := repo.Create(context.Background(), lead)
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryBulkUpdateStatus(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec(`UPDATE client_leads SET lead_status = \$1, updated_at = \$2 WHERE id = ANY\(\$3\)`).
		WithArgs(models.LeadStatusContacted, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.BulkUpdateStatus(context.Background(), []string{"lead-1", "lead-2"}, models.LeadStatusContacted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryBulkDelete(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec(`DELETE FROM client_leads WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.BulkDelete(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryCreateWithPipeline(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO client_leads").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enrollment_pipelines").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	lead := &models.ClientLead{
		FirstName:       "Jane",
		LastName:        "Doe",
		Phone:           "317-555-0101",
		County:          "Marion",
		ContactType:     models.ContactTypeClient,
		InsuranceStatus: models.InsuranceMedicaid,
		InitialNeed:     models.NeedPersonalCare,
		ReferralSource:  models.SourceWebsite,
		LeadStatus:      models.LeadStatusConsentReceived,
	}
	now := time.Now().UTC()
	pipeline := &models.EnrollmentPipeline{ConsentSigned: true, ConsentDate: &now, LOCOutcome: models.LOCPending}

	err := repo.CreateWithPipeline(context.Background(), lead, pipeline)
	require.NoError(t, err)
	assert.Equal(t, lead.ID, pipeline.LeadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryCreateWithPipelineRollsBack(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO client_leads").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enrollment_pipelines").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	lead := &models.ClientLead{
		FirstName: "Jane", LastName: "Doe", Phone: "317-555-0101", County: "Marion",
		ContactType: models.ContactTypeClient, InsuranceStatus: models.InsuranceMedicaid,
		InitialNeed: models.NeedPersonalCare, ReferralSource: models.SourceWebsite,
		LeadStatus: models.LeadStatusConsentReceived,
	}
	pipeline := &models.EnrollmentPipeline{ConsentSigned: true, LOCOutcome: models.LOCPending}

	err := repo.CreateWithPipeline(context.Background(), lead, pipeline)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
