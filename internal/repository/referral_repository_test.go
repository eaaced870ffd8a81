package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
)

func referralRows(dates ...time.Time) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "lead_id", "client_name", "county", "submission_date", "agency", "submitted_online",
		"confirmation", "maximus_required", "maximus_date", "loc_status", "client_selected_carehero",
		"estimated_start_date", "internal_notes", "screenshot_url", "created_by", "created_at", "updated_at",
	})
	for i, d := range dates {
		rows.AddRow("ref-"+string(rune('a'+i)), nil, "Client", "Marion", d, "CICOA", true,
			nil, false, nil, models.LOCPending, models.DecisionPending,
			nil, nil, nil, nil, d, d)
	}
	return rows
}

func TestReferralRepositoryListBetween(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewReferralRepository(db)

	start := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	mock.ExpectQuery(`SELECT (.+) FROM referral_trackings WHERE submission_date >= \$1 AND submission_date < \$2 ORDER BY submission_date ASC`).
		WithArgs(start, end).
		WillReturnRows(referralRows(start, start.AddDate(0, 0, 3)))

	referrals, err := repo.ListBetween(context.Background(), start, end)
	require.NoError(t, err)
	assert.Len(t, referrals, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferralRepositoryList(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewReferralRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM referral_trackings WHERE 1=1 AND agency = \$1 ORDER BY submission_date DESC LIMIT 20 OFFSET 0`).
		WithArgs("CICOA").
		WillReturnRows(referralRows(time.Now()))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM referral_trackings WHERE 1=1 AND agency = \$1`).
		WithArgs("CICOA").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	referrals, total, err := repo.List(context.Background(), models.ReferralFilter{Agency: "CICOA"})
	require.NoError(t, err)
	assert.Len(t, referrals, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferralRepositoryScreenshotURLs(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewReferralRepository(db)

	mock.ExpectQuery(`SELECT screenshot_url FROM referral_trackings WHERE screenshot_url IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"screenshot_url"}).
			AddRow("/uploads/referrals/a.png").
			AddRow("/uploads/referrals/b.pdf"))

	urls, err := repo.ScreenshotURLs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/referrals/a.png", "/uploads/referrals/b.pdf"}, urls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
