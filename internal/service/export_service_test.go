package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/pkg/jobs"
)

type mockExportJobRepo struct {
	jobs map[string]*models.ExportJob
}

func newMockExportJobRepo() *mockExportJobRepo {
	return &mockExportJobRepo{jobs: map[string]*models.ExportJob{}}
}

func (m *mockExportJobRepo) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockExportJobRepo) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *job
	return &cp, nil
}

func (m *mockExportJobRepo) MarkRunning(ctx context.Context, id string) error {
	m.jobs[id].Status = models.ExportStatusRunning
	return nil
}

func (m *mockExportJobRepo) MarkFinished(ctx context.Context, id, filePath string) error {
	m.jobs[id].Status = models.ExportStatusFinished
	m.jobs[id].FilePath = &filePath
	return nil
}

func (m *mockExportJobRepo) MarkFailed(ctx context.Context, id, message string) error {
	m.jobs[id].Status = models.ExportStatusFailed
	m.jobs[id].ErrorMsg = &message
	return nil
}

type mockExportStorage struct {
	files map[string][]byte
}

func (m *mockExportStorage) Save(filename string, data []byte) (string, error) {
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[filename] = data
	return filename, nil
}

func (m *mockExportStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *mockExportStorage) Delete(filename string) error {
	delete(m.files, filename)
	return nil
}

func (m *mockExportStorage) CleanupOlderThan(ttl time.Duration, keep map[string]struct{}) ([]string, error) {
	return nil, nil
}

type mockSigner struct{}

func (mockSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	return "signed-" + jobID, time.Now().Add(time.Hour), nil
}

func (mockSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	return strings.TrimPrefix(token, "signed-"), "file.csv", time.Now().Add(time.Hour), nil
}

type mockQueue struct {
	enqueued []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.enqueued = append(m.enqueued, job)
	return nil
}

type staticWeeklyReporter struct {
	report models.WeeklyReferralReport
}

func (s staticWeeklyReporter) WeeklyReport(ctx context.Context, weekOffset int) (*models.WeeklyReferralReport, error) {
	cp := s.report
	return &cp, nil
}

func newExportService(t *testing.T, leadRepo *mockLeadRepo, referralRepo *mockReferralRepo, taskRepo *mockTaskRepo) (*ExportService, *mockExportJobRepo, *mockExportStorage, *mockQueue) {
	t.Helper()
	exports := newMockExportJobRepo()
	store := &mockExportStorage{}
	queue := &mockQueue{}
	rate := 50.0
	svc := NewExportService(exports, leadRepo, referralRepo, taskRepo,
		staticWeeklyReporter{report: models.WeeklyReferralReport{
			WeekStart: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			WeekEnd:   time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC),
			Total:     4, Pending: 2, Approved: 1, Denied: 1, ApprovalRate: &rate,
		}},
		store, mockSigner{}, nil, nil, ExportServiceConfig{APIPrefix: "/api/v1"})
	svc.SetQueue(queue)
	return svc, exports, store, queue
}

func TestExportServiceLeadsCSVRoundTrip(t *testing.T) {
	lead := testLead("l1", models.LeadStatusContacted)
	assigned := "staff, on-call"
	lead.AssignedTo = &assigned
	svc, _, _, _ := newExportService(t, newMockLeadRepo(lead), newMockReferralRepo(), newMockTaskRepo())

	payload, filename, err := svc.ExportCSV(context.Background(), models.ExportLeads)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "l1", records[1][0])
	// Comma-bearing field survives the round trip intact.
	assert.Equal(t, "staff, on-call", records[1][11])
}

func TestExportServiceWeeklyReportCSVColumnAlignment(t *testing.T) {
	svc, _, _, _ := newExportService(t, newMockLeadRepo(), newMockReferralRepo(), newMockTaskRepo())

	payload, _, err := svc.ExportCSV(context.Background(), models.ExportWeeklyReport)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Every value must land under its declared header.
	byHeader := map[string]string{}
	for i, header := range records[0] {
		byHeader[header] = records[1][i]
	}
	assert.Equal(t, "2025-01-05", byHeader["week_start"])
	assert.Equal(t, "2025-01-11", byHeader["week_end"])
	assert.Equal(t, "4", byHeader["total"])
	assert.Equal(t, "2", byHeader["pending"])
	assert.Equal(t, "1", byHeader["approved"])
	assert.Equal(t, "1", byHeader["denied"])
	assert.Equal(t, "50.0%", byHeader["approval_rate"])
}

func TestExportServiceEnqueuePersistsAndQueues(t *testing.T) {
	svc, exports, _, queue := newExportService(t, newMockLeadRepo(), newMockReferralRepo(), newMockTaskRepo())

	job, err := svc.Enqueue(context.Background(), Actor{UserID: "u1"}, CreateExportRequest{
		Type:   "weekly_report",
		Format: "pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
	assert.Contains(t, exports.jobs, job.ID)
}

func TestExportServiceHandleJobRendersAndFinishes(t *testing.T) {
	svc, exports, store, _ := newExportService(t, newMockLeadRepo(testLead("l1", models.LeadStatusNewInquiry)), newMockReferralRepo(), newMockTaskRepo())

	job, err := svc.Enqueue(context.Background(), Actor{UserID: "u1"}, CreateExportRequest{Type: "leads", Format: "csv"})
	require.NoError(t, err)

	err = svc.HandleJob(context.Background(), jobs.Job{ID: job.ID, Type: "leads"})
	require.NoError(t, err)

	stored := exports.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	require.NotNil(t, stored.FilePath)
	assert.NotEmpty(t, store.files[*stored.FilePath])
}

func TestExportServiceStatusSignsFinishedJobs(t *testing.T) {
	svc, exports, _, _ := newExportService(t, newMockLeadRepo(), newMockReferralRepo(), newMockTaskRepo())

	job, err := svc.Enqueue(context.Background(), Actor{UserID: "u1"}, CreateExportRequest{Type: "tasks", Format: "csv"})
	require.NoError(t, err)

	status, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Empty(t, status.DownloadURL)

	require.NoError(t, exports.MarkFinished(context.Background(), job.ID, "tasks.csv"))

	status, err = svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/exports/download/signed-"+job.ID, status.DownloadURL)
	assert.NotNil(t, status.ExpiresAt)
}

func TestExportServiceRejectsUnknownType(t *testing.T) {
	svc, _, _, _ := newExportService(t, newMockLeadRepo(), newMockReferralRepo(), newMockTaskRepo())

	_, err := svc.Enqueue(context.Background(), Actor{}, CreateExportRequest{Type: "invoices", Format: "csv"})
	require.Error(t, err)
}
