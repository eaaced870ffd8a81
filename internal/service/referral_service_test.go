package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type mockReferralRepo struct {
	referrals    map[string]*models.ReferralTracking
	betweenCalls int
	updateErr    error
}

func newMockReferralRepo(referrals ...*models.ReferralTracking) *mockReferralRepo {
	m := &mockReferralRepo{referrals: map[string]*models.ReferralTracking{}}
	for _, r := range referrals {
		m.referrals[r.ID] = r
	}
	return m
}

func (m *mockReferralRepo) List(ctx context.Context, filter models.ReferralFilter) ([]models.ReferralTracking, int, error) {
	var out []models.ReferralTracking
	for _, r := range m.referrals {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockReferralRepo) ListBetween(ctx context.Context, start, end time.Time) ([]models.ReferralTracking, error) {
	m.betweenCalls++
	var out []models.ReferralTracking
	for _, r := range m.referrals {
		if !r.SubmissionDate.Before(start) && r.SubmissionDate.Before(end) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReferralRepo) FindByID(ctx context.Context, id string) (*models.ReferralTracking, error) {
	r, ok := m.referrals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *mockReferralRepo) Create(ctx context.Context, referral *models.ReferralTracking) error {
	if referral.ID == "" {
		referral.ID = "generated"
	}
	m.referrals[referral.ID] = referral
	return nil
}

func (m *mockReferralRepo) Update(ctx context.Context, referral *models.ReferralTracking) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.referrals[referral.ID] = referral
	return nil
}

func (m *mockReferralRepo) Delete(ctx context.Context, id string) error {
	delete(m.referrals, id)
	return nil
}

func (m *mockReferralRepo) ScreenshotURLs(ctx context.Context) ([]string, error) {
	var urls []string
	for _, r := range m.referrals {
		if r.ScreenshotURL != nil {
			urls = append(urls, *r.ScreenshotURL)
		}
	}
	return urls, nil
}

type mockStore struct {
	saved   map[string][]byte
	deleted []string
	swept   []string
	keepArg map[string]struct{}
}

func newMockStore() *mockStore {
	return &mockStore{saved: map[string][]byte{}}
}

func (m *mockStore) SaveStream(filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", err
	}
	m.saved[filename] = buf.Bytes()
	return filename, nil
}

func (m *mockStore) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	delete(m.saved, filename)
	return nil
}

func (m *mockStore) CleanupOlderThan(ttl time.Duration, keep map[string]struct{}) ([]string, error) {
	m.keepArg = keep
	var removed []string
	for name := range m.saved {
		if _, ok := keep[name]; ok {
			continue
		}
		removed = append(removed, name)
		delete(m.saved, name)
	}
	m.swept = removed
	return removed, nil
}

type mockCache struct {
	entries map[string][]byte
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.entries, key)
	return nil
}

type mockUploadLeadReader struct{}

func (mockUploadLeadReader) FindByID(ctx context.Context, id string) (*models.ClientLead, error) {
	return &models.ClientLead{ID: id}, nil
}

func testReferralConfig() ReferralConfig {
	return ReferralConfig{
		Attachment: AttachmentConfig{
			PublicBaseURL: "/uploads/referrals",
			MaxFileSize:   5 * 1024 * 1024,
			AllowedMIMEs:  []string{"image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf"},
			OrphanTTL:     24 * time.Hour,
		},
		ReportCacheTTL: 5 * time.Minute,
	}
}

func newReferralService(repo *mockReferralRepo, store *mockStore, cache *mockCache) *ReferralService {
	return NewReferralService(repo, mockUploadLeadReader{}, store, cache, nopAuditor{}, nil, nil, testReferralConfig())
}

func submittedOn(id string, day time.Time, loc models.LOCOutcome) *models.ReferralTracking {
	return &models.ReferralTracking{
		ID:                     id,
		ClientName:             "Client " + id,
		County:                 "Marion",
		SubmissionDate:         day,
		Agency:                 "CICOA",
		LOCStatus:              loc,
		ClientSelectedCareHero: models.DecisionPending,
	}
}

func TestReferralServiceWeeklyReportWindow(t *testing.T) {
	sunday := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	repo := newMockReferralRepo(
		submittedOn("r1", sunday, models.LOCApproved),
		submittedOn("r2", sunday.AddDate(0, 0, 2), models.LOCApproved),
		submittedOn("r3", sunday.AddDate(0, 0, 4), models.LOCApproved),
		submittedOn("r4", sunday.AddDate(0, 0, 6), models.LOCDenied),
		submittedOn("r5", sunday.AddDate(0, 0, 3), models.LOCPending),
		submittedOn("r6", sunday.AddDate(0, 0, 5), models.LOCPending),
		// Outside the window on both sides.
		submittedOn("r7", sunday.AddDate(0, 0, -1), models.LOCApproved),
		submittedOn("r8", sunday.AddDate(0, 0, 7), models.LOCDenied),
	)
	svc := newReferralService(repo, newMockStore(), newMockCache())
	svc.now = func() time.Time { return time.Date(2025, 1, 8, 14, 30, 0, 0, time.UTC) }

	report, err := svc.WeeklyReport(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, sunday, report.WeekStart)
	assert.Equal(t, sunday.AddDate(0, 0, 6), report.WeekEnd)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 3, report.Approved)
	assert.Equal(t, 1, report.Denied)
	assert.Equal(t, 2, report.Pending)
	require.NotNil(t, report.ApprovalRate)
	assert.InDelta(t, 75.0, *report.ApprovalRate, 0.001)
}

func TestReferralServiceWeeklyReportOffset(t *testing.T) {
	prevSunday := time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC)
	repo := newMockReferralRepo(submittedOn("r1", prevSunday.AddDate(0, 0, 1), models.LOCPending))
	svc := newReferralService(repo, newMockStore(), newMockCache())
	svc.now = func() time.Time { return time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC) }

	report, err := svc.WeeklyReport(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, prevSunday, report.WeekStart)
	assert.Equal(t, 1, report.Total)
	assert.Nil(t, report.ApprovalRate)
}

func TestReferralServiceWeeklyReportCached(t *testing.T) {
	repo := newMockReferralRepo()
	svc := newReferralService(repo, newMockStore(), newMockCache())
	svc.now = func() time.Time { return time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC) }

	_, err := svc.WeeklyReport(context.Background(), 0)
	require.NoError(t, err)
	_, err = svc.WeeklyReport(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.betweenCalls)
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestReferralServiceAttachScreenshot(t *testing.T) {
	referral := submittedOn("r1", time.Now().UTC(), models.LOCPending)
	repo := newMockReferralRepo(referral)
	store := newMockStore()
	svc := newReferralService(repo, store, newMockCache())

	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x00}, 128)...)
	updated, err := svc.AttachScreenshot(context.Background(), Actor{UserID: "u1"}, "r1", "confirm.png", int64(len(payload)), bytes.NewReader(payload))
	require.NoError(t, err)
	require.NotNil(t, updated.ScreenshotURL)
	assert.True(t, strings.HasPrefix(*updated.ScreenshotURL, "/uploads/referrals/"))
	assert.True(t, strings.HasSuffix(*updated.ScreenshotURL, ".png"))
	assert.Len(t, store.saved, 1)
}

func TestReferralServiceAttachScreenshotTooLarge(t *testing.T) {
	repo := newMockReferralRepo(submittedOn("r1", time.Now().UTC(), models.LOCPending))
	svc := newReferralService(repo, newMockStore(), newMockCache())

	size := testReferralConfig().Attachment.MaxFileSize + 1
	_, err := svc.AttachScreenshot(context.Background(), Actor{}, "r1", "big.png", size, bytes.NewReader(pngHeader))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, appErrors.FromError(err).Code)
}

func TestReferralServiceAttachScreenshotUnsupportedType(t *testing.T) {
	repo := newMockReferralRepo(submittedOn("r1", time.Now().UTC(), models.LOCPending))
	store := newMockStore()
	svc := newReferralService(repo, store, newMockCache())

	payload := []byte("plain text, not an image")
	_, err := svc.AttachScreenshot(context.Background(), Actor{}, "r1", "note.txt", int64(len(payload)), bytes.NewReader(payload))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFileType.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.saved)
}

func TestReferralServiceAttachScreenshotWildcardMIME(t *testing.T) {
	repo := newMockReferralRepo(submittedOn("r1", time.Now().UTC(), models.LOCPending))
	store := newMockStore()
	cfg := testReferralConfig()
	cfg.Attachment.AllowedMIMEs = []string{"image/*", "application/pdf"}
	svc := NewReferralService(repo, mockUploadLeadReader{}, store, newMockCache(), nopAuditor{}, nil, nil, cfg)

	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x00}, 128)...)
	updated, err := svc.AttachScreenshot(context.Background(), Actor{}, "r1", "confirm.png", int64(len(payload)), bytes.NewReader(payload))
	require.NoError(t, err)
	require.NotNil(t, updated.ScreenshotURL)

	text := []byte("plain text, not an image")
	_, err = svc.AttachScreenshot(context.Background(), Actor{}, "r1", "note.txt", int64(len(text)), bytes.NewReader(text))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFileType.Code, appErrors.FromError(err).Code)
}

func TestReferralServiceAttachScreenshotCompensatesOnLinkFailure(t *testing.T) {
	repo := newMockReferralRepo(submittedOn("r1", time.Now().UTC(), models.LOCPending))
	repo.updateErr = assert.AnError
	store := newMockStore()
	svc := newReferralService(repo, store, newMockCache())

	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x00}, 64)...)
	_, err := svc.AttachScreenshot(context.Background(), Actor{}, "r1", "confirm.png", int64(len(payload)), bytes.NewReader(payload))
	require.Error(t, err)
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, store.saved)
}

func TestReferralServiceSweepKeepsReferencedUploads(t *testing.T) {
	linked := submittedOn("r1", time.Now().UTC(), models.LOCPending)
	url := "/uploads/referrals/keep-me.png"
	linked.ScreenshotURL = &url
	repo := newMockReferralRepo(linked)
	store := newMockStore()
	store.saved["keep-me.png"] = []byte("x")
	store.saved["orphan.png"] = []byte("y")
	svc := newReferralService(repo, store, newMockCache())

	removed, err := svc.SweepOrphanedUploads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan.png"}, removed)
	_, kept := store.saved["keep-me.png"]
	assert.True(t, kept)
}
