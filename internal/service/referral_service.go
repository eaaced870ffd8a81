package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type referralRepo interface {
	List(ctx context.Context, filter models.ReferralFilter) ([]models.ReferralTracking, int, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]models.ReferralTracking, error)
	FindByID(ctx context.Context, id string) (*models.ReferralTracking, error)
	Create(ctx context.Context, referral *models.ReferralTracking) error
	Update(ctx context.Context, referral *models.ReferralTracking) error
	Delete(ctx context.Context, id string) error
	ScreenshotURLs(ctx context.Context) ([]string, error)
}

type attachmentStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration, keep map[string]struct{}) ([]string, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UpsertReferralRequest is the staff referral payload. Client name and county
// are captured as entered, not copied from the linked lead.
type UpsertReferralRequest struct {
	LeadID                 *string    `json:"lead_id"`
	ClientName             string     `json:"client_name" validate:"required"`
	County                 string     `json:"county" validate:"required"`
	SubmissionDate         time.Time  `json:"submission_date" validate:"required"`
	Agency                 string     `json:"agency" validate:"required"`
	SubmittedOnline        bool       `json:"submitted_online"`
	Confirmation           *string    `json:"confirmation"`
	MaximusRequired        bool       `json:"maximus_required"`
	MaximusDate            *time.Time `json:"maximus_date"`
	LOCStatus              string     `json:"loc_status" validate:"required,oneof=pending approved denied"`
	ClientSelectedCareHero string     `json:"client_selected_carehero" validate:"required,oneof=pending yes no"`
	EstimatedStartDate     *time.Time `json:"estimated_start_date"`
	InternalNotes          *string    `json:"internal_notes"`
}

// AttachmentConfig bounds referral screenshot uploads.
type AttachmentConfig struct {
	PublicBaseURL string
	MaxFileSize   int64
	AllowedMIMEs  []string
	OrphanTTL     time.Duration
}

// ReferralConfig tunes the referral service.
type ReferralConfig struct {
	Attachment     AttachmentConfig
	ReportCacheTTL time.Duration
}

// ReferralService manages internal agency referral tracking, screenshot
// attachments, and the weekly referral report.
type ReferralService struct {
	referrals referralRepo
	leads     leadReader
	store     attachmentStore
	cache     reportCache
	audits    auditor
	validator *validator.Validate
	logger    *zap.Logger
	config    ReferralConfig
	now       func() time.Time
}

// NewReferralService constructs ReferralService.
func NewReferralService(referrals referralRepo, leads leadReader, store attachmentStore, cache reportCache, audits auditor, validate *validator.Validate, logger *zap.Logger, config ReferralConfig) *ReferralService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferralService{
		referrals: referrals,
		leads:     leads,
		store:     store,
		cache:     cache,
		audits:    audits,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns referrals matching the filter.
func (s *ReferralService) List(ctx context.Context, filter models.ReferralFilter) ([]models.ReferralTracking, int, error) {
	referrals, total, err := s.referrals.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list referrals")
	}
	return referrals, total, nil
}

// Get fetches a single referral.
func (s *ReferralService) Get(ctx context.Context, id string) (*models.ReferralTracking, error) {
	referral, err := s.referrals.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "referral not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load referral")
	}
	return referral, nil
}

// Create inserts a referral. A lead link is optional but must point at an
// existing lead when present.
func (s *ReferralService) Create(ctx context.Context, actor Actor, req UpsertReferralRequest) (*models.ReferralTracking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid referral payload")
	}
	if err := s.checkLeadLink(ctx, req.LeadID); err != nil {
		return nil, err
	}

	referral := s.fromRequest(req)
	if actor.UserID != "" {
		referral.CreatedBy = &actor.UserID
	}
	if err := s.referrals.Create(ctx, referral); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create referral")
	}
	s.audits.Record(ctx, actor, models.AuditActionCreate, "referral_trackings", referral.ID, nil, referral)
	s.invalidateReportFor(ctx, referral.SubmissionDate)
	return referral, nil
}

// Update modifies a referral.
func (s *ReferralService) Update(ctx context.Context, actor Actor, id string, req UpsertReferralRequest) (*models.ReferralTracking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid referral payload")
	}
	if err := s.checkLeadLink(ctx, req.LeadID); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	referral := s.fromRequest(req)
	referral.ID = existing.ID
	referral.ScreenshotURL = existing.ScreenshotURL
	referral.CreatedBy = existing.CreatedBy
	referral.CreatedAt = existing.CreatedAt
	if err := s.referrals.Update(ctx, referral); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update referral")
	}
	s.audits.Record(ctx, actor, models.AuditActionUpdate, "referral_trackings", id, existing, referral)
	s.invalidateReportFor(ctx, existing.SubmissionDate)
	s.invalidateReportFor(ctx, referral.SubmissionDate)
	return referral, nil
}

// Delete removes a referral and its stored screenshot, if any.
func (s *ReferralService) Delete(ctx context.Context, actor Actor, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.referrals.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete referral")
	}
	if existing.ScreenshotURL != nil {
		if name := s.filenameFromURL(*existing.ScreenshotURL); name != "" {
			if err := s.store.Delete(name); err != nil {
				s.logger.Warn("failed to remove referral screenshot", zap.String("file", name), zap.Error(err))
			}
		}
	}
	s.audits.Record(ctx, actor, models.AuditActionDelete, "referral_trackings", id, existing, nil)
	s.invalidateReportFor(ctx, existing.SubmissionDate)
	return nil
}

// AttachScreenshot validates and stores an uploaded confirmation screenshot
// and links it to the referral. If the link write fails the stored file is
// removed again so no unreferenced upload is left behind.
func (s *ReferralService) AttachScreenshot(ctx context.Context, actor Actor, id, originalName string, size int64, r io.Reader) (*models.ReferralTracking, error) {
	referral, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty upload")
	}
	if size > s.config.Attachment.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge,
			fmt.Sprintf("file exceeds %d bytes", s.config.Attachment.MaxFileSize))
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !s.mimeAllowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFileType,
			fmt.Sprintf("content type %s is not accepted", contentType))
	}

	filename := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(originalName)))
	stored, err := s.store.SaveStream(filename, io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}

	url := strings.TrimRight(s.config.Attachment.PublicBaseURL, "/") + "/" + stored
	before := *referral
	previous := referral.ScreenshotURL
	referral.ScreenshotURL = &url
	if err := s.referrals.Update(ctx, referral); err != nil {
		if cleanupErr := s.store.Delete(stored); cleanupErr != nil {
			s.logger.Warn("failed to remove upload after link failure", zap.String("file", stored), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link upload")
	}
	if previous != nil {
		if name := s.filenameFromURL(*previous); name != "" {
			if err := s.store.Delete(name); err != nil {
				s.logger.Warn("failed to remove replaced screenshot", zap.String("file", name), zap.Error(err))
			}
		}
	}
	s.audits.Record(ctx, actor, models.AuditActionUpdate, "referral_trackings", id, before, referral)
	return referral, nil
}

// WeeklyReport aggregates referrals submitted in the Sunday-to-Saturday week
// offset weeks before the current one. Offset 0 is the week in progress.
func (s *ReferralService) WeeklyReport(ctx context.Context, weekOffset int) (*models.WeeklyReferralReport, error) {
	if weekOffset < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week offset must not be negative")
	}
	start := s.weekStart(s.now(), weekOffset)
	key := weeklyReportCacheKey(start)

	var cached models.WeeklyReferralReport
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	end := start.AddDate(0, 0, 7)
	referrals, err := s.referrals.ListBetween(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load referrals for report")
	}

	report := &models.WeeklyReferralReport{
		WeekStart: start,
		WeekEnd:   end.AddDate(0, 0, -1),
		Total:     len(referrals),
	}
	for _, referral := range referrals {
		switch referral.LOCStatus {
		case models.LOCApproved:
			report.Approved++
		case models.LOCDenied:
			report.Denied++
		default:
			report.Pending++
		}
	}
	if decided := report.Approved + report.Denied; decided > 0 {
		rate := float64(report.Approved) / float64(decided) * 100
		report.ApprovalRate = &rate
	}

	if err := s.cache.Set(ctx, key, report, s.config.ReportCacheTTL); err != nil {
		s.logger.Debug("weekly report cache write failed", zap.Error(err))
	}
	return report, nil
}

// SweepOrphanedUploads removes stored uploads older than the configured TTL
// that no referral references. Returns the removed filenames.
func (s *ReferralService) SweepOrphanedUploads(ctx context.Context) ([]string, error) {
	urls, err := s.referrals.ScreenshotURLs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load referenced uploads")
	}
	keep := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if name := s.filenameFromURL(url); name != "" {
			keep[name] = struct{}{}
		}
	}
	removed, err := s.store.CleanupOlderThan(s.config.Attachment.OrphanTTL, keep)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep uploads")
	}
	if len(removed) > 0 {
		s.logger.Info("removed orphaned uploads", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func (s *ReferralService) fromRequest(req UpsertReferralRequest) *models.ReferralTracking {
	return &models.ReferralTracking{
		LeadID:                 req.LeadID,
		ClientName:             req.ClientName,
		County:                 req.County,
		SubmissionDate:         req.SubmissionDate,
		Agency:                 req.Agency,
		SubmittedOnline:        req.SubmittedOnline,
		Confirmation:           req.Confirmation,
		MaximusRequired:        req.MaximusRequired,
		MaximusDate:            req.MaximusDate,
		LOCStatus:              models.LOCOutcome(req.LOCStatus),
		ClientSelectedCareHero: models.CareHeroDecision(req.ClientSelectedCareHero),
		EstimatedStartDate:     req.EstimatedStartDate,
		InternalNotes:          req.InternalNotes,
	}
}

func (s *ReferralService) checkLeadLink(ctx context.Context, leadID *string) error {
	if leadID == nil || *leadID == "" {
		return nil
	}
	if _, err := s.leads.FindByID(ctx, *leadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "linked lead does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lead link")
	}
	return nil
}

// mimeAllowed matches the sniffed content type against the configured
// allow-list. An entry like "image/*" matches any subtype.
func (s *ReferralService) mimeAllowed(contentType string) bool {
	for _, allowed := range s.config.Attachment.AllowedMIMEs {
		allowed = strings.TrimSpace(allowed)
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(strings.ToLower(contentType), strings.ToLower(prefix)+"/") {
				return true
			}
			continue
		}
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func (s *ReferralService) filenameFromURL(url string) string {
	base := strings.TrimRight(s.config.Attachment.PublicBaseURL, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return ""
	}
	return strings.TrimPrefix(url, base)
}

func (s *ReferralService) invalidateReportFor(ctx context.Context, submitted time.Time) {
	key := weeklyReportCacheKey(s.weekStart(submitted, 0))
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Debug("weekly report cache invalidation failed", zap.Error(err))
	}
}

// weekStart returns midnight UTC of the Sunday that starts the week holding
// t, shifted back offset whole weeks.
func (s *ReferralService) weekStart(t time.Time, offset int) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -int(midnight.Weekday())-7*offset)
}

func weeklyReportCacheKey(start time.Time) string {
	return "reports:weekly:" + start.Format("2006-01-02")
}
