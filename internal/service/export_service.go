package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/pkg/export"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
	"github.com/carehero-care/portal-api/pkg/jobs"
)

type exportJobRepo interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkRunning(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, message string) error
}

type exportLeadLister interface {
	List(ctx context.Context, filter models.LeadFilter) ([]models.ClientLead, int, error)
}

type exportReferralLister interface {
	List(ctx context.Context, filter models.ReferralFilter) ([]models.ReferralTracking, int, error)
}

type exportTaskLister interface {
	List(ctx context.Context, filter models.TaskFilter) ([]models.FollowUpTask, int, error)
}

type weeklyReporter interface {
	WeeklyReport(ctx context.Context, weekOffset int) (*models.WeeklyReferralReport, error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration, keep map[string]struct{}) ([]string, error)
}

type urlSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
}

type exportEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// CreateExportRequest queues an asynchronous export.
type CreateExportRequest struct {
	Type       string `json:"type" validate:"required,oneof=leads referrals tasks weekly_report"`
	Format     string `json:"format" validate:"required,oneof=csv pdf"`
	WeekOffset int    `json:"week_offset" validate:"min=0"`
}

// ExportStatusResponse is the polled view of an export job.
type ExportStatusResponse struct {
	Job         *models.ExportJob `json:"job"`
	DownloadURL string            `json:"download_url,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// ExportServiceConfig tunes export behaviour.
type ExportServiceConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders CSV/PDF datasets, synchronously for the direct CSV
// endpoints and through the job queue for everything else.
type ExportService struct {
	exports   exportJobRepo
	leads     exportLeadLister
	referrals exportReferralLister
	tasks     exportTaskLister
	reports   weeklyReporter
	storage   exportFileStorage
	signer    urlSigner
	queue     exportEnqueuer
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportServiceConfig
}

// NewExportService constructs an ExportService. The queue is attached later
// via SetQueue because the queue handler needs the service.
func NewExportService(exports exportJobRepo, leads exportLeadLister, referrals exportReferralLister, tasks exportTaskLister, reports weeklyReporter, storage exportFileStorage, signer urlSigner, validate *validator.Validate, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		exports:   exports,
		leads:     leads,
		referrals: referrals,
		tasks:     tasks,
		reports:   reports,
		storage:   storage,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetQueue attaches the worker queue used for asynchronous jobs.
func (s *ExportService) SetQueue(queue exportEnqueuer) {
	s.queue = queue
}

// ExportCSV renders the named dataset synchronously.
func (s *ExportService) ExportCSV(ctx context.Context, typ models.ExportType) ([]byte, string, error) {
	dataset, title, err := s.buildDataset(ctx, typ, 0)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s-%s.csv", strings.ReplaceAll(title, " ", "-"), time.Now().UTC().Format("20060102-150405"))
	return payload, strings.ToLower(filename), nil
}

// Enqueue persists an export job and hands it to the worker pool.
func (s *ExportService) Enqueue(ctx context.Context, actor Actor, req CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue not running")
	}

	job := &models.ExportJob{
		Type:        models.ExportType(req.Type),
		Format:      models.ExportFormat(req.Format),
		Status:      models.ExportStatusQueued,
		WeekOffset:  req.WeekOffset,
		RequestedBy: actor.UserID,
	}
	if err := s.exports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		if markErr := s.exports.MarkFailed(ctx, job.ID, "queue unavailable"); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// HandleJob is the queue handler: it renders the dataset and stores the file.
// Returning an error lets the queue retry.
func (s *ExportService) HandleJob(ctx context.Context, job jobs.Job) error {
	record, err := s.exports.FindByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", job.ID, err)
	}
	if record.Status == models.ExportStatusFinished {
		return nil
	}
	if err := s.exports.MarkRunning(ctx, record.ID); err != nil {
		return fmt.Errorf("mark export job running: %w", err)
	}

	relPath, err := s.render(ctx, record)
	if err != nil {
		if markErr := s.exports.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark export job failed", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return err
	}
	if err := s.exports.MarkFinished(ctx, record.ID, relPath); err != nil {
		return fmt.Errorf("mark export job finished: %w", err)
	}
	s.logger.Info("export job finished", zap.String("job_id", record.ID), zap.String("file", relPath))
	return nil
}

// Status reports job progress and, once finished, a signed download URL.
func (s *ExportService) Status(ctx context.Context, id string) (*ExportStatusResponse, error) {
	job, err := s.exports.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}

	resp := &ExportStatusResponse{Job: job}
	if job.Status == models.ExportStatusFinished && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
		resp.DownloadURL = fmt.Sprintf("%s/exports/download/%s", prefix, token)
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// OpenDownload validates a signed token and opens the stored file.
func (s *ExportService) OpenDownload(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, nil
}

// CleanupExpired removes rendered files older than the result TTL.
func (s *ExportService) CleanupExpired(ctx context.Context) ([]string, error) {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clean up exports")
	}
	if len(removed) > 0 {
		s.logger.Info("removed expired export files", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func (s *ExportService) render(ctx context.Context, job *models.ExportJob) (string, error) {
	dataset, title, err := s.buildDataset(ctx, job.Type, job.WeekOffset)
	if err != nil {
		return "", err
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s-%s.%s", job.Type, job.ID, job.Format)
	return s.storage.Save(filename, payload)
}

func (s *ExportService) buildDataset(ctx context.Context, typ models.ExportType, weekOffset int) (export.Dataset, string, error) {
	switch typ {
	case models.ExportLeads:
		return s.leadDataset(ctx)
	case models.ExportReferrals:
		return s.referralDataset(ctx)
	case models.ExportTasks:
		return s.taskDataset(ctx)
	case models.ExportWeeklyReport:
		return s.weeklyReportDataset(ctx, weekOffset)
	default:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export type %q", typ))
	}
}

func (s *ExportService) leadDataset(ctx context.Context) (export.Dataset, string, error) {
	dataset := export.Dataset{Headers: []string{
		"id", "first_name", "last_name", "phone", "email", "county",
		"contact_type", "insurance_status", "initial_need", "referral_source",
		"lead_status", "assigned_to", "created_at",
	}}
	for page := 1; ; page++ {
		leads, _, err := s.leads.List(ctx, models.LeadFilter{Page: page, PageSize: 100, SortBy: "created_at", SortOrder: "ASC"})
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, lead := range leads {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"id":               lead.ID,
				"first_name":       lead.FirstName,
				"last_name":        lead.LastName,
				"phone":            lead.Phone,
				"email":            strDeref(lead.Email),
				"county":           lead.County,
				"contact_type":     string(lead.ContactType),
				"insurance_status": string(lead.InsuranceStatus),
				"initial_need":     string(lead.InitialNeed),
				"referral_source":  string(lead.ReferralSource),
				"lead_status":      string(lead.LeadStatus),
				"assigned_to":      strDeref(lead.AssignedTo),
				"created_at":       lead.CreatedAt.Format(time.RFC3339),
			})
		}
		if len(leads) < 100 {
			break
		}
	}
	return dataset, "client leads", nil
}

func (s *ExportService) referralDataset(ctx context.Context) (export.Dataset, string, error) {
	dataset := export.Dataset{Headers: []string{
		"id", "client_name", "county", "submission_date", "agency", "submitted_online",
		"confirmation", "loc_status", "client_selected_carehero", "estimated_start_date",
	}}
	for page := 1; ; page++ {
		referrals, _, err := s.referrals.List(ctx, models.ReferralFilter{Page: page, PageSize: 100, SortBy: "submission_date", SortOrder: "ASC"})
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, referral := range referrals {
			estimated := ""
			if referral.EstimatedStartDate != nil {
				estimated = referral.EstimatedStartDate.Format("2006-01-02")
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"id":                       referral.ID,
				"client_name":              referral.ClientName,
				"county":                   referral.County,
				"submission_date":          referral.SubmissionDate.Format("2006-01-02"),
				"agency":                   referral.Agency,
				"submitted_online":         strconv.FormatBool(referral.SubmittedOnline),
				"confirmation":             strDeref(referral.Confirmation),
				"loc_status":               string(referral.LOCStatus),
				"client_selected_carehero": string(referral.ClientSelectedCareHero),
				"estimated_start_date":     estimated,
			})
		}
		if len(referrals) < 100 {
			break
		}
	}
	return dataset, "referral tracking", nil
}

func (s *ExportService) taskDataset(ctx context.Context) (export.Dataset, string, error) {
	dataset := export.Dataset{Headers: []string{
		"id", "lead_id", "task_type", "description", "due_date", "priority", "status", "completed_date", "assigned_to",
	}}
	for page := 1; ; page++ {
		tasks, _, err := s.tasks.List(ctx, models.TaskFilter{Page: page, PageSize: 100, SortBy: "due_date", SortOrder: "ASC"})
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, task := range tasks {
			completed := ""
			if task.CompletedDate != nil {
				completed = task.CompletedDate.Format(time.RFC3339)
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"id":             task.ID,
				"lead_id":        task.LeadID,
				"task_type":      string(task.TaskType),
				"description":    task.Description,
				"due_date":       task.DueDate.Format("2006-01-02"),
				"priority":       string(task.Priority),
				"status":         string(task.Status),
				"completed_date": completed,
				"assigned_to":    strDeref(task.AssignedTo),
			})
		}
		if len(tasks) < 100 {
			break
		}
	}
	return dataset, "follow-up tasks", nil
}

func (s *ExportService) weeklyReportDataset(ctx context.Context, weekOffset int) (export.Dataset, string, error) {
	report, err := s.reports.WeeklyReport(ctx, weekOffset)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rate := ""
	if report.ApprovalRate != nil {
		rate = fmt.Sprintf("%.1f%%", *report.ApprovalRate)
	}
	dataset := export.Dataset{
		Headers: []string{"week_start", "week_end", "total", "pending", "approved", "denied", "approval_rate"},
		Rows: []map[string]string{{
			"week_start":    report.WeekStart.Format("2006-01-02"),
			"week_end":      report.WeekEnd.Format("2006-01-02"),
			"total":         strconv.Itoa(report.Total),
			"pending":       strconv.Itoa(report.Pending),
			"approved":      strconv.Itoa(report.Approved),
			"denied":        strconv.Itoa(report.Denied),
			"approval_rate": rate,
		}},
	}
	title := fmt.Sprintf("weekly referral report %s", report.WeekStart.Format("2006-01-02"))
	return dataset, title, nil
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
