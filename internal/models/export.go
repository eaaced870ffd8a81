package models

import "time"

// ExportType selects the dataset an export job renders.
type ExportType string

const (
	ExportLeads        ExportType = "leads"
	ExportReferrals    ExportType = "referrals"
	ExportTasks        ExportType = "tasks"
	ExportWeeklyReport ExportType = "weekly_report"
)

// ExportFormat selects the rendered file format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus tracks an asynchronous export job.
type ExportStatus string

const (
	ExportStatusQueued   ExportStatus = "queued"
	ExportStatusRunning  ExportStatus = "running"
	ExportStatusFinished ExportStatus = "finished"
	ExportStatusFailed   ExportStatus = "failed"
)

// ExportJob is a persisted asynchronous export request. Finished jobs expose
// a signed download URL with a bounded lifetime.
type ExportJob struct {
	ID          string       `db:"id" json:"id"`
	Type        ExportType   `db:"type" json:"type"`
	Format      ExportFormat `db:"format" json:"format"`
	Status      ExportStatus `db:"status" json:"status"`
	WeekOffset  int          `db:"week_offset" json:"week_offset"`
	RequestedBy string       `db:"requested_by" json:"requested_by"`
	FilePath    *string      `db:"file_path" json:"-"`
	ErrorMsg    *string      `db:"error_msg" json:"error,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	FinishedAt  *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
