package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/carehero-care/portal-api/internal/models"
	appErrors "github.com/carehero-care/portal-api/pkg/errors"
)

type auditRepo interface {
	Create(ctx context.Context, entry *models.ActivityAuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.ActivityAuditLog, int, error)
}

// Actor identifies who performed an audited action and from where.
type Actor struct {
	UserID    string
	IP        string
	UserAgent string
}

// AuditService records mutations against tracked tables. Recording is
// best-effort: a failed audit write is logged and never fails the mutation
// that triggered it.
type AuditService struct {
	audits auditRepo
	logger *zap.Logger
}

// NewAuditService constructs AuditService.
func NewAuditService(audits auditRepo, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{audits: audits, logger: logger}
}

// Record persists one audit entry. Old and new values are marshalled to JSON
// snapshots; either may be nil.
func (s *AuditService) Record(ctx context.Context, actor Actor, action, tableName string, recordID string, oldValue, newValue interface{}) {
	entry := &models.ActivityAuditLog{
		TableName: tableName,
		Action:    action,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if actor.UserID != "" {
		entry.UserID = &actor.UserID
	}
	if recordID != "" {
		entry.RecordID = &recordID
	}
	if oldValue != nil {
		if raw, err := json.Marshal(oldValue); err == nil {
			entry.OldValues = raw
		}
	}
	if newValue != nil {
		if raw, err := json.Marshal(newValue); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed",
			zap.String("table", tableName),
			zap.String("action", action),
			zap.String("record_id", recordID),
			zap.Error(err))
	}
}

// List returns audit entries matching the filter, newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.ActivityAuditLog, int, error) {
	entries, total, err := s.audits.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries")
	}
	return entries, total, nil
}
