package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/carehero-care/portal-api/internal/models"
)

// AuditRepository appends to and reads the activity audit log. The table is
// append-only; no update or delete statements exist here.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.ActivityAuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_audit_logs (id, table_name, record_id, action, old_values, new_values, user_id, ip_address, user_agent, created_at)
        VALUES (:id, :table_name, :record_id, :action, :old_values, :new_values, :user_id, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns audit entries matching the provided filters, newest first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.ActivityAuditLog, int, error) {
	base := "FROM activity_audit_logs"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.TableName != "" {
		conditions = append(conditions, fmt.Sprintf("table_name = $%d", len(args)+1))
		args = append(args, filter.TableName)
	}
	if filter.RecordID != "" {
		conditions = append(conditions, fmt.Sprintf("record_id = $%d", len(args)+1))
		args = append(args, filter.RecordID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, table_name, record_id, action, old_values, new_values, user_id, ip_address, user_agent, created_at
        %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var entries []models.ActivityAuditLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return entries, total, nil
}
