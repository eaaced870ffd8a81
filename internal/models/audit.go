package models

import "time"

// Audit actions recorded against tracked tables.
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
	AuditActionLogin  = "LOGIN"
)

// ActivityAuditLog is an append-only record of a mutation against a tracked
// table. The application never updates or deletes rows in this table.
type ActivityAuditLog struct {
	ID        string    `db:"id" json:"id"`
	TableName string    `db:"table_name" json:"table_name"`
	RecordID  *string   `db:"record_id" json:"record_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	OldValues []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues []byte    `db:"new_values" json:"new_values,omitempty"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter provides filters for listing audit entries.
type AuditFilter struct {
	TableName string
	RecordID  string
	UserID    string
	Action    string
	Page      int
	PageSize  int
}
