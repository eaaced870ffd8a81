package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/carehero-care/portal-api/internal/models"
)

// LeadRepository manages persistence for client leads.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository constructs a LeadRepository.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, first_name, last_name, phone, email, county, city, zip, address,
        contact_type, insurance_status, initial_need, referral_source, lead_status,
        notes, assigned_to, created_at, updated_at`

// List returns leads matching the provided filters.
func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.ClientLead, int, error) {
	base := "FROM client_leads"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("lead_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.County != "" {
		conditions = append(conditions, fmt.Sprintf("county = $%d", len(args)+1))
		args = append(args, filter.County)
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)+1))
		args = append(args, filter.AssignedTo)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name || ' ' || last_name) LIKE $%d OR phone LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"last_name":   "last_name",
		"county":      "county",
		"lead_status": "lead_status",
		"created_at":  "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", leadColumns, base, column, order, size, offset)

	var leads []models.ClientLead
	if err := r.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}
	return leads, total, nil
}

// FindByID fetches a lead by ID.
func (r *LeadRepository) FindByID(ctx context.Context, id string) (*models.ClientLead, error) {
	query := fmt.Sprintf("SELECT %s FROM client_leads WHERE id = $1", leadColumns)
	var lead models.ClientLead
	if err := r.db.GetContext(ctx, &lead, query, id); err != nil {
		return nil, err
	}
	return &lead, nil
}

// Create inserts a new lead record.
func (r *LeadRepository) Create(ctx context.Context, lead *models.ClientLead) error {
	prepareLead(lead)
	const query = `INSERT INTO client_leads (id, first_name, last_name, phone, email, county, city, zip, address,
        contact_type, insurance_status, initial_need, referral_source, lead_status, notes, assigned_to, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :phone, :email, :county, :city, :zip, :address,
        :contact_type, :insurance_status, :initial_need, :referral_source, :lead_status, :notes, :assigned_to, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

// CreateWithPipeline inserts a lead and its enrollment pipeline row in a
// single transaction. Used by the public get-started flow so a consented lead
// never exists without its pipeline.
func (r *LeadRepository) CreateWithPipeline(ctx context.Context, lead *models.ClientLead, pipeline *models.EnrollmentPipeline) error {
	prepareLead(lead)
	if pipeline.ID == "" {
		pipeline.ID = uuid.NewString()
	}
	pipeline.LeadID = lead.ID
	now := time.Now().UTC()
	if pipeline.CreatedAt.IsZero() {
		pipeline.CreatedAt = now
	}
	pipeline.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin get-started tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const leadQuery = `INSERT INTO client_leads (id, first_name, last_name, phone, email, county, city, zip, address,
        contact_type, insurance_status, initial_need, referral_source, lead_status, notes, assigned_to, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :phone, :email, :county, :city, :zip, :address,
        :contact_type, :insurance_status, :initial_need, :referral_source, :lead_status, :notes, :assigned_to, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, leadQuery, lead); err != nil {
		return fmt.Errorf("create lead: %w", err)
	}

	const pipelineQuery = `INSERT INTO enrollment_pipelines (id, lead_id, consent_signed, consent_date,
        cicoa_referral_submitted, cicoa_referral_date, cicoa_confirmation,
        maximus_assessment_required, maximus_scheduled_date, maximus_completed_date,
        loc_outcome, assigned_mce, medicaid_effective_date, approved_services, care_start_date, created_at, updated_at)
        VALUES (:id, :lead_id, :consent_signed, :consent_date,
        :cicoa_referral_submitted, :cicoa_referral_date, :cicoa_confirmation,
        :maximus_assessment_required, :maximus_scheduled_date, :maximus_completed_date,
        :loc_outcome, :assigned_mce, :medicaid_effective_date, :approved_services, :care_start_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, pipelineQuery, pipeline); err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit get-started tx: %w", err)
	}
	return nil
}

// Update modifies an existing lead.
func (r *LeadRepository) Update(ctx context.Context, lead *models.ClientLead) error {
	lead.UpdatedAt = time.Now().UTC()
	const query = `UPDATE client_leads SET first_name = :first_name, last_name = :last_name, phone = :phone,
        email = :email, county = :county, city = :city, zip = :zip, address = :address,
        contact_type = :contact_type, insurance_status = :insurance_status, initial_need = :initial_need,
        referral_source = :referral_source, lead_status = :lead_status, notes = :notes,
        assigned_to = :assigned_to, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return nil
}

// Delete removes a lead. Pipeline and task rows cascade at the schema level;
// referral rows keep their data with lead_id nulled.
func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM client_leads WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return nil
}

// StatusesByIDs returns the current status of each requested lead.
func (r *LeadRepository) StatusesByIDs(ctx context.Context, ids []string) (map[string]models.LeadStatus, error) {
	const query = `SELECT id, lead_status FROM client_leads WHERE id = ANY($1)`
	rows := []struct {
		ID         string            `db:"id"`
		LeadStatus models.LeadStatus `db:"lead_status"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load lead statuses: %w", err)
	}
	statuses := make(map[string]models.LeadStatus, len(rows))
	for _, row := range rows {
		statuses[row.ID] = row.LeadStatus
	}
	return statuses, nil
}

// BulkUpdateStatus writes the target status to every lead in the set with a
// single statement and returns the number of rows touched.
func (r *LeadRepository) BulkUpdateStatus(ctx context.Context, ids []string, status models.LeadStatus) (int64, error) {
	const query = `UPDATE client_leads SET lead_status = $1, updated_at = $2 WHERE id = ANY($3)`
	res, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("bulk update lead status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update rows affected: %w", err)
	}
	return affected, nil
}

// BulkDelete removes every lead in the set with a single statement.
func (r *LeadRepository) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	const query = `DELETE FROM client_leads WHERE id = ANY($1)`
	res, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("bulk delete leads: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk delete rows affected: %w", err)
	}
	return affected, nil
}

func prepareLead(lead *models.ClientLead) {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
}
