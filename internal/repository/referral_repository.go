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

// ReferralRepository manages persistence for internal referral tracking.
type ReferralRepository struct {
	db *sqlx.DB
}

// NewReferralRepository constructs a ReferralRepository.
func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

const referralColumns = `id, lead_id, client_name, county, submission_date, agency, submitted_online,
        confirmation, maximus_required, maximus_date, loc_status, client_selected_carehero,
        estimated_start_date, internal_notes, screenshot_url, created_by, created_at, updated_at`

// List returns referrals matching the provided filters.
func (r *ReferralRepository) List(ctx context.Context, filter models.ReferralFilter) ([]models.ReferralTracking, int, error) {
	base := "FROM referral_trackings"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Agency != "" {
		conditions = append(conditions, fmt.Sprintf("agency = $%d", len(args)+1))
		args = append(args, filter.Agency)
	}
	if filter.LOCStatus != "" {
		conditions = append(conditions, fmt.Sprintf("loc_status = $%d", len(args)+1))
		args = append(args, filter.LOCStatus)
	}
	if filter.LeadID != "" {
		conditions = append(conditions, fmt.Sprintf("lead_id = $%d", len(args)+1))
		args = append(args, filter.LeadID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(client_name) LIKE $%d OR LOWER(county) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"client_name":     "client_name",
		"agency":          "agency",
		"submission_date": "submission_date",
		"created_at":      "created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "submission_date"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", referralColumns, base, column, order, size, offset)

	var referrals []models.ReferralTracking
	if err := r.db.SelectContext(ctx, &referrals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list referrals: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count referrals: %w", err)
	}
	return referrals, total, nil
}

// ListBetween returns referrals whose submission date falls in [start, end).
func (r *ReferralRepository) ListBetween(ctx context.Context, start, end time.Time) ([]models.ReferralTracking, error) {
	query := fmt.Sprintf("SELECT %s FROM referral_trackings WHERE submission_date >= $1 AND submission_date < $2 ORDER BY submission_date ASC", referralColumns)
	var referrals []models.ReferralTracking
	if err := r.db.SelectContext(ctx, &referrals, query, start, end); err != nil {
		return nil, fmt.Errorf("list referrals between: %w", err)
	}
	return referrals, nil
}

// FindByID fetches a referral by ID.
func (r *ReferralRepository) FindByID(ctx context.Context, id string) (*models.ReferralTracking, error) {
	query := fmt.Sprintf("SELECT %s FROM referral_trackings WHERE id = $1", referralColumns)
	var referral models.ReferralTracking
	if err := r.db.GetContext(ctx, &referral, query, id); err != nil {
		return nil, err
	}
	return &referral, nil
}

// Create inserts a new referral record.
func (r *ReferralRepository) Create(ctx context.Context, referral *models.ReferralTracking) error {
	if referral.ID == "" {
		referral.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = now
	}
	referral.UpdatedAt = now
	const query = `INSERT INTO referral_trackings (id, lead_id, client_name, county, submission_date, agency,
        submitted_online, confirmation, maximus_required, maximus_date, loc_status, client_selected_carehero,
        estimated_start_date, internal_notes, screenshot_url, created_by, created_at, updated_at)
        VALUES (:id, :lead_id, :client_name, :county, :submission_date, :agency,
        :submitted_online, :confirmation, :maximus_required, :maximus_date, :loc_status, :client_selected_carehero,
        :estimated_start_date, :internal_notes, :screenshot_url, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, referral); err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	return nil
}

// Update modifies an existing referral record.
func (r *ReferralRepository) Update(ctx context.Context, referral *models.ReferralTracking) error {
	referral.UpdatedAt = time.Now().UTC()
	const query = `UPDATE referral_trackings SET lead_id = :lead_id, client_name = :client_name, county = :county,
        submission_date = :submission_date, agency = :agency, submitted_online = :submitted_online,
        confirmation = :confirmation, maximus_required = :maximus_required, maximus_date = :maximus_date,
        loc_status = :loc_status, client_selected_carehero = :client_selected_carehero,
        estimated_start_date = :estimated_start_date, internal_notes = :internal_notes,
        screenshot_url = :screenshot_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, referral); err != nil {
		return fmt.Errorf("update referral: %w", err)
	}
	return nil
}

// Delete removes a referral record.
func (r *ReferralRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM referral_trackings WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete referral: %w", err)
	}
	return nil
}

// ScreenshotURLs returns every non-null screenshot URL. The orphan sweep uses
// the set to protect referenced uploads from deletion.
func (r *ReferralRepository) ScreenshotURLs(ctx context.Context) ([]string, error) {
	const query = `SELECT screenshot_url FROM referral_trackings WHERE screenshot_url IS NOT NULL`
	var urls []string
	if err := r.db.SelectContext(ctx, &urls, query); err != nil {
		return nil, fmt.Errorf("list screenshot urls: %w", err)
	}
	return urls, nil
}
