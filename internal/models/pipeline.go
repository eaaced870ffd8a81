package models

import "time"

// LOCOutcome is the Level of Care determination result.
type LOCOutcome string

const (
	LOCPending  LOCOutcome = "pending"
	LOCApproved LOCOutcome = "approved"
	LOCDenied   LOCOutcome = "denied"
)

// ManagedCareEntity is the insurance administrator assigned after approval.
type ManagedCareEntity string

const (
	MCEAnthem           ManagedCareEntity = "anthem"
	MCEHumana           ManagedCareEntity = "humana"
	MCEUnitedHealthcare ManagedCareEntity = "unitedhealthcare"
)

// EnrollmentPipeline tracks Medicaid waiver milestones for one lead. The
// relation is 1:1 by convention; the schema only enforces the foreign key.
type EnrollmentPipeline struct {
	ID                        string             `db:"id" json:"id"`
	LeadID                    string             `db:"lead_id" json:"lead_id"`
	ConsentSigned             bool               `db:"consent_signed" json:"consent_signed"`
	ConsentDate               *time.Time         `db:"consent_date" json:"consent_date,omitempty"`
	CICOAReferralSubmitted    bool               `db:"cicoa_referral_submitted" json:"cicoa_referral_submitted"`
	CICOAReferralDate         *time.Time         `db:"cicoa_referral_date" json:"cicoa_referral_date,omitempty"`
	CICOAConfirmation         *string            `db:"cicoa_confirmation" json:"cicoa_confirmation,omitempty"`
	MaximusAssessmentRequired bool               `db:"maximus_assessment_required" json:"maximus_assessment_required"`
	MaximusScheduledDate      *time.Time         `db:"maximus_scheduled_date" json:"maximus_scheduled_date,omitempty"`
	MaximusCompletedDate      *time.Time         `db:"maximus_completed_date" json:"maximus_completed_date,omitempty"`
	LOCOutcome                LOCOutcome         `db:"loc_outcome" json:"loc_outcome"`
	AssignedMCE               *ManagedCareEntity `db:"assigned_mce" json:"assigned_mce,omitempty"`
	MedicaidEffectiveDate     *time.Time         `db:"medicaid_effective_date" json:"medicaid_effective_date,omitempty"`
	ApprovedServices          *string            `db:"approved_services" json:"approved_services,omitempty"`
	CareStartDate             *time.Time         `db:"care_start_date" json:"care_start_date,omitempty"`
	CreatedAt                 time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time          `db:"updated_at" json:"updated_at"`
}
