package models

import "time"

// CareHeroDecision is the client's selection decision on a tracked referral.
type CareHeroDecision string

const (
	DecisionPending CareHeroDecision = "pending"
	DecisionYes     CareHeroDecision = "yes"
	DecisionNo      CareHeroDecision = "no"
)

// ReferralTracking is a staff-submitted agency referral. It may exist without
// a matching lead; LeadID is nulled when the lead is deleted. Client name and
// county are denormalized snapshots, not derived from the lead row.
type ReferralTracking struct {
	ID                     string           `db:"id" json:"id"`
	LeadID                 *string          `db:"lead_id" json:"lead_id,omitempty"`
	ClientName             string           `db:"client_name" json:"client_name"`
	County                 string           `db:"county" json:"county"`
	SubmissionDate         time.Time        `db:"submission_date" json:"submission_date"`
	Agency                 string           `db:"agency" json:"agency"`
	SubmittedOnline        bool             `db:"submitted_online" json:"submitted_online"`
	Confirmation           *string          `db:"confirmation" json:"confirmation,omitempty"`
	MaximusRequired        bool             `db:"maximus_required" json:"maximus_required"`
	MaximusDate            *time.Time       `db:"maximus_date" json:"maximus_date,omitempty"`
	LOCStatus              LOCOutcome       `db:"loc_status" json:"loc_status"`
	ClientSelectedCareHero CareHeroDecision `db:"client_selected_carehero" json:"client_selected_carehero"`
	EstimatedStartDate     *time.Time       `db:"estimated_start_date" json:"estimated_start_date,omitempty"`
	InternalNotes          *string          `db:"internal_notes" json:"internal_notes,omitempty"`
	ScreenshotURL          *string          `db:"screenshot_url" json:"screenshot_url,omitempty"`
	CreatedBy              *string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt              time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time        `db:"updated_at" json:"updated_at"`
}

// ReferralFilter provides filters for listing referrals.
type ReferralFilter struct {
	Agency    string
	LOCStatus LOCOutcome
	LeadID    string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// WeeklyReferralReport aggregates referrals whose submission date falls in a
// Sunday-to-Saturday week. ApprovalRate is nil when no determination has been
// made yet so callers can distinguish "0%" from "nothing decided".
type WeeklyReferralReport struct {
	WeekStart    time.Time `json:"week_start"`
	WeekEnd      time.Time `json:"week_end"`
	Total        int       `json:"total"`
	Pending      int       `json:"pending"`
	Approved     int       `json:"approved"`
	Denied       int       `json:"denied"`
	ApprovalRate *float64  `json:"approval_rate,omitempty"`
}
