package models

import "time"

// LeadStatus tracks a client lead through the enrollment funnel.
type LeadStatus string

const (
	LeadStatusNewInquiry          LeadStatus = "new_inquiry"
	LeadStatusContacted           LeadStatus = "contacted"
	LeadStatusEducationProvided   LeadStatus = "education_provided"
	LeadStatusConsentPending      LeadStatus = "consent_pending"
	LeadStatusConsentReceived     LeadStatus = "consent_received"
	LeadStatusReferralSubmitted   LeadStatus = "referral_submitted"
	LeadStatusAssessmentScheduled LeadStatus = "assessment_scheduled"
	LeadStatusApproved            LeadStatus = "approved"
	LeadStatusDenied              LeadStatus = "denied"
	LeadStatusServiceStarted      LeadStatus = "service_started"
	LeadStatusLostNotEligible     LeadStatus = "lost_not_eligible"
)

// LeadStatuses lists every lead status in funnel order.
var LeadStatuses = []LeadStatus{
	LeadStatusNewInquiry,
	LeadStatusContacted,
	LeadStatusEducationProvided,
	LeadStatusConsentPending,
	LeadStatusConsentReceived,
	LeadStatusReferralSubmitted,
	LeadStatusAssessmentScheduled,
	LeadStatusApproved,
	LeadStatusDenied,
	LeadStatusServiceStarted,
	LeadStatusLostNotEligible,
}

// Valid reports whether the status is a known value.
func (s LeadStatus) Valid() bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition leaves the status.
func (s LeadStatus) Terminal() bool {
	switch s {
	case LeadStatusDenied, LeadStatusServiceStarted, LeadStatusLostNotEligible:
		return true
	}
	return false
}

// leadTransitions is the legal-transition table. lost_not_eligible is
// reachable from every non-terminal state and is appended in CanTransition.
var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadStatusNewInquiry:          {LeadStatusContacted},
	LeadStatusContacted:           {LeadStatusEducationProvided},
	LeadStatusEducationProvided:   {LeadStatusConsentPending},
	LeadStatusConsentPending:      {LeadStatusConsentReceived},
	LeadStatusConsentReceived:     {LeadStatusReferralSubmitted},
	LeadStatusReferralSubmitted:   {LeadStatusAssessmentScheduled},
	LeadStatusAssessmentScheduled: {LeadStatusApproved, LeadStatusDenied},
	LeadStatusApproved:            {LeadStatusServiceStarted},
}

// CanTransition reports whether moving from one status to another is legal.
// Writing the current status back is always allowed.
func CanTransition(from, to LeadStatus) bool {
	if from == to {
		return true
	}
	if to == LeadStatusLostNotEligible {
		return !from.Terminal()
	}
	for _, next := range leadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ContactType identifies who is reaching out about care.
type ContactType string

const (
	ContactTypeClient         ContactType = "client"
	ContactTypeFamilyMember   ContactType = "family_member"
	ContactTypeCaregiver      ContactType = "caregiver"
	ContactTypeReferralSource ContactType = "referral_source"
)

// InsuranceStatus captures the coverage reported at intake.
type InsuranceStatus string

const (
	InsuranceMedicaid         InsuranceStatus = "medicaid"
	InsuranceMedicare         InsuranceStatus = "medicare"
	InsuranceMedicaidMedicare InsuranceStatus = "medicaid_medicare"
	InsurancePrivatePay       InsuranceStatus = "private_pay"
	InsuranceUnknown          InsuranceStatus = "unknown"
)

// InitialNeed captures the service category requested at intake.
type InitialNeed string

const (
	NeedPersonalCare  InitialNeed = "personal_care"
	NeedAttendantCare InitialNeed = "attendant_care"
	NeedRespite       InitialNeed = "respite"
	NeedUnsure        InitialNeed = "unsure"
)

// ReferralSource records how the lead found the agency.
type ReferralSource string

const (
	SourceWebsite           ReferralSource = "website"
	SourceCICOA             ReferralSource = "cicoa"
	SourceHospital          ReferralSource = "hospital"
	SourceWordOfMouth       ReferralSource = "word_of_mouth"
	SourceCaregiverReferral ReferralSource = "caregiver_referral"
	SourceEventOutreach     ReferralSource = "event_outreach"
	SourceOther             ReferralSource = "other"
)

// ClientLead is the anchor entity: every pipeline, task, and linked referral
// hangs off a lead row.
type ClientLead struct {
	ID              string          `db:"id" json:"id"`
	FirstName       string          `db:"first_name" json:"first_name"`
	LastName        string          `db:"last_name" json:"last_name"`
	Phone           string          `db:"phone" json:"phone"`
	Email           *string         `db:"email" json:"email,omitempty"`
	County          string          `db:"county" json:"county"`
	City            *string         `db:"city" json:"city,omitempty"`
	Zip             *string         `db:"zip" json:"zip,omitempty"`
	Address         *string         `db:"address" json:"address,omitempty"`
	ContactType     ContactType     `db:"contact_type" json:"contact_type"`
	InsuranceStatus InsuranceStatus `db:"insurance_status" json:"insurance_status"`
	InitialNeed     InitialNeed     `db:"initial_need" json:"initial_need"`
	ReferralSource  ReferralSource  `db:"referral_source" json:"referral_source"`
	LeadStatus      LeadStatus      `db:"lead_status" json:"lead_status"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	AssignedTo      *string         `db:"assigned_to" json:"assigned_to,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// LeadFilter provides filters for listing leads.
type LeadFilter struct {
	Status     LeadStatus
	County     string
	AssignedTo string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
