package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionFunnelOrder(t *testing.T) {
	assert.True(t, CanTransition(LeadStatusNewInquiry, LeadStatusContacted))
	assert.True(t, CanTransition(LeadStatusContacted, LeadStatusEducationProvided))
	assert.True(t, CanTransition(LeadStatusConsentPending, LeadStatusConsentReceived))
	assert.True(t, CanTransition(LeadStatusAssessmentScheduled, LeadStatusApproved))
	assert.True(t, CanTransition(LeadStatusAssessmentScheduled, LeadStatusDenied))
	assert.True(t, CanTransition(LeadStatusApproved, LeadStatusServiceStarted))
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	assert.False(t, CanTransition(LeadStatusNewInquiry, LeadStatusApproved))
	assert.False(t, CanTransition(LeadStatusContacted, LeadStatusConsentReceived))
	assert.False(t, CanTransition(LeadStatusDenied, LeadStatusApproved))
	assert.False(t, CanTransition(LeadStatusServiceStarted, LeadStatusNewInquiry))
}

func TestCanTransitionLostFromAnyNonTerminal(t *testing.T) {
	for _, status := range LeadStatuses {
		got := CanTransition(status, LeadStatusLostNotEligible)
		if status.Terminal() && status != LeadStatusLostNotEligible {
			assert.False(t, got, "terminal status %s should not move to lost", status)
		} else {
			assert.True(t, got, "status %s should reach lost_not_eligible", status)
		}
	}
}

func TestCanTransitionSameStatusAllowed(t *testing.T) {
	for _, status := range LeadStatuses {
		assert.True(t, CanTransition(status, status))
	}
}

func TestLeadStatusValid(t *testing.T) {
	assert.True(t, LeadStatusNewInquiry.Valid())
	assert.False(t, LeadStatus("archived").Valid())
}
