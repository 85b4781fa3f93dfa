package models

// InstallmentStatus is the canonical lifecycle state of one installment.
// The lifecycle is linear with no backward transitions:
//
//	locked → eligible → application_submitted → approved → paid
//
// paid is additionally reachable directly from eligible (payout recorded at a
// camp without a formal application round-trip). That fast-track is
// deliberate; see MarkPaid on BenefitRecord.
type InstallmentStatus string

const (
	StatusLocked               InstallmentStatus = "locked"
	StatusEligible             InstallmentStatus = "eligible"
	StatusApplicationSubmitted InstallmentStatus = "application_submitted"
	StatusApproved             InstallmentStatus = "approved"
	StatusPaid                 InstallmentStatus = "paid"
)

// transitions is the single source of truth for the installment state
// machine. Every guard in this package consults it; nothing else encodes
// edges.
var transitions = map[InstallmentStatus][]InstallmentStatus{
	StatusLocked:               {StatusEligible},
	StatusEligible:             {StatusApplicationSubmitted, StatusPaid},
	StatusApplicationSubmitted: {StatusApproved},
	StatusApproved:             {StatusPaid},
	StatusPaid:                 {},
}

// CanTransitionTo reports whether the state machine permits moving from s to
// target.
func (s InstallmentStatus) CanTransitionTo(target InstallmentStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// CountsAsEligible reports whether the installment has passed the eligibility
// gate. Derived totals (totalEligible, progress) count exactly these states.
func (s InstallmentStatus) CountsAsEligible() bool {
	switch s {
	case StatusEligible, StatusApplicationSubmitted, StatusApproved, StatusPaid:
		return true
	}
	return false
}

// IsValid checks membership in the canonical status set.
func (s InstallmentStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

func (s InstallmentStatus) String() string { return string(s) }

// ApplicationStatus tracks the paperwork attached to an installment.
type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationApproved  ApplicationStatus = "approved"
)
