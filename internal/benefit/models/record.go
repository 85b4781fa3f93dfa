// Package models holds the benefit ledger aggregate and its state machine.
package models

import (
	"fmt"
	"time"

	id "janani/pkg/domain"
	dErrors "janani/pkg/domain-errors"
)

// Program identity, fixed for this scheme.
const (
	ProgramName      = "Maternity Benefit Programme"
	ProgramShortName = "MBP"
)

// Eligibility criteria labels, one per installment. Presentation-facing and
// stable; the actual gates live in the eligibility package.
const (
	CriteriaEarlyRegistration = "pregnancy_registration_within_3_months"
	CriteriaVisitRecorded     = "anc_visit_recorded"
	CriteriaBirthRecorded     = "birth_recorded"
)

// PaymentDetails is the payout account captured once, during installment 1's
// application, and reused by installments 2 and 3.
type PaymentDetails struct {
	AccountNumber     string    `json:"accountNumber"`
	AccountHolderName string    `json:"accountHolderName"`
	IFSCCode          string    `json:"ifscCode"`
	BankName          string    `json:"bankName"`
	SubmittedDate     time.Time `json:"submittedDate"`
}

// Application is the paperwork attached to an installment once the
// beneficiary applies.
type Application struct {
	SubmittedDate time.Time         `json:"submittedDate"`
	Status        ApplicationStatus `json:"status"`
	ApprovedDate  *time.Time        `json:"approvedDate,omitempty"`
}

// Installment is one of the three fixed disbursements.
type Installment struct {
	Number              id.InstallmentNumber `json:"installmentNumber"`
	Amount              int                  `json:"amount"`
	Status              InstallmentStatus    `json:"status"`
	EligibilityDate     *time.Time           `json:"eligibilityDate"`
	Application         *Application         `json:"application,omitempty"`
	PaidDate            *time.Time           `json:"paidDate"`
	TransactionID       *string              `json:"transactionId"`
	EligibilityCriteria string               `json:"eligibilityCriteria"`
	Description         string               `json:"description"`
}

// BenefitRecord is the aggregate root for one beneficiary's maternity
// benefit.
//
// Invariants:
//   - Exactly 3 installments, created together, never added or removed
//     (enforced by the fixed-size array).
//   - Per-installment amounts are fixed by installment number; TotalAmount is
//     always their sum (5000).
//   - TotalEligible, TotalPaid, and Progress are derived from installment
//     statuses by recompute() inside every Apply* transition — never
//     incremented independently.
//   - PaymentDetails is written once, during installment 1's application, and
//     must exist before installments 2 or 3 can apply.
type BenefitRecord struct {
	BeneficiaryID    id.BeneficiaryID  `json:"beneficiaryId"`
	ProgramTitle     string            `json:"programName"`
	ProgramShort     string            `json:"programShortName"`
	Installments     [3]Installment    `json:"installments"`
	TotalAmount      int               `json:"totalAmount"`
	TotalEligible    int               `json:"totalEligible"`
	TotalPaid        int               `json:"totalPaid"`
	Progress         string            `json:"progress"`
	PaymentDetails   *PaymentDetails   `json:"paymentDetails,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// NewBenefitRecord builds the initial record. Installment 1 starts eligible
// when the registration fell within the scheme's window; installments 2 and 3
// always start locked and unlock on later life events.
func NewBenefitRecord(beneficiaryID id.BeneficiaryID, installment1Eligible bool, confirmedOn time.Time, now time.Time) *BenefitRecord {
	r := &BenefitRecord{
		BeneficiaryID: beneficiaryID,
		ProgramTitle:  ProgramName,
		ProgramShort:  ProgramShortName,
		TotalAmount:   id.TotalBenefitAmount(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	r.Installments[id.InstallmentFirst.Index()] = Installment{
		Number:              id.InstallmentFirst,
		Amount:              id.InstallmentFirst.Amount(),
		Status:              StatusLocked,
		EligibilityCriteria: CriteriaEarlyRegistration,
		Description:         "First installment for early pregnancy registration",
	}
	r.Installments[id.InstallmentSecond.Index()] = Installment{
		Number:              id.InstallmentSecond,
		Amount:              id.InstallmentSecond.Amount(),
		Status:              StatusLocked,
		EligibilityCriteria: CriteriaVisitRecorded,
		Description:         "Second installment after first antenatal care visit",
	}
	r.Installments[id.InstallmentThird.Index()] = Installment{
		Number:              id.InstallmentThird,
		Amount:              id.InstallmentThird.Amount(),
		Status:              StatusLocked,
		EligibilityCriteria: CriteriaBirthRecorded,
		Description:         "Third installment after birth registration",
	}

	if installment1Eligible {
		first := &r.Installments[id.InstallmentFirst.Index()]
		first.Status = StatusEligible
		eligibleOn := confirmedOn
		first.EligibilityDate = &eligibleOn
	}

	r.recompute()
	return r
}

// Installment returns the installment addressed by number. The number must be
// valid; callers parse it at the trust boundary.
func (r *BenefitRecord) Installment(n id.InstallmentNumber) *Installment {
	return &r.Installments[n.Index()]
}

// CanUnlock checks the locked → eligible transition.
func (r *BenefitRecord) CanUnlock(n id.InstallmentNumber) error {
	current := r.Installment(n).Status
	if !current.CanTransitionTo(StatusEligible) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"installment %d cannot move from %s to eligible", n, current)
	}
	return nil
}

// ApplyUnlock transitions the installment to eligible and stamps the
// eligibility date. Call CanUnlock first.
func (r *BenefitRecord) ApplyUnlock(n id.InstallmentNumber, now time.Time) {
	inst := r.Installment(n)
	inst.Status = StatusEligible
	eligibleOn := now
	inst.EligibilityDate = &eligibleOn
	r.touch(now)
}

// CanSubmitApplication checks the eligible → application_submitted
// transition. Installments 2 and 3 additionally require payout details
// captured during installment 1's application.
func (r *BenefitRecord) CanSubmitApplication(n id.InstallmentNumber) error {
	current := r.Installment(n).Status
	if !current.CanTransitionTo(StatusApplicationSubmitted) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"installment %d is %s; applications require status eligible", n, current)
	}
	if n != id.InstallmentFirst && r.PaymentDetails == nil {
		return dErrors.Newf(dErrors.CodeMissingPaymentDetails,
			"installment %d reuses payout details from installment 1, which were never submitted", n)
	}
	return nil
}

// ApplySubmission records the application. For installment 1 the supplied
// details become the record's payout account; for installments 2 and 3 the
// stored details are reused and details must be nil. Call
// CanSubmitApplication first.
func (r *BenefitRecord) ApplySubmission(n id.InstallmentNumber, details *PaymentDetails, now time.Time) {
	if n == id.InstallmentFirst && r.PaymentDetails == nil && details != nil {
		captured := *details
		captured.SubmittedDate = now
		r.PaymentDetails = &captured
	}
	inst := r.Installment(n)
	inst.Status = StatusApplicationSubmitted
	inst.Application = &Application{SubmittedDate: now, Status: ApplicationSubmitted}
	r.touch(now)
}

// CanApprove checks the application_submitted → approved transition.
func (r *BenefitRecord) CanApprove(n id.InstallmentNumber) error {
	current := r.Installment(n).Status
	if !current.CanTransitionTo(StatusApproved) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"installment %d is %s; approval requires a submitted application", n, current)
	}
	return nil
}

// ApplyApproval marks the application approved. Call CanApprove first.
func (r *BenefitRecord) ApplyApproval(n id.InstallmentNumber, now time.Time) {
	inst := r.Installment(n)
	inst.Status = StatusApproved
	if inst.Application != nil {
		inst.Application.Status = ApplicationApproved
		approvedOn := now
		inst.Application.ApprovedDate = &approvedOn
	}
	r.touch(now)
}

// CanMarkPaid checks the transition to paid. Both entry points are
// legitimate: approved → paid closes the formal application path, and
// eligible → paid records a direct payout made without the application
// round-trip.
func (r *BenefitRecord) CanMarkPaid(n id.InstallmentNumber) error {
	current := r.Installment(n).Status
	switch current {
	case StatusPaid:
		return dErrors.Newf(dErrors.CodeAlreadyPaid, "installment %d is already marked as paid", n)
	case StatusLocked:
		return dErrors.Newf(dErrors.CodeNotEligible, "installment %d is not yet eligible", n)
	}
	if !current.CanTransitionTo(StatusPaid) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"installment %d is %s; payment requires status eligible or approved", n, current)
	}
	return nil
}

// ApplyPayment finalizes the payout. Call CanMarkPaid first.
func (r *BenefitRecord) ApplyPayment(n id.InstallmentNumber, transactionID string, now time.Time) {
	inst := r.Installment(n)
	inst.Status = StatusPaid
	paidOn := now
	inst.PaidDate = &paidOn
	inst.TransactionID = &transactionID
	r.touch(now)
}

// touch recomputes derived totals and bumps UpdatedAt. Every Apply* ends
// here so totals are never stale relative to statuses.
func (r *BenefitRecord) touch(now time.Time) {
	r.UpdatedAt = now
	r.recompute()
}

func (r *BenefitRecord) recompute() {
	eligible, paid, count := 0, 0, 0
	for i := range r.Installments {
		inst := &r.Installments[i]
		if inst.Status.CountsAsEligible() {
			eligible += inst.Amount
			count++
		}
		if inst.Status == StatusPaid {
			paid += inst.Amount
		}
	}
	r.TotalEligible = eligible
	r.TotalPaid = paid
	r.Progress = fmt.Sprintf("%d/%d", count, len(r.Installments))
}

// Clone returns a deep copy. The in-memory store hands out clones so callers
// can never mutate shared state outside a transition.
func (r *BenefitRecord) Clone() *BenefitRecord {
	copied := *r
	if r.PaymentDetails != nil {
		details := *r.PaymentDetails
		copied.PaymentDetails = &details
	}
	for i := range r.Installments {
		src := &r.Installments[i]
		dst := &copied.Installments[i]
		if src.EligibilityDate != nil {
			d := *src.EligibilityDate
			dst.EligibilityDate = &d
		}
		if src.PaidDate != nil {
			d := *src.PaidDate
			dst.PaidDate = &d
		}
		if src.TransactionID != nil {
			t := *src.TransactionID
			dst.TransactionID = &t
		}
		if src.Application != nil {
			app := *src.Application
			if src.Application.ApprovedDate != nil {
				d := *src.Application.ApprovedDate
				app.ApprovedDate = &d
			}
			dst.Application = &app
		}
	}
	return &copied
}

// Validate checks the aggregate's structural invariants. Stores run it after
// loading to fail fast on corrupted rows.
func (r *BenefitRecord) Validate() error {
	total := 0
	for i := range r.Installments {
		inst := &r.Installments[i]
		want := id.InstallmentNumber(i + 1)
		if inst.Number != want {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"installment at position %d is numbered %d", i, inst.Number)
		}
		if inst.Amount != want.Amount() {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"installment %d has amount %d, expected %d", want, inst.Amount, want.Amount())
		}
		if !inst.Status.IsValid() {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"installment %d has unknown status %q", want, inst.Status)
		}
		total += inst.Amount
	}
	if total != r.TotalAmount {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"total amount %d does not match installment sum %d", r.TotalAmount, total)
	}
	return nil
}
