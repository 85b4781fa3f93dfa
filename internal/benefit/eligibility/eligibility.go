// Package eligibility evaluates the external signals that gate each
// installment. Checks are read-only and fail closed: missing or unparsable
// input never unlocks anything.
package eligibility

import (
	"context"
	"errors"
	"time"

	benstore "janani/internal/beneficiary/store"
	id "janani/pkg/domain"
	"janani/pkg/platform/sentinel"
)

// RegistrationWindowDays is the scheme rule for installment 1: the pregnancy
// must be registered within 12 weeks of the last menstrual period.
const RegistrationWindowDays = 84

// DateLayout is the wire format for pregnancy dates.
const DateLayout = "2006-01-02"

// WithinRegistrationWindow checks the installment 1 gate. It returns the
// parsed confirmation date alongside the verdict so callers can stamp the
// eligibility date without reparsing. Fail-closed: empty or malformed dates
// yield false.
func WithinRegistrationWindow(confirmationDate, lmp string) (time.Time, bool) {
	if confirmationDate == "" || lmp == "" {
		return time.Time{}, false
	}
	confirmed, err := time.Parse(DateLayout, confirmationDate)
	if err != nil {
		return time.Time{}, false
	}
	lmpDate, err := time.Parse(DateLayout, lmp)
	if err != nil {
		return time.Time{}, false
	}
	days := int(confirmed.Sub(lmpDate).Hours() / 24)
	return confirmed, days >= 0 && days <= RegistrationWindowDays
}

// Evaluator answers the per-installment gates from its two injected
// collaborators. It holds no state and performs no writes.
type Evaluator struct {
	pregnancies benstore.PregnancyStore
	signals     benstore.SignalStore
}

func NewEvaluator(pregnancies benstore.PregnancyStore, signals benstore.SignalStore) *Evaluator {
	return &Evaluator{pregnancies: pregnancies, signals: signals}
}

// Installment1 checks the early-registration window against the stored
// pregnancy record. Used when initialization is triggered without explicit
// dates in the request.
func (e *Evaluator) Installment1(ctx context.Context, beneficiaryID id.BeneficiaryID) (time.Time, bool, error) {
	b, err := e.pregnancies.Find(ctx, beneficiaryID)
	if err != nil {
		return time.Time{}, false, err
	}
	confirmed, ok := WithinRegistrationWindow(b.Pregnancy.ConfirmationDate, b.Pregnancy.LMP)
	return confirmed, ok, nil
}

// Installment2 is satisfied once at least one visit is recorded.
func (e *Evaluator) Installment2(ctx context.Context, beneficiaryID id.BeneficiaryID) (bool, error) {
	return e.signals.HasVisit(ctx, beneficiaryID)
}

// Installment3 is satisfied once the delivery is recorded. An unknown
// beneficiary fails closed rather than erroring: the gate simply stays shut.
func (e *Evaluator) Installment3(ctx context.Context, beneficiaryID id.BeneficiaryID) (bool, error) {
	status, err := e.signals.DeliveryStatus(ctx, beneficiaryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return status.Delivered(), nil
}
