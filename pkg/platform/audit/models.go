package audit

import (
	"time"

	id "janani/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// everything that moves or authorizes public money. These require
	// tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key lifecycle actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	BeneficiaryID id.BeneficiaryID
	Action        string
	Installment   int
	Amount        int
	Decision      string
	Reason        string
	TransactionID string
	RequestID     string
	// ActorID tracks who performed the action: the beneficiary themselves,
	// or the health worker / approver acting on the record.
	ActorID   string
	ActorRole string
}

type AuditEvent string

const (
	EventBenefitInitialized   AuditEvent = "benefit_initialized"
	EventInstallmentUnlocked  AuditEvent = "installment_unlocked"
	EventApplicationSubmitted AuditEvent = "application_submitted"
	EventApplicationApproved  AuditEvent = "application_approved"
	EventInstallmentPaid      AuditEvent = "installment_paid"
)

// eventCategories maps each audit event to its category. Approvals and
// payouts are the money-moving decisions regulators ask about; record
// creation and unlocks are routine bookkeeping.
var eventCategories = map[AuditEvent]EventCategory{
	EventBenefitInitialized:   CategoryOperations,
	EventInstallmentUnlocked:  CategoryOperations,
	EventApplicationSubmitted: CategoryCompliance,
	EventApplicationApproved:  CategoryCompliance,
	EventInstallmentPaid:      CategoryCompliance,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
