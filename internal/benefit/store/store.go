// Package store persists benefit records. Two implementations share one
// contract: an in-memory store for unit tests and database-less runs, and a
// postgres store for production.
package store

import (
	"context"

	"janani/internal/benefit/models"
	id "janani/pkg/domain"
)

// Store is the benefit ledger's persistence contract.
//
// UpdateInstallment is the only mutation path for installment state: it
// applies mutate atomically if and only if the addressed installment is still
// in the expected pre-state, returning sentinel.ErrInvalidState otherwise.
// This conditional write is what prevents lost updates when two callers race
// to transition the same installment. mutate receives the freshly-loaded
// record and is responsible for leaving derived totals consistent (the
// models' Apply* methods do); the store persists statuses and totals in the
// same atomic write.
type Store interface {
	// Create persists a new record; sentinel.ErrConflict when one exists.
	Create(ctx context.Context, record *models.BenefitRecord) error

	// Find returns the record, or sentinel.ErrNotFound.
	Find(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.BenefitRecord, error)

	// UpdateInstallment runs mutate under the record's write lock iff
	// installment n currently has status expect. Returns the updated record.
	UpdateInstallment(
		ctx context.Context,
		beneficiaryID id.BeneficiaryID,
		n id.InstallmentNumber,
		expect models.InstallmentStatus,
		mutate func(*models.BenefitRecord) error,
	) (*models.BenefitRecord, error)

	// ListPendingApplications returns every installment currently in
	// application_submitted across all beneficiaries, joined with payout
	// details.
	ListPendingApplications(ctx context.Context) ([]*models.PendingApplication, error)
}
