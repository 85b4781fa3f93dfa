// Package store provides read-only access to beneficiary signals owned by
// the surrounding case-management platform.
package store

import (
	"context"

	"janani/internal/beneficiary/models"
	id "janani/pkg/domain"
)

// PregnancyStore exposes the pregnancy record consulted at initialization.
type PregnancyStore interface {
	// Find returns the beneficiary's record, or sentinel.ErrNotFound.
	Find(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.Beneficiary, error)
}

// SignalStore exposes the visit and delivery signals consulted at unlock
// checkpoints.
type SignalStore interface {
	// HasVisit reports whether at least one visit is recorded.
	HasVisit(ctx context.Context, beneficiaryID id.BeneficiaryID) (bool, error)
	// DeliveryStatus returns the recorded pregnancy outcome, or
	// sentinel.ErrNotFound when the beneficiary is unknown.
	DeliveryStatus(ctx context.Context, beneficiaryID id.BeneficiaryID) (models.DeliveryStatus, error)
}
