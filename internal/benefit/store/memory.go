package store

import (
	"context"
	"sync"

	"janani/internal/benefit/models"
	id "janani/pkg/domain"
	"janani/pkg/platform/sentinel"
)

// InMemoryStore keeps benefit records in a map guarded by one RWMutex. The
// conditional-write contract holds trivially: UpdateInstallment checks the
// pre-state and applies the mutation under the same write lock.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.BeneficiaryID]*models.BenefitRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.BeneficiaryID]*models.BenefitRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, record *models.BenefitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.BeneficiaryID]; exists {
		return sentinel.ErrConflict
	}
	s.records[record.BeneficiaryID] = record.Clone()
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, beneficiaryID id.BeneficiaryID) (*models.BenefitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[beneficiaryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemoryStore) UpdateInstallment(
	_ context.Context,
	beneficiaryID id.BeneficiaryID,
	n id.InstallmentNumber,
	expect models.InstallmentStatus,
	mutate func(*models.BenefitRecord) error,
) (*models.BenefitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[beneficiaryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if record.Installment(n).Status != expect {
		return nil, sentinel.ErrInvalidState
	}

	// Mutate a clone so a failing mutate leaves the stored record untouched.
	updated := record.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	s.records[beneficiaryID] = updated
	return updated.Clone(), nil
}

func (s *InMemoryStore) ListPendingApplications(_ context.Context) ([]*models.PendingApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := []*models.PendingApplication{}
	for _, record := range s.records {
		for i := range record.Installments {
			inst := &record.Installments[i]
			if inst.Status != models.StatusApplicationSubmitted || inst.Application == nil {
				continue
			}
			item := &models.PendingApplication{
				BeneficiaryID:     record.BeneficiaryID,
				InstallmentNumber: inst.Number,
				Amount:            inst.Amount,
				SubmittedDate:     inst.Application.SubmittedDate,
			}
			if record.PaymentDetails != nil {
				details := *record.PaymentDetails
				item.PaymentDetails = &details
			}
			pending = append(pending, item)
		}
	}
	return pending, nil
}
