package store

import (
	"context"
	"sync"

	"janani/internal/beneficiary/models"
	id "janani/pkg/domain"
	"janani/pkg/platform/sentinel"
)

// InMemoryStore implements PregnancyStore and SignalStore over process
// memory. Used in unit tests and when the process runs without a database;
// the Put/Record mutators stand in for the platform subsystems that own the
// data in production.
type InMemoryStore struct {
	mu            sync.RWMutex
	beneficiaries map[id.BeneficiaryID]*models.Beneficiary
	visits        map[id.BeneficiaryID]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		beneficiaries: make(map[id.BeneficiaryID]*models.Beneficiary),
		visits:        make(map[id.BeneficiaryID]int),
	}
}

func (s *InMemoryStore) Find(_ context.Context, beneficiaryID id.BeneficiaryID) (*models.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.beneficiaries[beneficiaryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *InMemoryStore) HasVisit(_ context.Context, beneficiaryID id.BeneficiaryID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visits[beneficiaryID] > 0, nil
}

func (s *InMemoryStore) DeliveryStatus(_ context.Context, beneficiaryID id.BeneficiaryID) (models.DeliveryStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.beneficiaries[beneficiaryID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return b.DeliveryStatus, nil
}

// Put registers or replaces a beneficiary record.
func (s *InMemoryStore) Put(b *models.Beneficiary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *b
	s.beneficiaries[b.ID] = &copied
}

// RecordVisit registers one visit for the beneficiary.
func (s *InMemoryStore) RecordVisit(beneficiaryID id.BeneficiaryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits[beneficiaryID]++
}

// RecordDelivery marks the beneficiary's pregnancy as delivered.
func (s *InMemoryStore) RecordDelivery(beneficiaryID id.BeneficiaryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.beneficiaries[beneficiaryID]; ok {
		b.DeliveryStatus = models.DeliveryStatusDelivered
	}
}
