package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"janani/internal/beneficiary/models"
	id "janani/pkg/domain"
	"janani/pkg/platform/sentinel"
)

// PostgresStore reads beneficiary signals from the platform's beneficiaries
// and visits tables. All queries are read-only; the case-management
// subsystems own the writes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.Beneficiary, error) {
	const query = `
		SELECT id, name, COALESCE(lmp, ''), COALESCE(confirmation_date, ''), delivery_status, registered_at
		FROM beneficiaries
		WHERE id = $1`

	b := &models.Beneficiary{}
	var rawID uuid.UUID
	var status string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(beneficiaryID)).Scan(
		&rawID, &b.Name, &b.Pregnancy.LMP, &b.Pregnancy.ConfirmationDate, &status, &b.RegisteredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find beneficiary: %w", err)
	}
	b.ID = id.BeneficiaryID(rawID)
	b.DeliveryStatus = models.DeliveryStatus(status)
	return b, nil
}

func (s *PostgresStore) HasVisit(ctx context.Context, beneficiaryID id.BeneficiaryID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM visits WHERE beneficiary_id = $1)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(beneficiaryID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check visits: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) DeliveryStatus(ctx context.Context, beneficiaryID id.BeneficiaryID) (models.DeliveryStatus, error) {
	const query = `SELECT delivery_status FROM beneficiaries WHERE id = $1`

	var status string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(beneficiaryID)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("delivery status: %w", err)
	}
	return models.DeliveryStatus(status), nil
}
