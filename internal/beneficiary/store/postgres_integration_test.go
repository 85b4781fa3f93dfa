//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"janani/internal/beneficiary/models"
	"janani/internal/beneficiary/store"
	id "janani/pkg/domain"
	"janani/pkg/platform/sentinel"
	"janani/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *store.PostgresStore
	ctx       context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.container.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.DB.Close()
		_ = s.container.Container.Terminate(s.ctx)
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) seed(lmp, confirmation, deliveryStatus string) id.BeneficiaryID {
	beneficiaryID := uuid.New()
	_, err := s.container.DB.ExecContext(s.ctx, `
		INSERT INTO beneficiaries (id, name, lmp, confirmation_date, delivery_status, registered_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)`,
		beneficiaryID, "Asha Devi", lmp, confirmation, deliveryStatus,
		time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	)
	s.Require().NoError(err)
	return id.BeneficiaryID(beneficiaryID)
}

func (s *PostgresStoreSuite) TestFind() {
	beneficiaryID := s.seed("2024-01-01", "2024-01-20", "pregnant")

	b, err := s.store.Find(s.ctx, beneficiaryID)
	s.Require().NoError(err)
	s.Equal(beneficiaryID, b.ID)
	s.Equal("Asha Devi", b.Name)
	s.Equal("2024-01-01", b.Pregnancy.LMP)
	s.Equal("2024-01-20", b.Pregnancy.ConfirmationDate)
	s.Equal(models.DeliveryStatusPregnant, b.DeliveryStatus)
}

func (s *PostgresStoreSuite) TestFindMissingDatesAreEmptyStrings() {
	beneficiaryID := s.seed("", "", "pregnant")

	b, err := s.store.Find(s.ctx, beneficiaryID)
	s.Require().NoError(err)
	s.Empty(b.Pregnancy.LMP)
	s.Empty(b.Pregnancy.ConfirmationDate)
}

func (s *PostgresStoreSuite) TestFindNotFound() {
	_, err := s.store.Find(s.ctx, id.BeneficiaryID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestHasVisit() {
	beneficiaryID := s.seed("2024-01-01", "2024-01-20", "pregnant")

	has, err := s.store.HasVisit(s.ctx, beneficiaryID)
	s.Require().NoError(err)
	s.False(has)

	_, err = s.container.DB.ExecContext(s.ctx,
		`INSERT INTO visits (id, beneficiary_id, visited_at) VALUES ($1, $2, $3)`,
		uuid.New(), uuid.UUID(beneficiaryID), time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	s.Require().NoError(err)

	has, err = s.store.HasVisit(s.ctx, beneficiaryID)
	s.Require().NoError(err)
	s.True(has)
}

func (s *PostgresStoreSuite) TestDeliveryStatus() {
	pregnant := s.seed("2024-01-01", "2024-01-20", "pregnant")
	delivered := s.seed("2024-01-01", "2024-01-20", "delivered")

	status, err := s.store.DeliveryStatus(s.ctx, pregnant)
	s.Require().NoError(err)
	s.False(status.Delivered())

	status, err = s.store.DeliveryStatus(s.ctx, delivered)
	s.Require().NoError(err)
	s.True(status.Delivered())

	_, err = s.store.DeliveryStatus(s.ctx, id.BeneficiaryID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
