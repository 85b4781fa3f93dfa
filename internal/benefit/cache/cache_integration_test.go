//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"janani/internal/benefit/models"
	"janani/internal/platform/redis"
	id "janani/pkg/domain"
	"janani/pkg/testutil/containers"
)

type SummaryCacheSuite struct {
	suite.Suite
	container *containers.RedisContainer
	cache     *SummaryCache
	ctx       context.Context
	now       time.Time
}

func TestSummaryCacheSuite(t *testing.T) {
	suite.Run(t, new(SummaryCacheSuite))
}

func (s *SummaryCacheSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewRedisContainer(s.T())
	s.cache = New(&redis.Client{Client: s.container.Client}, time.Minute)
	s.now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *SummaryCacheSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Client.Close()
		_ = s.container.Container.Terminate(s.ctx)
	}
}

func (s *SummaryCacheSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(s.ctx))
}

func (s *SummaryCacheSuite) newRecord() *models.BenefitRecord {
	return models.NewBenefitRecord(id.BeneficiaryID(uuid.New()), true, s.now, s.now)
}

func (s *SummaryCacheSuite) TestGetMiss() {
	record, err := s.cache.Get(s.ctx, id.BeneficiaryID(uuid.New()))
	s.Require().NoError(err)
	s.Nil(record)
}

func (s *SummaryCacheSuite) TestSetAndGet() {
	record := s.newRecord()
	record.ApplySubmission(id.InstallmentFirst, &models.PaymentDetails{
		AccountNumber:     "1234567890",
		AccountHolderName: "Asha Devi",
		IFSCCode:          "SBIN0001234",
		BankName:          "State Bank",
		SubmittedDate:     s.now,
	}, s.now)
	s.Require().NoError(s.cache.Set(s.ctx, record))

	cached, err := s.cache.Get(s.ctx, record.BeneficiaryID)
	s.Require().NoError(err)
	s.Require().NotNil(cached)
	s.Equal(record.BeneficiaryID, cached.BeneficiaryID)
	s.Equal(models.StatusApplicationSubmitted, cached.Installment(id.InstallmentFirst).Status)
	s.Require().NotNil(cached.PaymentDetails)
	s.Equal("SBIN0001234", cached.PaymentDetails.IFSCCode)
}

func (s *SummaryCacheSuite) TestInvalidate() {
	record := s.newRecord()
	s.Require().NoError(s.cache.Set(s.ctx, record))
	s.Require().NoError(s.cache.Invalidate(s.ctx, record.BeneficiaryID))

	cached, err := s.cache.Get(s.ctx, record.BeneficiaryID)
	s.Require().NoError(err)
	s.Nil(cached)
}

func (s *SummaryCacheSuite) TestNilCacheIsNoOp() {
	var nilCache *SummaryCache

	cached, err := nilCache.Get(s.ctx, id.BeneficiaryID(uuid.New()))
	s.Require().NoError(err)
	s.Nil(cached)
	s.Require().NoError(nilCache.Set(s.ctx, s.newRecord()))
	s.Require().NoError(nilCache.Invalidate(s.ctx, id.BeneficiaryID(uuid.New())))
}
