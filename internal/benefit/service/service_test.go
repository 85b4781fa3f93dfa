package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	benmodels "janani/internal/beneficiary/models"
	benstore "janani/internal/beneficiary/store"
	"janani/internal/benefit/eligibility"
	"janani/internal/benefit/models"
	"janani/internal/benefit/store"
	id "janani/pkg/domain"
	dErrors "janani/pkg/domain-errors"
	audit "janani/pkg/platform/audit"
	auditmemory "janani/pkg/platform/audit/store/memory"
	"janani/pkg/requestcontext"
)

var frozenNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service       *Service
	ledger        *store.InMemoryStore
	beneficiaries *benstore.InMemoryStore
	auditStore    *auditmemory.InMemoryStore
	ctx           context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger := store.NewInMemoryStore()
	beneficiaries := benstore.NewInMemoryStore()
	auditStore := auditmemory.NewInMemoryStore()
	evaluator := eligibility.NewEvaluator(beneficiaries, beneficiaries)

	svc := New(ledger, evaluator, beneficiaries,
		WithAuditPublisher(audit.NewPublisher(auditStore)),
	)

	return &fixture{
		service:       svc,
		ledger:        ledger,
		beneficiaries: beneficiaries,
		auditStore:    auditStore,
		ctx:           requestcontext.WithTime(context.Background(), frozenNow),
	}
}

func (f *fixture) registerBeneficiary(confirmationDate, lmp string) id.BeneficiaryID {
	beneficiaryID := id.BeneficiaryID(uuid.New())
	f.beneficiaries.Put(&benmodels.Beneficiary{
		ID:   beneficiaryID,
		Name: "Asha Devi",
		Pregnancy: benmodels.Pregnancy{
			LMP:              lmp,
			ConfirmationDate: confirmationDate,
		},
		DeliveryStatus: benmodels.DeliveryStatusPregnant,
		RegisteredAt:   frozenNow,
	})
	return beneficiaryID
}

func (f *fixture) initialized(t *testing.T) id.BeneficiaryID {
	t.Helper()
	beneficiaryID := f.registerBeneficiary("2024-01-20", "2024-01-01")
	_, err := f.service.Initialize(f.ctx, beneficiaryID, "", "")
	require.NoError(t, err)
	return beneficiaryID
}

func validInput() *models.PaymentDetailsInput {
	return &models.PaymentDetailsInput{
		AccountNumber:     "1234567890",
		AccountHolderName: "Asha Devi",
		IFSCCode:          "abcd0123456",
		BankName:          "State Bank",
	}
}

func TestInitialize(t *testing.T) {
	t.Run("registration within window starts installment 1 eligible", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.registerBeneficiary("", "")

		result, err := f.service.Initialize(f.ctx, beneficiaryID, "2024-01-20", "2024-01-01")
		require.NoError(t, err)
		assert.False(t, result.AlreadyInitialized)
		assert.Equal(t, models.StatusEligible, result.Record.Installment(id.InstallmentFirst).Status)
		assert.Equal(t, 1000, result.Record.TotalEligible)
	})

	t.Run("registration outside window starts fully locked", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.registerBeneficiary("", "")

		result, err := f.service.Initialize(f.ctx, beneficiaryID, "2024-06-01", "2024-01-01")
		require.NoError(t, err)
		assert.Equal(t, models.StatusLocked, result.Record.Installment(id.InstallmentFirst).Status)
		assert.Equal(t, 0, result.Record.TotalEligible)
	})

	t.Run("falls back to the stored pregnancy record when no dates supplied", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.registerBeneficiary("2024-01-20", "2024-01-01")

		result, err := f.service.Initialize(f.ctx, beneficiaryID, "", "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusEligible, result.Record.Installment(id.InstallmentFirst).Status)
	})

	t.Run("unknown beneficiary fails with not_found", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Initialize(f.ctx, id.BeneficiaryID(uuid.New()), "", "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("second call is a benign repeat returning the unchanged record", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.registerBeneficiary("2024-01-20", "2024-01-01")

		first, err := f.service.Initialize(f.ctx, beneficiaryID, "", "")
		require.NoError(t, err)

		second, err := f.service.Initialize(f.ctx, beneficiaryID, "", "")
		require.NoError(t, err)
		assert.True(t, second.AlreadyInitialized)
		assert.NotEmpty(t, second.Message)
		assert.Equal(t, first.Record.Installments, second.Record.Installments)
		assert.Equal(t, first.Record.CreatedAt, second.Record.CreatedAt)
	})

	t.Run("emits an audit event", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.registerBeneficiary("2024-01-20", "2024-01-01")

		_, err := f.service.Initialize(f.ctx, beneficiaryID, "", "")
		require.NoError(t, err)

		events, err := f.auditStore.ListByBeneficiary(f.ctx, beneficiaryID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, string(audit.EventBenefitInitialized), events[0].Action)
	})
}

func TestUnlockInstallment(t *testing.T) {
	t.Run("unlocks installment 2 exactly once after a visit", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		// No visit yet: the gate stays shut, informationally.
		result, err := f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentSecond)
		require.NoError(t, err)
		assert.False(t, result.Unlocked)
		assert.Equal(t, models.StatusLocked, result.Record.Installment(id.InstallmentSecond).Status)

		f.beneficiaries.RecordVisit(beneficiaryID)

		result, err = f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentSecond)
		require.NoError(t, err)
		assert.True(t, result.Unlocked)
		assert.Equal(t, models.StatusEligible, result.Record.Installment(id.InstallmentSecond).Status)
		assert.Equal(t, 3000, result.Record.TotalEligible)

		// Second qualifying event: a no-op, not an error.
		result, err = f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentSecond)
		require.NoError(t, err)
		assert.False(t, result.Unlocked)
		assert.Equal(t, 3000, result.Record.TotalEligible)
	})

	t.Run("unlocks installment 3 after a recorded delivery", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		result, err := f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentThird)
		require.NoError(t, err)
		assert.False(t, result.Unlocked)

		f.beneficiaries.RecordDelivery(beneficiaryID)

		result, err = f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentThird)
		require.NoError(t, err)
		assert.True(t, result.Unlocked)
		assert.Equal(t, models.StatusEligible, result.Record.Installment(id.InstallmentThird).Status)
	})

	t.Run("installment 1 cannot be re-evaluated", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		_, err := f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentFirst)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInstallment))
	})

	t.Run("no record fails with not_found", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.registerBeneficiary("2024-01-20", "2024-01-01")

		_, err := f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentSecond)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestSubmitApplication(t *testing.T) {
	t.Run("installment 1 submission uppercases the IFSC and stores details", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		result, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentFirst, validInput())
		require.NoError(t, err)
		assert.Equal(t, models.StatusApplicationSubmitted, result.Status)
		require.NotNil(t, result.Record.PaymentDetails)
		assert.Equal(t, "ABCD0123456", result.Record.PaymentDetails.IFSCCode)
	})

	t.Run("missing fields are all named in one validation error", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		_, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentFirst,
			&models.PaymentDetailsInput{AccountNumber: "123"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "ifscCode")
		assert.Contains(t, err.Error(), "bankName")
	})

	t.Run("nil details for installment 1 name all four fields", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		_, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentFirst, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "accountNumber")
	})

	t.Run("installment 2 without stored details fails even though installment 1 is unpaid", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)
		f.beneficiaries.RecordVisit(beneficiaryID)
		_, err := f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentSecond)
		require.NoError(t, err)

		_, err = f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentSecond, validInput())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingPaymentDetails))
	})

	t.Run("installment 2 reuses stored details and ignores supplied ones", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)
		_, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentFirst, validInput())
		require.NoError(t, err)
		f.beneficiaries.RecordVisit(beneficiaryID)
		_, err = f.service.UnlockInstallment(f.ctx, beneficiaryID, id.InstallmentSecond)
		require.NoError(t, err)

		other := validInput()
		other.AccountNumber = "9999999999"
		result, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentSecond, other)
		require.NoError(t, err)
		assert.Equal(t, "1234567890", result.Record.PaymentDetails.AccountNumber)
	})

	t.Run("locked installment fails with invalid_transition", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		_, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentSecond, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func TestApprove(t *testing.T) {
	t.Run("approval requires a submitted application", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		// Still eligible, nothing submitted.
		_, err := f.service.Approve(f.ctx, beneficiaryID, id.InstallmentFirst)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		_, err = f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentFirst, validInput())
		require.NoError(t, err)

		result, err := f.service.Approve(f.ctx, beneficiaryID, id.InstallmentFirst)
		require.NoError(t, err)
		assert.False(t, result.AlreadyApproved)
		inst := result.Record.Installment(id.InstallmentFirst)
		assert.Equal(t, models.StatusApproved, inst.Status)
		assert.Equal(t, models.ApplicationApproved, inst.Application.Status)
	})

	t.Run("repeat approval is a benign success", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)
		_, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentFirst, validInput())
		require.NoError(t, err)
		_, err = f.service.Approve(f.ctx, beneficiaryID, id.InstallmentFirst)
		require.NoError(t, err)

		result, err := f.service.Approve(f.ctx, beneficiaryID, id.InstallmentFirst)
		require.NoError(t, err)
		assert.True(t, result.AlreadyApproved)
		assert.NotEmpty(t, result.Message)
	})
}

func TestMarkPaid(t *testing.T) {
	t.Run("pays an approved installment with the given reference", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)
		_, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentFirst, validInput())
		require.NoError(t, err)
		_, err = f.service.Approve(f.ctx, beneficiaryID, id.InstallmentFirst)
		require.NoError(t, err)

		result, err := f.service.MarkPaid(f.ctx, beneficiaryID, id.InstallmentFirst, "NEFT-42")
		require.NoError(t, err)
		assert.Equal(t, "NEFT-42", result.TransactionID)
		assert.Equal(t, 1000, result.Record.TotalPaid)
	})

	t.Run("pays an eligible installment directly (fast-track)", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		result, err := f.service.MarkPaid(f.ctx, beneficiaryID, id.InstallmentFirst, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, result.Record.Installment(id.InstallmentFirst).Status)
	})

	t.Run("generates a timestamp reference when none given", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		result, err := f.service.MarkPaid(f.ctx, beneficiaryID, id.InstallmentFirst, "")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("TXN-%d", frozenNow.Unix()), result.TransactionID)
	})

	t.Run("locked installment fails with not_eligible", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		_, err := f.service.MarkPaid(f.ctx, beneficiaryID, id.InstallmentSecond, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotEligible))
	})

	t.Run("second payout fails with already_paid and totals stay put", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)
		_, err := f.service.MarkPaid(f.ctx, beneficiaryID, id.InstallmentFirst, "")
		require.NoError(t, err)

		_, err = f.service.MarkPaid(f.ctx, beneficiaryID, id.InstallmentFirst, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyPaid))

		record, findErr := f.ledger.Find(f.ctx, beneficiaryID)
		require.NoError(t, findErr)
		assert.Equal(t, 1000, record.TotalPaid)
	})

	t.Run("emits an audit event with amount and reference", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)
		_, err := f.service.MarkPaid(f.ctx, beneficiaryID, id.InstallmentFirst, "NEFT-7")
		require.NoError(t, err)

		events, err := f.auditStore.ListByBeneficiary(f.ctx, beneficiaryID)
		require.NoError(t, err)
		last := events[len(events)-1]
		assert.Equal(t, string(audit.EventInstallmentPaid), last.Action)
		assert.Equal(t, 1, last.Installment)
		assert.Equal(t, 1000, last.Amount)
		assert.Equal(t, "NEFT-7", last.TransactionID)
	})
}

func TestSummary(t *testing.T) {
	t.Run("uninitialized beneficiary has no benefits", func(t *testing.T) {
		f := newFixture(t)

		summary, err := f.service.Summary(f.ctx, id.BeneficiaryID(uuid.New()))
		require.NoError(t, err)
		assert.False(t, summary.HasBenefits)
		assert.Nil(t, summary.Benefits)
	})

	t.Run("initialized beneficiary gets the full record", func(t *testing.T) {
		f := newFixture(t)
		beneficiaryID := f.initialized(t)

		summary, err := f.service.Summary(f.ctx, beneficiaryID)
		require.NoError(t, err)
		assert.True(t, summary.HasBenefits)
		require.NotNil(t, summary.Benefits)
		assert.Equal(t, 5000, summary.Benefits.TotalAmount)
	})
}

func TestPendingApplications(t *testing.T) {
	f := newFixture(t)
	beneficiaryID := f.initialized(t)
	_, err := f.service.SubmitApplication(f.ctx, beneficiaryID, id.InstallmentFirst, validInput())
	require.NoError(t, err)

	// A second beneficiary with nothing submitted stays off the worklist.
	f.initialized(t)

	pending, err := f.service.PendingApplications(f.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, beneficiaryID, pending[0].BeneficiaryID)
	assert.Equal(t, "Asha Devi", pending[0].BeneficiaryName)
	require.NotNil(t, pending[0].PaymentDetails)
	assert.Equal(t, "ABCD0123456", pending[0].PaymentDetails.IFSCCode)
}
