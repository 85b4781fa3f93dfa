// Package service orchestrates the benefit installment lifecycle: record
// initialization, unlock checkpoints, applications, approvals, and payouts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	benstore "janani/internal/beneficiary/store"
	"janani/internal/benefit/cache"
	"janani/internal/benefit/eligibility"
	"janani/internal/benefit/metrics"
	"janani/internal/benefit/models"
	"janani/pkg/attrs"
	id "janani/pkg/domain"
	dErrors "janani/pkg/domain-errors"
	audit "janani/pkg/platform/audit"
	"janani/pkg/platform/sentinel"
	"janani/pkg/requestcontext"
)

// Store is the ledger persistence contract. UpdateInstallment is the atomic
// conditional transition; see the store package for the exact semantics.
type Store interface {
	Create(ctx context.Context, record *models.BenefitRecord) error
	Find(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.BenefitRecord, error)
	UpdateInstallment(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber,
		expect models.InstallmentStatus, mutate func(*models.BenefitRecord) error) (*models.BenefitRecord, error)
	ListPendingApplications(ctx context.Context) ([]*models.PendingApplication, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service owns every mutation of the benefit record. All writes go through
// the store's conditional transition so two callers racing on the same
// installment can never both win.
type Service struct {
	store          Store
	evaluator      *eligibility.Evaluator
	pregnancies    benstore.PregnancyStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	cache          *cache.SummaryCache
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithSummaryCache(c *cache.SummaryCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New constructs a Service.
func New(store Store, evaluator *eligibility.Evaluator, pregnancies benstore.PregnancyStore, opts ...Option) *Service {
	s := &Service{store: store, evaluator: evaluator, pregnancies: pregnancies}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeResult carries the record plus the idempotence verdict: a repeat
// call is a benign success, not an error.
type InitializeResult struct {
	Record             *models.BenefitRecord `json:"benefits"`
	AlreadyInitialized bool                  `json:"alreadyInitialized"`
	Message            string                `json:"message"`
}

// Initialize creates the benefit record with its three installments.
// Installment 1 starts eligible when the pregnancy registration fell within
// the scheme window; the dates come from the request when supplied, otherwise
// from the stored pregnancy record.
func (s *Service) Initialize(ctx context.Context, beneficiaryID id.BeneficiaryID, confirmationDate, lmp string) (*InitializeResult, error) {
	now := requestcontext.Now(ctx)

	_, err := s.pregnancies.Find(ctx, beneficiaryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "beneficiary not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load beneficiary")
	}

	var (
		confirmedOn = now
		eligible    bool
	)
	if confirmationDate != "" || lmp != "" {
		parsed, ok := eligibility.WithinRegistrationWindow(confirmationDate, lmp)
		eligible = ok
		if ok {
			confirmedOn = parsed
		}
	} else {
		parsed, ok, err := s.evaluator.Installment1(ctx, beneficiaryID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate registration window")
		}
		eligible = ok
		if ok {
			confirmedOn = parsed
		}
	}

	record := models.NewBenefitRecord(beneficiaryID, eligible, confirmedOn, now)
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			existing, findErr := s.store.Find(ctx, beneficiaryID)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to load existing benefit record")
			}
			return &InitializeResult{
				Record:             existing,
				AlreadyInitialized: true,
				Message:            "benefit record already exists for this beneficiary",
			}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create benefit record")
	}

	s.logAudit(ctx, string(audit.EventBenefitInitialized), beneficiaryID,
		"installment_1_eligible", eligible)
	if s.metrics != nil {
		s.metrics.RecordsInitialized.Inc()
	}
	s.invalidateSummary(ctx, beneficiaryID)

	return &InitializeResult{
		Record:  record,
		Message: "maternity benefit record created",
	}, nil
}

// UnlockResult reports whether the checkpoint actually unlocked anything.
// "Already unlocked" and "criteria not met" are informational no-ops.
type UnlockResult struct {
	Record   *models.BenefitRecord `json:"benefits"`
	Unlocked bool                  `json:"unlocked"`
	Message  string                `json:"message"`
}

// UnlockInstallment re-checks the external gate for installment 2 or 3 and
// moves it from locked to eligible when the gate is open. Invoked whenever a
// qualifying event occurs (new visit, recorded delivery), so repeat calls are
// the norm and never an error.
func (s *Service) UnlockInstallment(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber) (*UnlockResult, error) {
	if n == id.InstallmentFirst {
		return nil, dErrors.New(dErrors.CodeInvalidInstallment,
			"installment 1 eligibility is fixed at initialization and cannot be re-evaluated")
	}

	record, err := s.findRecord(ctx, beneficiaryID)
	if err != nil {
		return nil, err
	}
	if record.Installment(n).Status != models.StatusLocked {
		return &UnlockResult{Record: record,
			Message: fmt.Sprintf("installment %d is already unlocked", n)}, nil
	}

	open, err := s.gateOpen(ctx, beneficiaryID, n)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate eligibility signal")
	}
	if !open {
		return &UnlockResult{Record: record,
			Message: fmt.Sprintf("eligibility criteria for installment %d are not yet met", n)}, nil
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.UpdateInstallment(ctx, beneficiaryID, n, models.StatusLocked,
		func(r *models.BenefitRecord) error {
			if err := r.CanUnlock(n); err != nil {
				return err
			}
			r.ApplyUnlock(n, now)
			return nil
		})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Lost the race to another unlock of the same installment; that
			// is still the no-op success the caller expects.
			current, findErr := s.findRecord(ctx, beneficiaryID)
			if findErr != nil {
				return nil, findErr
			}
			return &UnlockResult{Record: current,
				Message: fmt.Sprintf("installment %d is already unlocked", n)}, nil
		}
		return nil, s.transitionError(err, "failed to unlock installment")
	}

	s.logAudit(ctx, string(audit.EventInstallmentUnlocked), beneficiaryID,
		"installment", int(n))
	if s.metrics != nil {
		s.metrics.InstallmentsUnlocked.WithLabelValues(strconv.Itoa(int(n))).Inc()
	}
	s.invalidateSummary(ctx, beneficiaryID)

	return &UnlockResult{Record: updated, Unlocked: true,
		Message: fmt.Sprintf("installment %d is now eligible", n)}, nil
}

// SubmissionResult is the application outcome returned to the beneficiary.
type SubmissionResult struct {
	Record  *models.BenefitRecord    `json:"benefits"`
	Status  models.InstallmentStatus `json:"status"`
	Message string                   `json:"message"`
}

// SubmitApplication records the beneficiary's application for one
// installment. Installment 1 must carry complete payout details, which are
// captured once on the record; installments 2 and 3 reuse them and any
// supplied details are ignored.
func (s *Service) SubmitApplication(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber, input *models.PaymentDetailsInput) (*SubmissionResult, error) {
	record, err := s.findRecord(ctx, beneficiaryID)
	if err != nil {
		return nil, err
	}
	if err := record.CanSubmitApplication(n); err != nil {
		return nil, err
	}

	var details *models.PaymentDetails
	if n == id.InstallmentFirst {
		if input == nil {
			input = &models.PaymentDetailsInput{}
		}
		input.Normalize()
		if err := input.Validate(); err != nil {
			return nil, err
		}
		details = input.ToPaymentDetails()
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.UpdateInstallment(ctx, beneficiaryID, n, models.StatusEligible,
		func(r *models.BenefitRecord) error {
			if err := r.CanSubmitApplication(n); err != nil {
				return err
			}
			r.ApplySubmission(n, details, now)
			return nil
		})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, s.staleGuardError(ctx, beneficiaryID, func(r *models.BenefitRecord) error {
				return r.CanSubmitApplication(n)
			})
		}
		return nil, s.transitionError(err, "failed to submit application")
	}

	s.logAudit(ctx, string(audit.EventApplicationSubmitted), beneficiaryID,
		"installment", int(n),
		"amount", n.Amount())
	if s.metrics != nil {
		s.metrics.ApplicationsSubmitted.Inc()
	}
	s.invalidateSummary(ctx, beneficiaryID)

	return &SubmissionResult{
		Record:  updated,
		Status:  models.StatusApplicationSubmitted,
		Message: fmt.Sprintf("application for installment %d submitted", n),
	}, nil
}

// ApprovalResult carries the idempotence verdict for repeat approvals.
type ApprovalResult struct {
	Record          *models.BenefitRecord `json:"benefits"`
	AlreadyApproved bool                  `json:"alreadyApproved"`
	Message         string                `json:"message"`
}

// Approve moves a submitted application to approved. Approving an installment
// that is already approved is a benign repeat, not an error.
func (s *Service) Approve(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber) (*ApprovalResult, error) {
	record, err := s.findRecord(ctx, beneficiaryID)
	if err != nil {
		return nil, err
	}
	if record.Installment(n).Status == models.StatusApproved {
		return &ApprovalResult{Record: record, AlreadyApproved: true,
			Message: fmt.Sprintf("installment %d application is already approved", n)}, nil
	}
	if err := record.CanApprove(n); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.UpdateInstallment(ctx, beneficiaryID, n, models.StatusApplicationSubmitted,
		func(r *models.BenefitRecord) error {
			if err := r.CanApprove(n); err != nil {
				return err
			}
			r.ApplyApproval(n, now)
			return nil
		})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// Two approvers raced: if the other one won, report the benign
			// already-approved outcome; otherwise surface the real guard.
			current, findErr := s.findRecord(ctx, beneficiaryID)
			if findErr != nil {
				return nil, findErr
			}
			if current.Installment(n).Status == models.StatusApproved {
				return &ApprovalResult{Record: current, AlreadyApproved: true,
					Message: fmt.Sprintf("installment %d application is already approved", n)}, nil
			}
			if guardErr := current.CanApprove(n); guardErr != nil {
				return nil, guardErr
			}
			return nil, dErrors.New(dErrors.CodeConflict, "installment changed concurrently, retry")
		}
		return nil, s.transitionError(err, "failed to approve application")
	}

	s.logAudit(ctx, string(audit.EventApplicationApproved), beneficiaryID,
		"installment", int(n),
		"amount", n.Amount())
	if s.metrics != nil {
		s.metrics.ApplicationsApproved.Inc()
	}
	s.invalidateSummary(ctx, beneficiaryID)

	return &ApprovalResult{Record: updated,
		Message: fmt.Sprintf("installment %d application approved", n)}, nil
}

// PaymentResult is the payout confirmation.
type PaymentResult struct {
	Record        *models.BenefitRecord `json:"benefits"`
	TransactionID string                `json:"transactionId"`
	Message       string                `json:"message"`
}

// MarkPaid finalizes the payout for an installment. Both entry points are
// accepted: approved (the formal application path) and eligible (a direct
// payout recorded without the application round-trip). When no transaction
// reference is supplied a timestamp-based one is generated.
func (s *Service) MarkPaid(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber, transactionRef string) (*PaymentResult, error) {
	record, err := s.findRecord(ctx, beneficiaryID)
	if err != nil {
		return nil, err
	}
	if err := record.CanMarkPaid(n); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if transactionRef == "" {
		transactionRef = fmt.Sprintf("TXN-%d", now.Unix())
	}

	expect := record.Installment(n).Status
	updated, err := s.store.UpdateInstallment(ctx, beneficiaryID, n, expect,
		func(r *models.BenefitRecord) error {
			if err := r.CanMarkPaid(n); err != nil {
				return err
			}
			r.ApplyPayment(n, transactionRef, now)
			return nil
		})
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, s.staleGuardError(ctx, beneficiaryID, func(r *models.BenefitRecord) error {
				return r.CanMarkPaid(n)
			})
		}
		return nil, s.transitionError(err, "failed to record payment")
	}

	s.logAudit(ctx, string(audit.EventInstallmentPaid), beneficiaryID,
		"installment", int(n),
		"amount", n.Amount(),
		"transaction_id", transactionRef)
	if s.metrics != nil {
		s.metrics.InstallmentsPaid.Inc()
		s.metrics.AmountPaidTotal.Add(float64(n.Amount()))
	}
	s.invalidateSummary(ctx, beneficiaryID)

	return &PaymentResult{
		Record:        updated,
		TransactionID: transactionRef,
		Message:       fmt.Sprintf("installment %d marked as paid", n),
	}, nil
}

// Summary returns the full benefit record, or an explicit hasBenefits=false
// marker when nothing was ever initialized. Read-through cached: misses load
// from the store and repopulate; cache trouble degrades to a store read.
func (s *Service) Summary(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.Summary, error) {
	if cached, err := s.cache.Get(ctx, beneficiaryID); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "summary cache read failed", "error", err)
		}
	} else if cached != nil {
		return &models.Summary{HasBenefits: true, Benefits: cached}, nil
	}

	record, err := s.store.Find(ctx, beneficiaryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.Summary{HasBenefits: false}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load benefit record")
	}

	if err := s.cache.Set(ctx, record); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "summary cache write failed", "error", err)
	}
	return &models.Summary{HasBenefits: true, Benefits: record}, nil
}

// PendingApplications is the approver's worklist: every submitted application
// across beneficiaries, joined with payout details and the beneficiary name.
func (s *Service) PendingApplications(ctx context.Context) ([]*models.PendingApplication, error) {
	pending, err := s.store.ListPendingApplications(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending applications")
	}
	for _, item := range pending {
		b, err := s.pregnancies.Find(ctx, item.BeneficiaryID)
		if err != nil {
			// A missing beneficiary record must not hide the application.
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load beneficiary")
		}
		item.BeneficiaryName = b.Name
	}
	return pending, nil
}

func (s *Service) findRecord(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.BenefitRecord, error) {
	record, err := s.store.Find(ctx, beneficiaryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no benefit record found for this beneficiary")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load benefit record")
	}
	return record, nil
}

// gateOpen answers the external eligibility signal for installment 2 or 3.
func (s *Service) gateOpen(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber) (bool, error) {
	if n == id.InstallmentSecond {
		return s.evaluator.Installment2(ctx, beneficiaryID)
	}
	return s.evaluator.Installment3(ctx, beneficiaryID)
}

// staleGuardError reloads the record after a lost conditional write and
// re-runs the guard so the caller sees the real domain error (already paid,
// invalid transition) instead of a bare conflict.
func (s *Service) staleGuardError(ctx context.Context, beneficiaryID id.BeneficiaryID, guard func(*models.BenefitRecord) error) error {
	current, err := s.findRecord(ctx, beneficiaryID)
	if err != nil {
		return err
	}
	if guardErr := guard(current); guardErr != nil {
		return guardErr
	}
	return dErrors.New(dErrors.CodeConflict, "installment changed concurrently, retry")
}

// transitionError keeps domain errors from the mutate callback typed and
// wraps everything else as internal.
func (s *Service) transitionError(err error, message string) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

func (s *Service) logAudit(ctx context.Context, event string, beneficiaryID id.BeneficiaryID, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "beneficiary_id", beneficiaryID.String(), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	entry := audit.Event{
		Timestamp:     requestcontext.Now(ctx),
		BeneficiaryID: beneficiaryID,
		Action:        event,
		Installment:   attrs.ExtractInt(attributes, "installment"),
		Amount:        attrs.ExtractInt(attributes, "amount"),
		TransactionID: attrs.ExtractString(attributes, "transaction_id"),
		RequestID:     requestcontext.RequestID(ctx),
		ActorRole:     string(requestcontext.Role(ctx)),
	}
	if actorID := requestcontext.ActorID(ctx); !actorID.IsNil() {
		entry.ActorID = actorID.String()
	}
	_ = s.auditPublisher.Emit(ctx, entry)
}

func (s *Service) invalidateSummary(ctx context.Context, beneficiaryID id.BeneficiaryID) {
	if err := s.cache.Invalidate(ctx, beneficiaryID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "summary cache invalidation failed", "error", err)
	}
}
