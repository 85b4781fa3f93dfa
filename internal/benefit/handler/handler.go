// Package handler wires the benefit lifecycle endpoints to the service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"janani/internal/benefit/models"
	"janani/internal/benefit/service"
	"janani/internal/platform/middleware"
	id "janani/pkg/domain"
	dErrors "janani/pkg/domain-errors"
	"janani/pkg/platform/httputil"
	"janani/pkg/requestcontext"
)

// Service defines the benefit lifecycle operations exposed over HTTP.
type Service interface {
	Initialize(ctx context.Context, beneficiaryID id.BeneficiaryID, confirmationDate, lmp string) (*service.InitializeResult, error)
	UnlockInstallment(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber) (*service.UnlockResult, error)
	SubmitApplication(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber, input *models.PaymentDetailsInput) (*service.SubmissionResult, error)
	Approve(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber) (*service.ApprovalResult, error)
	MarkPaid(ctx context.Context, beneficiaryID id.BeneficiaryID, n id.InstallmentNumber, transactionRef string) (*service.PaymentResult, error)
	Summary(ctx context.Context, beneficiaryID id.BeneficiaryID) (*models.Summary, error)
	PendingApplications(ctx context.Context) ([]*models.PendingApplication, error)
}

// Handler wires benefit endpoints to the benefit service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the benefit endpoints. RequireAuth must already be in the
// surrounding middleware chain; role checks are per route.
func (h *Handler) Register(r chi.Router) {
	staff := middleware.RequireRole(h.logger, id.RoleHealthWorker, id.RoleApprover, id.RoleAdmin)
	approvers := middleware.RequireRole(h.logger, id.RoleApprover, id.RoleAdmin)
	payers := middleware.RequireRole(h.logger, id.RoleHealthWorker, id.RoleAdmin)
	beneficiaries := middleware.RequireRole(h.logger, id.RoleBeneficiary)

	r.Route("/benefits/maternity", func(r chi.Router) {
		r.With(middleware.RequireRole(h.logger,
			id.RoleBeneficiary, id.RoleHealthWorker, id.RoleAdmin)).
			Post("/initialize", h.HandleInitialize)

		r.With(beneficiaries).Get("/summary", h.HandleOwnSummary)
		r.With(beneficiaries).Post("/apply/{installment}", h.HandleApply)

		r.With(staff).Get("/beneficiaries/{beneficiaryID}/summary", h.HandleSummary)
		r.With(approvers).Get("/pending-applications", h.HandlePendingApplications)
		r.With(approvers).Post("/approve", h.HandleApprove)
		r.With(payers).Post("/mark-paid", h.HandleMarkPaid)
		r.With(payers).Post("/beneficiaries/{beneficiaryID}/unlock/{installment}", h.HandleUnlock)
	})
}

// HandleInitialize handles POST /benefits/maternity/initialize.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[initializeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	beneficiaryID, err := h.targetBeneficiary(ctx, req.BeneficiaryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Initialize(ctx, beneficiaryID, req.ConfirmationDate, req.LMPDate)
	if err != nil {
		h.logError(ctx, "benefit initialization failed", beneficiaryID, err)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyInitialized {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, result)
}

// HandleOwnSummary handles GET /benefits/maternity/summary: the beneficiary
// reads her own record.
func (h *Handler) HandleOwnSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.writeSummary(w, r, selfBeneficiaryID(ctx))
}

// HandleSummary handles GET /benefits/maternity/beneficiaries/{beneficiaryID}/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	beneficiaryID, err := id.ParseBeneficiaryID(chi.URLParam(r, "beneficiaryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeSummary(w, r, beneficiaryID)
}

func (h *Handler) writeSummary(w http.ResponseWriter, r *http.Request, beneficiaryID id.BeneficiaryID) {
	ctx := r.Context()
	summary, err := h.service.Summary(ctx, beneficiaryID)
	if err != nil {
		h.logError(ctx, "summary lookup failed", beneficiaryID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleApply handles POST /benefits/maternity/apply/{installment}.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	n, err := parseInstallmentParam(chi.URLParam(r, "installment"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[applyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	beneficiaryID := selfBeneficiaryID(ctx)
	result, err := h.service.SubmitApplication(ctx, beneficiaryID, n, req.PaymentDetails)
	if err != nil {
		h.logError(ctx, "application submission failed", beneficiaryID, err,
			"installment", int(n))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandlePendingApplications handles GET /benefits/maternity/pending-applications.
func (h *Handler) HandlePendingApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pending, err := h.service.PendingApplications(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "pending applications lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"pendingApplications": pending,
		"count":               len(pending),
	})
}

// HandleApprove handles POST /benefits/maternity/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[approveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	beneficiaryID, n, err := req.Parsed()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Approve(ctx, beneficiaryID, n)
	if err != nil {
		h.logError(ctx, "approval failed", beneficiaryID, err, "installment", int(n))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleMarkPaid handles POST /benefits/maternity/mark-paid.
func (h *Handler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[markPaidRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	beneficiaryID, n, err := req.Parsed()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.MarkPaid(ctx, beneficiaryID, n, req.TransactionRef)
	if err != nil {
		h.logError(ctx, "payment recording failed", beneficiaryID, err, "installment", int(n))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleUnlock handles POST /benefits/maternity/beneficiaries/{beneficiaryID}/unlock/{installment}.
// Invoked by the visit and delivery subsystems whenever a qualifying event is
// recorded.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	beneficiaryID, err := id.ParseBeneficiaryID(chi.URLParam(r, "beneficiaryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	n, err := parseInstallmentParam(chi.URLParam(r, "installment"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.UnlockInstallment(ctx, beneficiaryID, n)
	if err != nil {
		h.logError(ctx, "unlock failed", beneficiaryID, err, "installment", int(n))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// targetBeneficiary resolves which record an operation addresses: staff may
// name any beneficiary, a beneficiary always acts on her own record.
func (h *Handler) targetBeneficiary(ctx context.Context, requested string) (id.BeneficiaryID, error) {
	if requestcontext.Role(ctx).IsStaff() {
		if requested != "" {
			return id.ParseBeneficiaryID(requested)
		}
		return id.BeneficiaryID{}, dErrors.New(dErrors.CodeValidation, "beneficiaryId is required for staff callers")
	}
	if requested != "" && requested != selfBeneficiaryID(ctx).String() {
		return id.BeneficiaryID{}, dErrors.New(dErrors.CodeForbidden, "beneficiaries may only initialize their own record")
	}
	return selfBeneficiaryID(ctx), nil
}

// selfBeneficiaryID maps the authenticated actor to her beneficiary identity.
// For beneficiary-role callers the identity layer issues tokens whose subject
// is the beneficiary ID.
func selfBeneficiaryID(ctx context.Context) id.BeneficiaryID {
	return id.BeneficiaryID(uuid.UUID(requestcontext.ActorID(ctx)))
}

func (h *Handler) logError(ctx context.Context, msg string, beneficiaryID id.BeneficiaryID, err error, extra ...any) {
	args := append([]any{
		"request_id", requestcontext.RequestID(ctx),
		"beneficiary_id", beneficiaryID.String(),
		"error", err,
	}, extra...)
	h.logger.ErrorContext(ctx, msg, args...)
}
