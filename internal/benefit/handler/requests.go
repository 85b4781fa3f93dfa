package handler

import (
	"strconv"

	"janani/internal/benefit/models"
	id "janani/pkg/domain"
	dErrors "janani/pkg/domain-errors"
)

// initializeRequest creates the benefit record. BeneficiaryID is only honored
// for staff callers; beneficiaries always initialize their own record. The
// dates are optional: when absent the stored pregnancy record is consulted.
type initializeRequest struct {
	BeneficiaryID    string `json:"beneficiaryId,omitempty"`
	ConfirmationDate string `json:"confirmationDate,omitempty"`
	LMPDate          string `json:"lmpDate,omitempty"`
}

type applyRequest struct {
	PaymentDetails *models.PaymentDetailsInput `json:"paymentDetails,omitempty"`
}

type approveRequest struct {
	BeneficiaryID     string `json:"beneficiaryId"`
	InstallmentNumber int    `json:"installmentNumber"`
}

func (r *approveRequest) Parsed() (id.BeneficiaryID, id.InstallmentNumber, error) {
	return parseTarget(r.BeneficiaryID, r.InstallmentNumber)
}

type markPaidRequest struct {
	BeneficiaryID     string `json:"beneficiaryId"`
	InstallmentNumber int    `json:"installmentNumber"`
	TransactionRef    string `json:"transactionRef,omitempty"`
}

func (r *markPaidRequest) Parsed() (id.BeneficiaryID, id.InstallmentNumber, error) {
	return parseTarget(r.BeneficiaryID, r.InstallmentNumber)
}

func parseTarget(beneficiaryID string, installment int) (id.BeneficiaryID, id.InstallmentNumber, error) {
	bid, err := id.ParseBeneficiaryID(beneficiaryID)
	if err != nil {
		return id.BeneficiaryID{}, 0, err
	}
	n, err := id.ParseInstallmentNumber(installment)
	if err != nil {
		return id.BeneficiaryID{}, 0, err
	}
	return bid, n, nil
}

// parseInstallmentParam parses the {installment} URL segment.
func parseInstallmentParam(raw string) (id.InstallmentNumber, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeInvalidInstallment, "installment number must be 1, 2 or 3, got %q", raw)
	}
	return id.ParseInstallmentNumber(v)
}
