package models

import (
	"strings"
	"time"

	id "janani/pkg/domain"
	dErrors "janani/pkg/domain-errors"
)

// PaymentDetailsInput is the payout account as submitted with installment 1's
// application.
type PaymentDetailsInput struct {
	AccountNumber     string `json:"accountNumber"`
	AccountHolderName string `json:"accountHolderName"`
	IFSCCode          string `json:"ifscCode"`
	BankName          string `json:"bankName"`
}

// Normalize trims whitespace and uppercases the IFSC routing code.
func (p *PaymentDetailsInput) Normalize() {
	p.AccountNumber = strings.TrimSpace(p.AccountNumber)
	p.AccountHolderName = strings.TrimSpace(p.AccountHolderName)
	p.IFSCCode = strings.ToUpper(strings.TrimSpace(p.IFSCCode))
	p.BankName = strings.TrimSpace(p.BankName)
}

// Validate requires every field, naming all missing ones in a single error.
func (p *PaymentDetailsInput) Validate() error {
	var missing []string
	if p.AccountNumber == "" {
		missing = append(missing, "accountNumber")
	}
	if p.AccountHolderName == "" {
		missing = append(missing, "accountHolderName")
	}
	if p.IFSCCode == "" {
		missing = append(missing, "ifscCode")
	}
	if p.BankName == "" {
		missing = append(missing, "bankName")
	}
	if len(missing) > 0 {
		return dErrors.Newf(dErrors.CodeValidation,
			"payment details missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ToPaymentDetails converts validated input to the stored form.
func (p *PaymentDetailsInput) ToPaymentDetails() *PaymentDetails {
	return &PaymentDetails{
		AccountNumber:     p.AccountNumber,
		AccountHolderName: p.AccountHolderName,
		IFSCCode:          p.IFSCCode,
		BankName:          p.BankName,
	}
}

// PendingApplication is the cross-beneficiary payout-processing view: one
// submitted application joined with its record's payout account.
type PendingApplication struct {
	BeneficiaryID     id.BeneficiaryID     `json:"beneficiaryId"`
	BeneficiaryName   string               `json:"beneficiaryName,omitempty"`
	InstallmentNumber id.InstallmentNumber `json:"installmentNumber"`
	Amount            int                  `json:"amount"`
	SubmittedDate     time.Time            `json:"submittedDate"`
	PaymentDetails    *PaymentDetails      `json:"paymentDetails"`
}

// Summary is what the projector returns: either the full record or an
// explicit "nothing initialized" marker.
type Summary struct {
	HasBenefits bool           `json:"hasBenefits"`
	Benefits    *BenefitRecord `json:"benefits,omitempty"`
}
