package domain

import dErrors "janani/pkg/domain-errors"

// InstallmentNumber identifies one of the three fixed disbursements of the
// maternity benefit. The set is closed: a benefit record always holds exactly
// installments First, Second, and Third, and their amounts never change.
type InstallmentNumber int

const (
	InstallmentFirst  InstallmentNumber = 1
	InstallmentSecond InstallmentNumber = 2
	InstallmentThird  InstallmentNumber = 3
)

// InstallmentCount is the fixed number of installments per benefit record.
const InstallmentCount = 3

// installmentAmounts is the single source of truth for per-installment
// amounts (currency units). Total is always 5000.
var installmentAmounts = map[InstallmentNumber]int{
	InstallmentFirst:  1000,
	InstallmentSecond: 2000,
	InstallmentThird:  2000,
}

// ParseInstallmentNumber constructs an InstallmentNumber from external input.
//
// Errors: CodeInvalidInstallment for anything outside 1..3.
func ParseInstallmentNumber(n int) (InstallmentNumber, error) {
	num := InstallmentNumber(n)
	if !num.IsValid() {
		return 0, dErrors.Newf(dErrors.CodeInvalidInstallment, "installment number must be 1, 2 or 3, got %d", n)
	}
	return num, nil
}

// IsValid checks membership in the closed set {1, 2, 3}.
func (n InstallmentNumber) IsValid() bool {
	_, ok := installmentAmounts[n]
	return ok
}

// Amount returns the fixed disbursement amount for this installment.
func (n InstallmentNumber) Amount() int {
	return installmentAmounts[n]
}

// Index returns the zero-based position for array addressing.
func (n InstallmentNumber) Index() int { return int(n) - 1 }

// TotalBenefitAmount returns the sum of all installment amounts.
func TotalBenefitAmount() int {
	total := 0
	for _, amount := range installmentAmounts {
		total += amount
	}
	return total
}
