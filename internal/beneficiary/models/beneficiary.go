// Package models describes the read-only view of a beneficiary that the
// benefit core consumes. The case-management platform owns these records;
// nothing here mutates them.
package models

import (
	"time"

	id "janani/pkg/domain"
)

// DeliveryStatus is the recorded pregnancy outcome signal.
type DeliveryStatus string

const (
	DeliveryStatusPregnant  DeliveryStatus = "pregnant"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

// Delivered reports whether a birth has been recorded.
func (s DeliveryStatus) Delivered() bool { return s == DeliveryStatusDelivered }

// Pregnancy carries the externally-sourced dates used by the eligibility
// window check. Dates are YYYY-MM-DD strings as recorded upstream; the
// evaluator parses them fail-closed.
type Pregnancy struct {
	LMP              string
	ConfirmationDate string
}

// Beneficiary is the read-only projection of a program participant.
type Beneficiary struct {
	ID             id.BeneficiaryID
	Name           string
	Pregnancy      Pregnancy
	DeliveryStatus DeliveryStatus
	RegisteredAt   time.Time
}
