// Package domain holds small domain value types shared across features.
// Typed IDs prevent cross-type assignment at compile time; parse constructors
// enforce validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "janani/pkg/domain-errors"
)

// BeneficiaryID identifies a program participant (pregnant or postpartum
// beneficiary). Owned by the identity subsystem; read-only here.
type BeneficiaryID uuid.UUID

// ActorID identifies the authenticated caller acting on a record. It may be
// the beneficiary herself or a staff user (health worker, approver, admin).
type ActorID uuid.UUID

// ParseBeneficiaryID constructs a BeneficiaryID from external input.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil
// UUID; no other errors are expected.
func ParseBeneficiaryID(s string) (BeneficiaryID, error) {
	u, err := parseUUID(s, "beneficiary id")
	return BeneficiaryID(u), err
}

// ParseActorID constructs an ActorID from external input.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor id")
	return ActorID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", label)
	}
	return u, nil
}

func (id BeneficiaryID) String() string { return uuid.UUID(id).String() }

// MarshalText serializes the ID as its canonical UUID string. Named UUID
// types do not inherit uuid.UUID's method set, so both directions are spelled
// out here to keep JSON payloads and cache entries readable.
func (id BeneficiaryID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *BeneficiaryID) UnmarshalText(text []byte) error {
	u, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = BeneficiaryID(u)
	return nil
}

// IsNil reports whether the ID is the zero UUID.
func (id BeneficiaryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ActorID) String() string { return uuid.UUID(id).String() }

func (id ActorID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ActorID) UnmarshalText(text []byte) error {
	u, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = ActorID(u)
	return nil
}

// IsNil reports whether the ID is the zero UUID.
func (id ActorID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
