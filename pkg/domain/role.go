package domain

import dErrors "janani/pkg/domain-errors"

// Role classifies the authenticated caller. Roles are asserted by the
// identity layer and carried in the access token; this core trusts the claim
// and only checks membership.
type Role string

const (
	RoleBeneficiary  Role = "beneficiary"
	RoleHealthWorker Role = "health_worker"
	RoleApprover     Role = "approver"
	RoleAdmin        Role = "admin"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleBeneficiary:  true,
	RoleHealthWorker: true,
	RoleApprover:     true,
	RoleAdmin:        true,
}

// ParseRole constructs a Role from external input.
//
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported role %q", s)
	}
	return r, nil
}

// IsValid checks if the role is one of the supported values.
func (r Role) IsValid() bool { return validRoles[r] }

// IsStaff reports whether the role belongs to platform staff rather than a
// program participant.
func (r Role) IsStaff() bool {
	return r == RoleHealthWorker || r == RoleApprover || r == RoleAdmin
}

func (r Role) String() string { return string(r) }
