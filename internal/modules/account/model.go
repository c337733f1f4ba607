// README: User collaborator view: identity, role, verification, balance and charter origin.
package account

import "charterhub/internal/types"

type Role string

const (
	RoleUser    Role = "user"
	RoleCharter Role = "charter"
	RoleAdmin   Role = "admin"
)

type Verification string

const (
	VerificationPending  Verification = "pending"
	VerificationVerified Verification = "verified"
	VerificationRejected Verification = "rejected"
)

type User struct {
	ID            types.ID        `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone,omitempty"`
	Role          Role            `json:"role"`
	Verification  Verification    `json:"verification_status"`
	Credits       types.Credits   `json:"credits"`
	OriginAddress string          `json:"origin_address,omitempty"`
	Origin        *types.Point    `json:"origin,omitempty"`
	Lifecycle     types.Lifecycle `json:"-"`
}

func (u *User) IsCharter() bool { return u.Role == RoleCharter }

func (u *User) IsVerified() bool { return u.Verification == VerificationVerified }
