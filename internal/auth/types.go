package auth

import "errors"

// Role is an authorisation tier.
type Role string

const (
	// RoleViewer may read lock state.
	RoleViewer Role = "viewer"

	// RoleOperator may also send lock commands.
	RoleOperator Role = "operator"

	// RoleAdmin may also read the audit log.
	RoleAdmin Role = "admin"
)

// ValidRoles lists the roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole reports whether r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Auth errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrForbidden    = errors.New("insufficient permissions")
	ErrInvalidRole  = errors.New("invalid role")
)
