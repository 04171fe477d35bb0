package auth

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermStateRead   Permission = "lock:read"
	PermLockOperate Permission = "lock:operate"
	PermAuditRead   Permission = "audit:read"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermStateRead,
	},
	RoleOperator: {
		PermStateRead,
		PermLockOperate,
	},
	RoleAdmin: {
		PermStateRead,
		PermLockOperate,
		PermAuditRead,
	},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
