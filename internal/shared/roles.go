package shared

// Role names interpreted by handlers. The set is open: unknown roles are treated
// as viewer.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleViewer     = "viewer"
)

var roleRank = map[string]int{
	RoleViewer:     0,
	RoleManager:    1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// RoleAtLeast reports whether role carries at least the privileges of min.
func RoleAtLeast(role, min string) bool {
	return roleRank[role] >= roleRank[min]
}
