package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleFinance    = "finance"
	RoleSupport    = "support"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
