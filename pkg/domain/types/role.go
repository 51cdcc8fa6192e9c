package types

// Role is a user's authority level
type Role string

const (
	// RoleAdmin is a platform administrator. Barred from tenant-scoped action endpoints.
	RoleAdmin        Role = "admin"
	RoleCompanyAdmin Role = "companyAdmin"
	RoleMember       Role = "member"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleCompanyAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// IsTenantRole reports whether the role may call tenant-layer operations
func (r Role) IsTenantRole() bool {
	return r == RoleCompanyAdmin || r == RoleMember
}

func (r Role) String() string {
	return string(r)
}
