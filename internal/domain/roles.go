package domain

const (
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Role codes are seeded by migrations and never renumbered.
// Admin is always code 1.
const (
	RoleIDAdmin  int64 = 1
	RoleIDOwner  int64 = 2
	RoleIDMember int64 = 3
)

type Role struct {
	ID   int64
	Name string
}

// SeededRoles is the closed role set, in code order.
func SeededRoles() []Role {
	return []Role{
		{ID: RoleIDAdmin, Name: RoleAdmin},
		{ID: RoleIDOwner, Name: RoleOwner},
		{ID: RoleIDMember, Name: RoleMember},
	}
}

func IsValidRole(r string) bool {
	_, ok := RoleIDByName(r)
	return ok
}

func RoleIDByName(name string) (int64, bool) {
	switch name {
	case RoleAdmin:
		return RoleIDAdmin, true
	case RoleOwner:
		return RoleIDOwner, true
	case RoleMember:
		return RoleIDMember, true
	default:
		return 0, false
	}
}
