package identity

import "strings"

// Role is the access tier of an Identity. The set is closed: anything the
// token carries that is not one of the known tags decodes to RoleUnknown.
type Role int

const (
	RoleUnknown Role = iota
	RoleEmployee
	RoleSupervisor
	RoleAdmin
)

// String returns the tag used by the backend for r.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleSupervisor:
		return "Supervisor"
	case RoleEmployee:
		return "Employee"
	default:
		return "Unknown"
	}
}

// Code is the numeric value the backend expects in user write payloads.
// RoleUnknown maps to the regular tier.
func (r Role) Code() int {
	switch r {
	case RoleAdmin:
		return 0
	case RoleSupervisor:
		return 1
	default:
		return 2
	}
}

// IsKnown reports whether r is one of the backend's tags.
func (r Role) IsKnown() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleEmployee:
		return true
	default:
		return false
	}
}

// ParseRole maps a role tag to a Role, ignoring case and surrounding space.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "supervisor":
		return RoleSupervisor
	case "employee":
		return RoleEmployee
	default:
		return RoleUnknown
	}
}

// RoleFromCode is the inverse of Role.Code.
func RoleFromCode(code int) (Role, bool) {
	switch code {
	case 0:
		return RoleAdmin, true
	case 1:
		return RoleSupervisor, true
	case 2:
		return RoleEmployee, true
	default:
		return RoleUnknown, false
	}
}
