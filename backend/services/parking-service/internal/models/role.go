package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of caller roles.
type Role string

const (
	RoleDriver     Role = "driver"
	RoleGuard      Role = "guard"
	RoleSuperAdmin Role = "superadmin"
)

// ParseRole maps a claim value to a Role. "user" is accepted as driver.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "driver", "user":
		return RoleDriver, nil
	case "guard":
		return RoleGuard, nil
	case "superadmin":
		return RoleSuperAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// CanOperateGate reports whether the role may record entries and exits.
func (r Role) CanOperateGate() bool {
	switch r {
	case RoleGuard, RoleSuperAdmin:
		return true
	case RoleDriver:
		return false
	}
	return false
}

// CanManageLots reports whether the role may create, edit and delete lots.
func (r Role) CanManageLots() bool {
	return r == RoleSuperAdmin
}
