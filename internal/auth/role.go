package auth

import (
	"strings"
)

// Role is a rung on the permission ladder.
type Role string

const (
	RoleOperator Role = "operator"
	RoleEngineer Role = "engineer"
	RoleManager  Role = "manager"
	RoleOwner    Role = "owner"
)

// Roles lists every role, lowest first. The index is the role's position.
var Roles = []Role{RoleOperator, RoleEngineer, RoleManager, RoleOwner}

// roleAliases maps the short codes older clients send.
var roleAliases = map[string]Role{
	"LO": RoleOperator,
	"LE": RoleEngineer,
	"LM": RoleManager,
	"OW": RoleOwner,
}

// Position returns the role's index on the ladder, or -1 if unknown.
func (r Role) Position() int {
	for i, known := range Roles {
		if r == known {
			return i
		}
	}
	return -1
}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	return r.Position() >= 0
}

// RoleAtLeast reports whether actual sits at or above required.
// An unknown role on either side never satisfies the check.
func RoleAtLeast(actual, required Role) bool {
	a, req := actual.Position(), required.Position()
	if a < 0 || req < 0 {
		return false
	}
	return a >= req
}

// RoleOneOf reports whether actual is exactly one of set.
func RoleOneOf(actual Role, set ...Role) bool {
	for _, r := range set {
		if actual == r {
			return true
		}
	}
	return false
}

// ParseRole accepts wire names (any case) and the LO/LE/LM/OW codes.
func ParseRole(s string) (Role, error) {
	trimmed := strings.TrimSpace(s)
	if r, ok := roleAliases[strings.ToUpper(trimmed)]; ok {
		return r, nil
	}
	r := Role(strings.ToLower(trimmed))
	if !r.Valid() {
		return "", invalidInput("unknown role %q", s)
	}
	return r, nil
}
