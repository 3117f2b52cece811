package domain

import (
	"fmt"
	"slices"
)

// Role is a closed set of account roles. Wire values match the client.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRoles returns every known role.
func ValidRoles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(ValidRoles(), r)
}

// ParseRoles converts raw strings to roles, rejecting unknown values and an
// empty set. Duplicates are collapsed, order of first appearance is kept.
func ParseRoles(raw []string) ([]Role, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	roles := make([]Role, 0, len(raw))
	for _, s := range raw {
		r := Role(s)
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q", s)
		}
		if !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// RoleStrings converts roles to their wire values.
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
