package domain

import (
	"encoding/json"
	"slices"
	"strings"
)

// Role is a coarse caller role.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// springRolePrefix is how role names appear in tokens minted by Spring Security.
const springRolePrefix = "ROLE_"

// ParseRole normalizes a role claim. Both "ADMIN" and "ROLE_ADMIN" are
// accepted, case-insensitively. Unknown roles report false.
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, springRolePrefix)
	switch r := Role(s); r {
	case RoleUser, RoleModerator, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// RoleSet is an immutable-by-convention set of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Intersects reports whether s and other share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for r := range small {
		if large.Has(r) {
			return true
		}
	}
	return false
}

// Strings returns the roles sorted, for stable messages and logs.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	slices.Sort(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// recommendRoles is the role set every recommendation operation accepts.
func recommendRoles() RoleSet { return NewRoleSet(RoleUser, RoleModerator, RoleAdmin) }

func adminRoles() RoleSet { return NewRoleSet(RoleAdmin) }

// Principal is the authenticated caller. It is built by the inbound
// authentication layer and never modified afterwards.
type Principal struct {
	// Subject identifies the caller in logs and audit records.
	Subject string
	Roles   RoleSet
}

// NewPrincipal creates a principal holding the given roles.
func NewPrincipal(subject string, roles ...Role) Principal {
	return Principal{Subject: subject, Roles: NewRoleSet(roles...)}
}
