// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strings"

// Role classifies a user's permission level.
// The zero value is RoleNone, the most restrictive role.
type Role int

// Known roles. Adding a role means extending ParseRole, String and CanManage.
const (
	RoleNone Role = iota
	RoleMember
	RoleBeheerder
	RoleDeveloper
)

// Role names as stored in the database and carried in session tokens.
const (
	RoleNameMember    = "member"
	RoleNameBeheerder = "beheerder"
	RoleNameDeveloper = "developer"
)

// ParseRole maps a role string to a Role. Unknown or empty strings yield RoleNone.
func ParseRole(s string) Role {
	switch strings.TrimSpace(s) {
	case RoleNameMember:
		return RoleMember
	case RoleNameBeheerder:
		return RoleBeheerder
	case RoleNameDeveloper:
		return RoleDeveloper
	default:
		return RoleNone
	}
}

// String returns the role name, or "" for RoleNone.
func (r Role) String() string {
	switch r {
	case RoleMember:
		return RoleNameMember
	case RoleBeheerder:
		return RoleNameBeheerder
	case RoleDeveloper:
		return RoleNameDeveloper
	case RoleNone:
		return ""
	default:
		return ""
	}
}

// CanManage reports whether the role may enter the beheer (admin) area.
func (r Role) CanManage() bool {
	switch r {
	case RoleBeheerder, RoleDeveloper:
		return true
	case RoleNone, RoleMember:
		return false
	default:
		return false
	}
}

// CanAssignRoles reports whether the role may change other users' roles.
func (r Role) CanAssignRoles() bool {
	switch r {
	case RoleDeveloper:
		return true
	case RoleNone, RoleMember, RoleBeheerder:
		return false
	default:
		return false
	}
}

// Valid reports whether r is an assignable role (not RoleNone).
func (r Role) Valid() bool {
	return r != RoleNone && r.String() != ""
}

// AssignableRoles lists roles that can be stored on a user record.
func AssignableRoles() []Role {
	return []Role{RoleMember, RoleBeheerder, RoleDeveloper}
}
