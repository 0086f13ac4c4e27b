// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"member", RoleMember},
		{"beheerder", RoleBeheerder},
		{"developer", RoleDeveloper},
		{" developer ", RoleDeveloper},
		{"Beheerder", RoleNone},
		{"admin", RoleNone},
		{"", RoleNone},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseRole(tt.in); got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoleCanManage(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleNone, false},
		{RoleMember, false},
		{RoleBeheerder, true},
		{RoleDeveloper, true},
		{Role(42), false},
	}

	for _, tt := range tests {
		if got := tt.role.CanManage(); got != tt.want {
			t.Errorf("Role(%d).CanManage() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestRoleStringRoundTrip(t *testing.T) {
	for _, r := range AssignableRoles() {
		if got := ParseRole(r.String()); got != r {
			t.Errorf("ParseRole(%q) = %v, want %v", r.String(), got, r)
		}
		if !r.Valid() {
			t.Errorf("%v should be valid", r)
		}
	}
	if RoleNone.Valid() {
		t.Error("RoleNone should not be valid")
	}
}

func TestRoleCanAssignRoles(t *testing.T) {
	if !RoleDeveloper.CanAssignRoles() {
		t.Error("developer should assign roles")
	}
	if RoleBeheerder.CanAssignRoles() {
		t.Error("beheerder should not assign roles")
	}
}
