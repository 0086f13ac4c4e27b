// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/olegiv/vcms-go/internal/auth"
	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/store"
)

func TestListUsers(t *testing.T) {
	db, h := testSetup(t)
	dev := createTestUser(t, db, "dev@example.nl", model.RoleDeveloper)
	createTestUser(t, db, "anna@example.nl", model.RoleBeheerder)
	createTestUser(t, db, "piet@example.nl", model.RoleMember)

	req := asUser(newGetRequest(t, "/beheer/users?per_page=2", nil), dev)
	w := executeHandler(t, h.ListUsers, req)

	assertStatusCode(t, w, http.StatusOK)
	users, meta := unmarshalList[UserResponse](t, w)
	if len(users) != 2 {
		t.Errorf("len = %d, want 2", len(users))
	}
	if meta == nil || meta.Total != 3 || meta.Pages != 2 {
		t.Errorf("meta = %+v", meta)
	}
	if body := w.Body.String(); strings.Contains(body, "$argon2id$") || strings.Contains(body, "password_hash") {
		t.Error("password hashes must not be serialized")
	}
}

func TestCreateUser(t *testing.T) {
	db, h := testSetup(t)
	dev := createTestUser(t, db, "dev@example.nl", model.RoleDeveloper)
	beheerder := createTestUser(t, db, "anna@example.nl", model.RoleBeheerder)

	tests := []struct {
		name     string
		actor    store.User
		body     string
		wantCode int
	}{
		{"beheerder creates member", beheerder, `{"email":"new1@example.nl","name":"Nieuw","password":"long-enough-pw"}`, http.StatusCreated},
		{"beheerder cannot create beheerder", beheerder, `{"email":"new2@example.nl","name":"Nieuw","password":"long-enough-pw","role":"beheerder"}`, http.StatusForbidden},
		{"developer creates beheerder", dev, `{"email":"new3@example.nl","name":"Nieuw","password":"long-enough-pw","role":"beheerder"}`, http.StatusCreated},
		{"duplicate email", dev, `{"email":"ANNA@example.nl","name":"Dubbel","password":"long-enough-pw"}`, http.StatusUnprocessableEntity},
		{"short password", dev, `{"email":"new4@example.nl","name":"Kort","password":"short"}`, http.StatusUnprocessableEntity},
		{"unknown role", dev, `{"email":"new5@example.nl","name":"Raar","password":"long-enough-pw","role":"admin"}`, http.StatusUnprocessableEntity},
		{"invalid email", dev, `{"email":"not an email","name":"X","password":"long-enough-pw"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asUser(newJSONRequest(t, http.MethodPost, "/beheer/users", tt.body, nil), tt.actor)
			w := executeHandler(t, h.CreateUser, req)
			assertStatusCode(t, w, tt.wantCode)
		})
	}

	u, err := h.queries.GetUserByEmail(context.Background(), "new1@example.nl")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.Role != model.RoleNameMember {
		t.Errorf("default role = %q, want member", u.Role)
	}
	if ok, _ := auth.CheckPassword("long-enough-pw", u.PasswordHash); !ok {
		t.Error("stored password does not verify")
	}
}

func TestUpdateUser_RoleRules(t *testing.T) {
	db, h := testSetup(t)
	dev := createTestUser(t, db, "dev@example.nl", model.RoleDeveloper)
	beheerder := createTestUser(t, db, "anna@example.nl", model.RoleBeheerder)
	member := createTestUser(t, db, "piet@example.nl", model.RoleMember)

	update := func(actor store.User, id int64, body string) int {
		req := asUser(newJSONRequest(t, http.MethodPut, "/beheer/users/x", body, idParam(id)), actor)
		return executeHandler(t, h.UpdateUser, req).Code
	}

	if code := update(beheerder, member.ID, `{"role":"beheerder"}`); code != http.StatusForbidden {
		t.Errorf("beheerder promoting: %d, want 403", code)
	}
	if code := update(dev, dev.ID, `{"role":"member"}`); code != http.StatusForbidden {
		t.Errorf("self demotion: %d, want 403", code)
	}
	if code := update(beheerder, member.ID, `{"name":"Piet Jansen"}`); code != http.StatusOK {
		t.Errorf("beheerder renaming member: %d, want 200", code)
	}
	if code := update(beheerder, dev.ID, `{"name":"Hacked"}`); code != http.StatusForbidden {
		t.Errorf("beheerder editing developer: %d, want 403", code)
	}
	if code := update(beheerder, beheerder.ID, `{"name":"Anna de Vries"}`); code != http.StatusOK {
		t.Errorf("beheerder editing self: %d, want 200", code)
	}
	if code := update(dev, member.ID, `{"role":"beheerder"}`); code != http.StatusOK {
		t.Errorf("developer promoting: %d, want 200", code)
	}

	got, err := h.queries.GetUserByID(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != model.RoleNameBeheerder || got.Name != "Piet Jansen" {
		t.Errorf("member after updates = %+v", got)
	}
}

func TestUpdateUser_KeepsLastDeveloper(t *testing.T) {
	db, h := testSetup(t)
	dev := createTestUser(t, db, "dev@example.nl", model.RoleDeveloper)
	other := createTestUser(t, db, "dev2@example.nl", model.RoleDeveloper)

	// Two developers: demoting one is fine.
	req := asUser(newJSONRequest(t, http.MethodPut, "/beheer/users/x", `{"role":"beheerder"}`, idParam(other.ID)), dev)
	assertStatusCode(t, executeHandler(t, h.UpdateUser, req), http.StatusOK)

	// A developer session that outlived its role change still cannot demote
	// the only remaining developer.
	req = asUser(newJSONRequest(t, http.MethodPut, "/beheer/users/x", `{"role":"member"}`, idParam(dev.ID)), other)
	w := executeHandler(t, h.UpdateUser, req)
	assertStatusCode(t, w, http.StatusUnprocessableEntity)
	assertErrorResponse(t, w, "validation_error")
}

func TestUpdateUser_ChangesPassword(t *testing.T) {
	db, h := testSetup(t)
	dev := createTestUser(t, db, "dev@example.nl", model.RoleDeveloper)
	member := createTestUser(t, db, "piet@example.nl", model.RoleMember)

	req := asUser(newJSONRequest(t, http.MethodPut, "/beheer/users/x", `{"password":"a-brand-new-secret"}`, idParam(member.ID)), dev)
	assertStatusCode(t, executeHandler(t, h.UpdateUser, req), http.StatusOK)

	got, err := h.queries.GetUserByID(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if ok, _ := auth.CheckPassword("a-brand-new-secret", got.PasswordHash); !ok {
		t.Error("new password does not verify")
	}
}

func TestDeleteUser(t *testing.T) {
	db, h := testSetup(t)
	dev := createTestUser(t, db, "dev@example.nl", model.RoleDeveloper)
	beheerder := createTestUser(t, db, "anna@example.nl", model.RoleBeheerder)
	member := createTestUser(t, db, "piet@example.nl", model.RoleMember)

	del := func(actor store.User, id int64) int {
		req := asUser(newDeleteRequest(t, "/beheer/users/x", idParam(id)), actor)
		return executeHandler(t, h.DeleteUser, req).Code
	}

	if code := del(beheerder, beheerder.ID); code != http.StatusForbidden {
		t.Errorf("self delete: %d, want 403", code)
	}
	if code := del(beheerder, dev.ID); code != http.StatusForbidden {
		t.Errorf("beheerder deleting developer: %d, want 403", code)
	}
	if code := del(beheerder, member.ID); code != http.StatusNoContent {
		t.Errorf("beheerder deleting member: %d, want 204", code)
	}
	if code := del(dev, member.ID); code != http.StatusNotFound {
		t.Errorf("deleting twice: %d, want 404", code)
	}
	if code := del(dev, beheerder.ID); code != http.StatusNoContent {
		t.Errorf("developer deleting beheerder: %d, want 204", code)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db, h := testSetup(t)
	dev := createTestUser(t, db, "dev@example.nl", model.RoleDeveloper)

	req := asUser(newGetRequest(t, "/beheer/users/999", idParam(999)), dev)
	w := executeHandler(t, h.GetUser, req)
	assertStatusCode(t, w, http.StatusNotFound)

	req = asUser(newGetRequest(t, "/beheer/users/abc", map[string]string{"id": "abc"}), dev)
	w = executeHandler(t, h.GetUser, req)
	assertStatusCode(t, w, http.StatusBadRequest)
}
