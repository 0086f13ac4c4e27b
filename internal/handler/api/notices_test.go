// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/olegiv/vcms-go/internal/model"
)

func createTestNotice(t *testing.T, h *Handler, title string) NoticeResponse {
	t.Helper()
	body := `{"title":"` + title + `","body":"Het buurthuis is **dicht**."}`
	w := executeHandler(t, h.CreateNotice, newJSONRequest(t, http.MethodPost, "/beheer/notices", body, nil))
	assertStatusCode(t, w, http.StatusCreated)
	return unmarshalData[NoticeResponse](t, w)
}

func TestCreateNotice(t *testing.T) {
	db, h := testSetup(t)
	admin := createTestUser(t, db, "anna@example.nl", model.RoleBeheerder)

	req := asUser(newJSONRequest(t, http.MethodPost, "/beheer/notices",
		`{"title":"Gesloten","body":"Vandaag <script>alert(1)</script> **dicht**"}`, nil), admin)
	w := executeHandler(t, h.CreateNotice, req)

	assertStatusCode(t, w, http.StatusCreated)
	n := unmarshalData[NoticeResponse](t, w)
	if n.Active || n.ActivatedAt != nil {
		t.Error("new notices start inactive")
	}
	if strings.Contains(n.BodyHtml, "<script>") || !strings.Contains(n.BodyHtml, "<strong>dicht</strong>") {
		t.Errorf("BodyHtml = %q", n.BodyHtml)
	}

	events, err := h.events.ListEvents(context.Background(), "", model.EventCategoryContent, 10, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || !events[0].UserID.Valid || events[0].UserID.Int64 != admin.ID {
		t.Errorf("audit events = %+v", events)
	}
}

func TestCreateNotice_Validation(t *testing.T) {
	_, h := testSetup(t)
	w := executeHandler(t, h.CreateNotice, newJSONRequest(t, http.MethodPost, "/beheer/notices", `{"title":"  ","body":""}`, nil))
	assertStatusCode(t, w, http.StatusUnprocessableEntity)
	resp := assertErrorResponse(t, w, "validation_error")
	if len(resp.Error.Details) != 2 {
		t.Errorf("details = %v", resp.Error.Details)
	}
}

func TestActivateNotice_SingleActive(t *testing.T) {
	_, h := testSetup(t)
	first := createTestNotice(t, h, "Een")
	second := createTestNotice(t, h, "Twee")

	for _, n := range []NoticeResponse{first, second} {
		req := newJSONRequest(t, http.MethodPost, "/beheer/notices/x/activate", "", idParam(n.ID))
		w := executeHandler(t, h.ActivateNotice, req)
		assertStatusCode(t, w, http.StatusOK)
		if got := unmarshalData[NoticeResponse](t, w); !got.Active || got.ActivatedAt == nil {
			t.Errorf("notice %d not active: %+v", n.ID, got)
		}
	}

	w := executeHandler(t, h.ListNotices, newGetRequest(t, "/beheer/notices", nil))
	items, _ := unmarshalList[NoticeResponse](t, w)
	active := 0
	for _, n := range items {
		if n.Active {
			active++
			if n.ID != second.ID {
				t.Errorf("active notice = %d, want %d", n.ID, second.ID)
			}
		}
	}
	if active != 1 {
		t.Errorf("active notices = %d, want 1", active)
	}

	w = executeHandler(t, h.DeactivateNotice, newJSONRequest(t, http.MethodPost, "/beheer/notices/x/deactivate", "", idParam(second.ID)))
	assertStatusCode(t, w, http.StatusNoContent)
	if n, err := h.notices.Active(context.Background()); err != nil || n != nil {
		t.Errorf("Active after deactivate = %+v, %v", n, err)
	}
}

func TestActivateNotice_NotFound(t *testing.T) {
	_, h := testSetup(t)
	w := executeHandler(t, h.ActivateNotice, newJSONRequest(t, http.MethodPost, "/beheer/notices/x/activate", "", idParam(404)))
	assertStatusCode(t, w, http.StatusNotFound)

	w = executeHandler(t, h.ActivateNotice, newJSONRequest(t, http.MethodPost, "/beheer/notices/x/activate", "", map[string]string{"id": "x"}))
	assertStatusCode(t, w, http.StatusBadRequest)
}

func TestUpdateAndDeleteNotice(t *testing.T) {
	_, h := testSetup(t)
	n := createTestNotice(t, h, "Oud")

	w := executeHandler(t, h.UpdateNotice, newJSONRequest(t, http.MethodPut, "/beheer/notices/x", `{"title":"Nieuw","body":"tekst"}`, idParam(n.ID)))
	assertStatusCode(t, w, http.StatusOK)
	if got := unmarshalData[NoticeResponse](t, w); got.Title != "Nieuw" {
		t.Errorf("Title = %q", got.Title)
	}

	w = executeHandler(t, h.DeleteNotice, newDeleteRequest(t, "/beheer/notices/x", idParam(n.ID)))
	assertStatusCode(t, w, http.StatusNoContent)
	w = executeHandler(t, h.GetNotice, newGetRequest(t, "/beheer/notices/x", idParam(n.ID)))
	assertStatusCode(t, w, http.StatusNotFound)
}
