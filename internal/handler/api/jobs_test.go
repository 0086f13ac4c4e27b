// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/scheduler"
)

func TestJobs(t *testing.T) {
	db, h := testSetup(t)
	dev := createTestUser(t, db, "dev@example.nl", model.RoleDeveloper)

	s := scheduler.New(nil)
	ran := 0
	_ = s.Add(scheduler.Job{Name: "ok", Schedule: "@daily", Run: func(context.Context) error { ran++; return nil }})
	_ = s.Add(scheduler.Job{Name: "broken", Schedule: "@daily", Run: func(context.Context) error { return errors.New("schijf vol") }})
	h.jobs = s

	w := executeHandler(t, h.ListJobs, asUser(newGetRequest(t, "/beheer/jobs", nil), dev))
	assertStatusCode(t, w, http.StatusOK)
	if jobs, meta := unmarshalList[scheduler.JobInfo](t, w); len(jobs) != 2 || meta.Total != 2 {
		t.Errorf("jobs = %+v", jobs)
	}

	tests := []struct {
		name     string
		wantCode int
	}{
		{"ok", http.StatusNoContent},
		{"broken", http.StatusBadGateway},
		{"onbekend", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asUser(newJSONRequest(t, http.MethodPost, "/beheer/jobs/x/run", "", map[string]string{"name": tt.name}), dev)
			w := executeHandler(t, h.RunJob, req)
			assertStatusCode(t, w, tt.wantCode)
		})
	}
	if ran != 1 {
		t.Errorf("ok job ran %d times", ran)
	}

	events, err := h.events.ListEvents(context.Background(), "", model.EventCategorySystem, 10, 0)
	if err != nil || len(events) != 2 {
		t.Errorf("system events = %+v, %v", events, err)
	}
}

func TestJobs_NoScheduler(t *testing.T) {
	_, h := testSetup(t)

	w := executeHandler(t, h.ListJobs, newGetRequest(t, "/beheer/jobs", nil))
	assertStatusCode(t, w, http.StatusOK)

	w = executeHandler(t, h.RunJob, newJSONRequest(t, http.MethodPost, "/beheer/jobs/x/run", "", map[string]string{"name": "ok"}))
	assertStatusCode(t, w, http.StatusNotFound)
}
