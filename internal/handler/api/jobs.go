// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/olegiv/vcms-go/internal/handler"
	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/scheduler"
)

// JobRunner is implemented by scheduler.Scheduler.
type JobRunner interface {
	List() []scheduler.JobInfo
	TriggerNow(name string) error
}

// ListJobs handles GET /beheer/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		WriteSuccess(w, []scheduler.JobInfo{}, nil)
		return
	}
	jobs := h.jobs.List()
	WriteSuccess(w, jobs, &Meta{Total: int64(len(jobs))})
}

// RunJob handles POST /beheer/jobs/{name}/run. The job runs synchronously so
// the caller sees its outcome.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	name, err := handler.ParseURLParam(r, "name")
	if err != nil || h.jobs == nil {
		WriteNotFound(w, "Job not found")
		return
	}

	err = h.jobs.TriggerNow(name)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		WriteNotFound(w, "Job not found")
		return
	case err != nil:
		_ = h.events.LogSystemEvent(r.Context(), model.EventLevelError, "Manual job run failed: "+name,
			map[string]any{"job": name, "error": err.Error(), "user_id": middleware.SessionUserID(r)})
		WriteError(w, http.StatusBadGateway, "job_failed", err.Error(), nil)
		return
	}

	_ = h.events.LogSystemEvent(r.Context(), model.EventLevelInfo, "Job run manually: "+name,
		map[string]any{"job": name, "user_id": middleware.SessionUserID(r)})
	w.WriteHeader(http.StatusNoContent)
}
