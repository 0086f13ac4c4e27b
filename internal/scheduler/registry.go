// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// registeredJob holds a job and its run history.
type registeredJob struct {
	job     Job
	entryID cron.EntryID

	mu      sync.Mutex
	lastRun time.Time
	lastErr string
	running bool
}

func (rj *registeredJob) record(start time.Time, err error) {
	rj.mu.Lock()
	defer rj.mu.Unlock()
	rj.lastRun = start
	rj.running = false
	rj.lastErr = ""
	if err != nil {
		rj.lastErr = err.Error()
	}
}

// tryStart marks the job running. Returns false when a run is in progress.
func (rj *registeredJob) tryStart() bool {
	rj.mu.Lock()
	defer rj.mu.Unlock()
	if rj.running {
		return false
	}
	rj.running = true
	return true
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run,omitzero"`
	NextRun     time.Time `json:"next_run,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Running     bool      `json:"running"`
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		entry := s.cron.Entry(rj.entryID)

		rj.mu.Lock()
		info := JobInfo{
			Name:        rj.job.Name,
			Description: rj.job.Description,
			Schedule:    rj.job.Schedule,
			LastRun:     rj.lastRun,
			NextRun:     entry.Next,
			LastError:   rj.lastErr,
			Running:     rj.running,
		}
		rj.mu.Unlock()

		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TriggerNow runs a job immediately in the caller's goroutine and returns
// its error. A job already running is not started twice.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !rj.tryStart() {
		return fmt.Errorf("job %s is already running", name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return s.run(rj, "manual")
}
