// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/util"
)

// ErrNoticeNotFound is returned for unknown notice ids.
var ErrNoticeNotFound = errors.New("notice not found")

// NoticeInput is the editable part of a notice.
type NoticeInput struct {
	Title string
	Body  string // markdown
}

// NoticeService manages site notices. At most one notice is active at any
// time; activation happens in a single transaction.
type NoticeService struct {
	db      *sql.DB
	queries *store.Queries
	now     func() time.Time
}

// NewNoticeService creates a NoticeService.
func NewNoticeService(db *sql.DB) *NoticeService {
	return &NoticeService{db: db, queries: store.New(db), now: time.Now}
}

func (s *NoticeService) params(in NoticeInput, userID *int64) (store.NoticeParams, error) {
	html, err := RenderMarkdown(in.Body)
	if err != nil {
		return store.NoticeParams{}, err
	}
	return store.NoticeParams{
		Title:        strings.TrimSpace(in.Title),
		BodyMarkdown: in.Body,
		BodyHtml:     html,
		CreatedBy:    util.NullInt64FromPtr(userID),
		Now:          s.now(),
	}, nil
}

// Create stores a new, inactive notice.
func (s *NoticeService) Create(ctx context.Context, in NoticeInput, userID *int64) (store.Notice, error) {
	p, err := s.params(in, userID)
	if err != nil {
		return store.Notice{}, err
	}
	return s.queries.CreateNotice(ctx, p)
}

// Update replaces title and body. The active flag is left alone.
func (s *NoticeService) Update(ctx context.Context, id int64, in NoticeInput) (store.Notice, error) {
	p, err := s.params(in, nil)
	if err != nil {
		return store.Notice{}, err
	}
	n, err := s.queries.UpdateNotice(ctx, id, p)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Notice{}, ErrNoticeNotFound
	}
	return n, err
}

// Get returns one notice.
func (s *NoticeService) Get(ctx context.Context, id int64) (store.Notice, error) {
	n, err := s.queries.GetNotice(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Notice{}, ErrNoticeNotFound
	}
	return n, err
}

// Active returns the active notice, or nil when none is active.
func (s *NoticeService) Active(ctx context.Context) (*store.Notice, error) {
	n, err := s.queries.GetActiveNotice(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns notices, the active one first.
func (s *NoticeService) List(ctx context.Context, limit, offset int64) ([]store.Notice, error) {
	return s.queries.ListNotices(ctx, limit, offset)
}

// Activate makes id the only active notice. Deactivating the others and
// activating id commit together, and the partial unique index on
// notices(active) rejects any concurrent writer that slips in between.
func (s *NoticeService) Activate(ctx context.Context, id int64) (store.Notice, error) {
	var activated store.Notice
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		now := s.now()
		if _, err := q.GetNotice(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoticeNotFound
			}
			return err
		}
		if err := q.DeactivateOtherNotices(ctx, id, now); err != nil {
			return fmt.Errorf("deactivating notices: %w", err)
		}
		n, err := q.SetNoticeActive(ctx, id, now)
		if err != nil {
			return fmt.Errorf("activating notice %d: %w", id, err)
		}
		activated = n
		return nil
	})
	return activated, err
}

// Deactivate clears the active flag on id.
func (s *NoticeService) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.queries.DeactivateNotice(ctx, id, s.now())
}

// Delete removes a notice.
func (s *NoticeService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.queries.DeleteNotice(ctx, id)
}
