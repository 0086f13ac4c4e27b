// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const noticeColumns = `id, title, body_markdown, body_html, active, created_by, activated_at, created_at, updated_at`

func scanNotice(row interface{ Scan(...any) error }) (Notice, error) {
	var n Notice
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.BodyMarkdown,
		&n.BodyHtml,
		&n.Active,
		&n.CreatedBy,
		&n.ActivatedAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

type NoticeParams struct {
	Title        string
	BodyMarkdown string
	BodyHtml     string
	CreatedBy    sql.NullInt64
	Now          time.Time
}

const createNotice = `INSERT INTO notices (title, body_markdown, body_html, active, created_by, created_at, updated_at)
VALUES (?, ?, ?, 0, ?, ?, ?)
RETURNING ` + noticeColumns

// CreateNotice inserts an inactive notice.
func (q *Queries) CreateNotice(ctx context.Context, arg NoticeParams) (Notice, error) {
	now := arg.Now.UTC()
	row := q.db.QueryRowContext(ctx, createNotice,
		arg.Title, arg.BodyMarkdown, arg.BodyHtml, arg.CreatedBy, now, now,
	)
	return scanNotice(row)
}

const updateNotice = `UPDATE notices SET title = ?, body_markdown = ?, body_html = ?, updated_at = ?
WHERE id = ?
RETURNING ` + noticeColumns

func (q *Queries) UpdateNotice(ctx context.Context, id int64, arg NoticeParams) (Notice, error) {
	row := q.db.QueryRowContext(ctx, updateNotice,
		arg.Title, arg.BodyMarkdown, arg.BodyHtml, arg.Now.UTC(), id,
	)
	return scanNotice(row)
}

const getNotice = `SELECT ` + noticeColumns + ` FROM notices WHERE id = ?`

func (q *Queries) GetNotice(ctx context.Context, id int64) (Notice, error) {
	return scanNotice(q.db.QueryRowContext(ctx, getNotice, id))
}

const getActiveNotice = `SELECT ` + noticeColumns + ` FROM notices WHERE active = 1 LIMIT 1`

func (q *Queries) GetActiveNotice(ctx context.Context) (Notice, error) {
	return scanNotice(q.db.QueryRowContext(ctx, getActiveNotice))
}

const listNotices = `SELECT ` + noticeColumns + ` FROM notices ORDER BY active DESC, updated_at DESC LIMIT ? OFFSET ?`

func (q *Queries) ListNotices(ctx context.Context, limit, offset int64) ([]Notice, error) {
	rows, err := q.db.QueryContext(ctx, listNotices, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const deactivateNotices = `UPDATE notices SET active = 0, updated_at = ? WHERE active = 1 AND id != ?`

// DeactivateOtherNotices clears the active flag on every notice except keepID.
func (q *Queries) DeactivateOtherNotices(ctx context.Context, keepID int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, deactivateNotices, now.UTC(), keepID)
	return err
}

const activateNotice = `UPDATE notices SET active = 1, activated_at = ?, updated_at = ?
WHERE id = ?
RETURNING ` + noticeColumns

// SetNoticeActive flags a single notice as active. Callers must deactivate
// the others first in the same transaction.
func (q *Queries) SetNoticeActive(ctx context.Context, id int64, now time.Time) (Notice, error) {
	now = now.UTC()
	return scanNotice(q.db.QueryRowContext(ctx, activateNotice, now, now, id))
}

const deactivateNotice = `UPDATE notices SET active = 0, updated_at = ? WHERE id = ?`

func (q *Queries) DeactivateNotice(ctx context.Context, id int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, deactivateNotice, now.UTC(), id)
	return err
}

const deleteNotice = `DELETE FROM notices WHERE id = ?`

func (q *Queries) DeleteNotice(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteNotice, id)
	return err
}
