// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// Media

const mediaColumns = `id, uuid, filename, mime_type, size, width, height, alt, uploaded_by, created_at`

func scanMedium(row interface{ Scan(...any) error }) (Medium, error) {
	var m Medium
	err := row.Scan(
		&m.ID,
		&m.Uuid,
		&m.Filename,
		&m.MimeType,
		&m.Size,
		&m.Width,
		&m.Height,
		&m.Alt,
		&m.UploadedBy,
		&m.CreatedAt,
	)
	return m, err
}

type CreateMediaParams struct {
	Uuid       string
	Filename   string
	MimeType   string
	Size       int64
	Width      sql.NullInt64
	Height     sql.NullInt64
	Alt        string
	UploadedBy sql.NullInt64
	CreatedAt  time.Time
}

const createMedia = `INSERT INTO media (uuid, filename, mime_type, size, width, height, alt, uploaded_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + mediaColumns

func (q *Queries) CreateMedia(ctx context.Context, arg CreateMediaParams) (Medium, error) {
	row := q.db.QueryRowContext(ctx, createMedia,
		arg.Uuid, arg.Filename, arg.MimeType, arg.Size,
		arg.Width, arg.Height, arg.Alt, arg.UploadedBy, arg.CreatedAt.UTC(),
	)
	return scanMedium(row)
}

const getMedia = `SELECT ` + mediaColumns + ` FROM media WHERE id = ?`

func (q *Queries) GetMedia(ctx context.Context, id int64) (Medium, error) {
	return scanMedium(q.db.QueryRowContext(ctx, getMedia, id))
}

const listMedia = `SELECT ` + mediaColumns + ` FROM media ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

func (q *Queries) ListMedia(ctx context.Context, limit, offset int64) ([]Medium, error) {
	rows, err := q.db.QueryContext(ctx, listMedia, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Medium
	for rows.Next() {
		m, err := scanMedium(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const deleteMedia = `DELETE FROM media WHERE id = ?`

func (q *Queries) DeleteMedia(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteMedia, id)
	return err
}

// Newsletters

const newsletterColumns = `id, title, slug, summary, body_markdown, body_html, published, published_at, created_at, updated_at`

func scanNewsletter(row interface{ Scan(...any) error }) (Newsletter, error) {
	var n Newsletter
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Slug,
		&n.Summary,
		&n.BodyMarkdown,
		&n.BodyHtml,
		&n.Published,
		&n.PublishedAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

type NewsletterParams struct {
	Title        string
	Slug         string
	Summary      string
	BodyMarkdown string
	BodyHtml     string
	Published    bool
	PublishedAt  sql.NullTime
	Now          time.Time
}

const createNewsletter = `INSERT INTO newsletters (title, slug, summary, body_markdown, body_html, published, published_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + newsletterColumns

func (q *Queries) CreateNewsletter(ctx context.Context, arg NewsletterParams) (Newsletter, error) {
	now := arg.Now.UTC()
	row := q.db.QueryRowContext(ctx, createNewsletter,
		arg.Title, arg.Slug, arg.Summary, arg.BodyMarkdown, arg.BodyHtml,
		boolToInt(arg.Published), utcNullTime(arg.PublishedAt), now, now,
	)
	return scanNewsletter(row)
}

const updateNewsletter = `UPDATE newsletters SET title = ?, slug = ?, summary = ?, body_markdown = ?, body_html = ?,
published = ?, published_at = ?, updated_at = ?
WHERE id = ?
RETURNING ` + newsletterColumns

func (q *Queries) UpdateNewsletter(ctx context.Context, id int64, arg NewsletterParams) (Newsletter, error) {
	row := q.db.QueryRowContext(ctx, updateNewsletter,
		arg.Title, arg.Slug, arg.Summary, arg.BodyMarkdown, arg.BodyHtml,
		boolToInt(arg.Published), utcNullTime(arg.PublishedAt), arg.Now.UTC(), id,
	)
	return scanNewsletter(row)
}

const getNewsletter = `SELECT ` + newsletterColumns + ` FROM newsletters WHERE id = ?`

func (q *Queries) GetNewsletter(ctx context.Context, id int64) (Newsletter, error) {
	return scanNewsletter(q.db.QueryRowContext(ctx, getNewsletter, id))
}

const getPublishedNewsletterBySlug = `SELECT ` + newsletterColumns + ` FROM newsletters WHERE slug = ? AND published = 1`

func (q *Queries) GetPublishedNewsletterBySlug(ctx context.Context, slug string) (Newsletter, error) {
	return scanNewsletter(q.db.QueryRowContext(ctx, getPublishedNewsletterBySlug, slug))
}

const slugExistsNewsletter = `SELECT COUNT(*) FROM newsletters WHERE slug = ? AND id != ?`

func (q *Queries) NewsletterSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, slugExistsNewsletter, slug, excludeID).Scan(&n)
	return n > 0, err
}

const listNewsletters = `SELECT ` + newsletterColumns + ` FROM newsletters
WHERE (? = 0 OR published = 1)
ORDER BY COALESCE(published_at, created_at) DESC LIMIT ? OFFSET ?`

func (q *Queries) ListNewsletters(ctx context.Context, publishedOnly bool, limit, offset int64) ([]Newsletter, error) {
	rows, err := q.db.QueryContext(ctx, listNewsletters, boolToInt(publishedOnly), limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Newsletter
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const deleteNewsletter = `DELETE FROM newsletters WHERE id = ?`

func (q *Queries) DeleteNewsletter(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteNewsletter, id)
	return err
}

// Albums

const albumColumns = `id, title, slug, description, published, taken_at, created_at, updated_at`

func scanAlbum(row interface{ Scan(...any) error }) (Album, error) {
	var a Album
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Slug,
		&a.Description,
		&a.Published,
		&a.TakenAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

type AlbumParams struct {
	Title       string
	Slug        string
	Description string
	Published   bool
	TakenAt     sql.NullTime
	Now         time.Time
}

const createAlbum = `INSERT INTO albums (title, slug, description, published, taken_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + albumColumns

func (q *Queries) CreateAlbum(ctx context.Context, arg AlbumParams) (Album, error) {
	now := arg.Now.UTC()
	row := q.db.QueryRowContext(ctx, createAlbum,
		arg.Title, arg.Slug, arg.Description, boolToInt(arg.Published), utcNullTime(arg.TakenAt), now, now,
	)
	return scanAlbum(row)
}

const updateAlbum = `UPDATE albums SET title = ?, slug = ?, description = ?, published = ?, taken_at = ?, updated_at = ?
WHERE id = ?
RETURNING ` + albumColumns

func (q *Queries) UpdateAlbum(ctx context.Context, id int64, arg AlbumParams) (Album, error) {
	row := q.db.QueryRowContext(ctx, updateAlbum,
		arg.Title, arg.Slug, arg.Description, boolToInt(arg.Published), utcNullTime(arg.TakenAt), arg.Now.UTC(), id,
	)
	return scanAlbum(row)
}

const getAlbum = `SELECT ` + albumColumns + ` FROM albums WHERE id = ?`

func (q *Queries) GetAlbum(ctx context.Context, id int64) (Album, error) {
	return scanAlbum(q.db.QueryRowContext(ctx, getAlbum, id))
}

const getPublishedAlbumBySlug = `SELECT ` + albumColumns + ` FROM albums WHERE slug = ? AND published = 1`

func (q *Queries) GetPublishedAlbumBySlug(ctx context.Context, slug string) (Album, error) {
	return scanAlbum(q.db.QueryRowContext(ctx, getPublishedAlbumBySlug, slug))
}

const slugExistsAlbum = `SELECT COUNT(*) FROM albums WHERE slug = ? AND id != ?`

func (q *Queries) AlbumSlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, slugExistsAlbum, slug, excludeID).Scan(&n)
	return n > 0, err
}

const listAlbums = `SELECT ` + albumColumns + ` FROM albums
WHERE (? = 0 OR published = 1)
ORDER BY COALESCE(taken_at, created_at) DESC LIMIT ? OFFSET ?`

func (q *Queries) ListAlbums(ctx context.Context, publishedOnly bool, limit, offset int64) ([]Album, error) {
	rows, err := q.db.QueryContext(ctx, listAlbums, boolToInt(publishedOnly), limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const deleteAlbum = `DELETE FROM albums WHERE id = ?`

func (q *Queries) DeleteAlbum(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteAlbum, id)
	return err
}

// Photos

type AddPhotoParams struct {
	AlbumID   int64
	MediaID   int64
	Caption   string
	CreatedAt time.Time
}

const addPhoto = `INSERT INTO photos (album_id, media_id, caption, position, created_at)
VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM photos WHERE album_id = ?), ?)
RETURNING id, album_id, media_id, caption, position, created_at`

// AddPhoto appends a media item to the end of an album.
func (q *Queries) AddPhoto(ctx context.Context, arg AddPhotoParams) (Photo, error) {
	var p Photo
	err := q.db.QueryRowContext(ctx, addPhoto,
		arg.AlbumID, arg.MediaID, arg.Caption, arg.AlbumID, arg.CreatedAt.UTC(),
	).Scan(&p.ID, &p.AlbumID, &p.MediaID, &p.Caption, &p.Position, &p.CreatedAt)
	return p, err
}

// AlbumPhoto is a photo joined with its media row.
type AlbumPhoto struct {
	Photo
	Uuid     string `json:"uuid"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Alt      string `json:"alt"`
}

const listAlbumPhotos = `SELECT p.id, p.album_id, p.media_id, p.caption, p.position, p.created_at,
m.uuid, m.filename, m.mime_type, m.alt
FROM photos p
JOIN media m ON m.id = p.media_id
WHERE p.album_id = ?
ORDER BY p.position, p.id`

func (q *Queries) ListAlbumPhotos(ctx context.Context, albumID int64) ([]AlbumPhoto, error) {
	rows, err := q.db.QueryContext(ctx, listAlbumPhotos, albumID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []AlbumPhoto
	for rows.Next() {
		var p AlbumPhoto
		if err := rows.Scan(
			&p.ID, &p.AlbumID, &p.MediaID, &p.Caption, &p.Position, &p.CreatedAt,
			&p.Uuid, &p.Filename, &p.MimeType, &p.Alt,
		); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const removePhoto = `DELETE FROM photos WHERE id = ? AND album_id = ?`

func (q *Queries) RemovePhoto(ctx context.Context, albumID, photoID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, removePhoto, photoID, albumID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
