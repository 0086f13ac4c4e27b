// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// Volunteers

const volunteerColumns = `id, name, email, phone, skills, availability, notes, active, joined_at, created_at, updated_at`

func scanVolunteer(row interface{ Scan(...any) error }) (Volunteer, error) {
	var v Volunteer
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Email,
		&v.Phone,
		&v.Skills,
		&v.Availability,
		&v.Notes,
		&v.Active,
		&v.JoinedAt,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	return v, err
}

type VolunteerParams struct {
	Name         string
	Email        string
	Phone        string
	Skills       string
	Availability string
	Notes        string
	Active       bool
	JoinedAt     sql.NullTime
	Now          time.Time
}

const createVolunteer = `INSERT INTO volunteers (name, email, phone, skills, availability, notes, active, joined_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + volunteerColumns

func (q *Queries) CreateVolunteer(ctx context.Context, arg VolunteerParams) (Volunteer, error) {
	now := arg.Now.UTC()
	row := q.db.QueryRowContext(ctx, createVolunteer,
		arg.Name, arg.Email, arg.Phone, arg.Skills, arg.Availability, arg.Notes,
		boolToInt(arg.Active), utcNullTime(arg.JoinedAt), now, now,
	)
	return scanVolunteer(row)
}

const updateVolunteer = `UPDATE volunteers SET name = ?, email = ?, phone = ?, skills = ?, availability = ?,
notes = ?, active = ?, joined_at = ?, updated_at = ?
WHERE id = ?
RETURNING ` + volunteerColumns

func (q *Queries) UpdateVolunteer(ctx context.Context, id int64, arg VolunteerParams) (Volunteer, error) {
	row := q.db.QueryRowContext(ctx, updateVolunteer,
		arg.Name, arg.Email, arg.Phone, arg.Skills, arg.Availability, arg.Notes,
		boolToInt(arg.Active), utcNullTime(arg.JoinedAt), arg.Now.UTC(), id,
	)
	return scanVolunteer(row)
}

const getVolunteer = `SELECT ` + volunteerColumns + ` FROM volunteers WHERE id = ?`

func (q *Queries) GetVolunteer(ctx context.Context, id int64) (Volunteer, error) {
	return scanVolunteer(q.db.QueryRowContext(ctx, getVolunteer, id))
}

const listVolunteers = `SELECT ` + volunteerColumns + ` FROM volunteers
WHERE (? = 0 OR active = 1)
ORDER BY name LIMIT ? OFFSET ?`

func (q *Queries) ListVolunteers(ctx context.Context, activeOnly bool, limit, offset int64) ([]Volunteer, error) {
	rows, err := q.db.QueryContext(ctx, listVolunteers, boolToInt(activeOnly), limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Volunteer
	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const deleteVolunteer = `DELETE FROM volunteers WHERE id = ?`

func (q *Queries) DeleteVolunteer(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteVolunteer, id)
	return err
}

// Contacts

const contactColumns = `id, name, organization, email, phone, notes, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Organization,
		&c.Email,
		&c.Phone,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

type ContactParams struct {
	Name         string
	Organization string
	Email        string
	Phone        string
	Notes        string
	Now          time.Time
}

const createContact = `INSERT INTO contacts (name, organization, email, phone, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + contactColumns

func (q *Queries) CreateContact(ctx context.Context, arg ContactParams) (Contact, error) {
	now := arg.Now.UTC()
	row := q.db.QueryRowContext(ctx, createContact,
		arg.Name, arg.Organization, arg.Email, arg.Phone, arg.Notes, now, now,
	)
	return scanContact(row)
}

const updateContact = `UPDATE contacts SET name = ?, organization = ?, email = ?, phone = ?, notes = ?, updated_at = ?
WHERE id = ?
RETURNING ` + contactColumns

func (q *Queries) UpdateContact(ctx context.Context, id int64, arg ContactParams) (Contact, error) {
	row := q.db.QueryRowContext(ctx, updateContact,
		arg.Name, arg.Organization, arg.Email, arg.Phone, arg.Notes, arg.Now.UTC(), id,
	)
	return scanContact(row)
}

const getContact = `SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`

func (q *Queries) GetContact(ctx context.Context, id int64) (Contact, error) {
	return scanContact(q.db.QueryRowContext(ctx, getContact, id))
}

const listContacts = `SELECT ` + contactColumns + ` FROM contacts
WHERE (? = '' OR name LIKE '%' || ? || '%' OR organization LIKE '%' || ? || '%')
ORDER BY name LIMIT ? OFFSET ?`

func (q *Queries) ListContacts(ctx context.Context, search string, limit, offset int64) ([]Contact, error) {
	rows, err := q.db.QueryContext(ctx, listContacts, search, search, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const deleteContact = `DELETE FROM contacts WHERE id = ?`

func (q *Queries) DeleteContact(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteContact, id)
	return err
}

// Activities

const activityColumns = `id, title, slug, description, location, starts_at, ends_at, created_at, updated_at`

func scanActivity(row interface{ Scan(...any) error }) (Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Slug,
		&a.Description,
		&a.Location,
		&a.StartsAt,
		&a.EndsAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

type ActivityParams struct {
	Title       string
	Slug        string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      sql.NullTime
	Now         time.Time
}

const createActivity = `INSERT INTO activities (title, slug, description, location, starts_at, ends_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + activityColumns

func (q *Queries) CreateActivity(ctx context.Context, arg ActivityParams) (Activity, error) {
	now := arg.Now.UTC()
	row := q.db.QueryRowContext(ctx, createActivity,
		arg.Title, arg.Slug, arg.Description, arg.Location,
		arg.StartsAt.UTC(), utcNullTime(arg.EndsAt), now, now,
	)
	return scanActivity(row)
}

const updateActivity = `UPDATE activities SET title = ?, slug = ?, description = ?, location = ?,
starts_at = ?, ends_at = ?, updated_at = ?
WHERE id = ?
RETURNING ` + activityColumns

func (q *Queries) UpdateActivity(ctx context.Context, id int64, arg ActivityParams) (Activity, error) {
	row := q.db.QueryRowContext(ctx, updateActivity,
		arg.Title, arg.Slug, arg.Description, arg.Location,
		arg.StartsAt.UTC(), utcNullTime(arg.EndsAt), arg.Now.UTC(), id,
	)
	return scanActivity(row)
}

const getActivity = `SELECT ` + activityColumns + ` FROM activities WHERE id = ?`

func (q *Queries) GetActivity(ctx context.Context, id int64) (Activity, error) {
	return scanActivity(q.db.QueryRowContext(ctx, getActivity, id))
}

const slugExistsActivity = `SELECT COUNT(*) FROM activities WHERE slug = ? AND id != ?`

func (q *Queries) ActivitySlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, slugExistsActivity, slug, excludeID).Scan(&n)
	return n > 0, err
}

const listActivities = `SELECT ` + activityColumns + ` FROM activities ORDER BY starts_at DESC LIMIT ? OFFSET ?`

func (q *Queries) ListActivities(ctx context.Context, limit, offset int64) ([]Activity, error) {
	return q.queryActivities(ctx, listActivities, limit, offset)
}

const listUpcomingActivities = `SELECT ` + activityColumns + ` FROM activities
WHERE starts_at >= ? OR (ends_at IS NOT NULL AND ends_at >= ?)
ORDER BY starts_at ASC LIMIT ?`

// ListUpcomingActivities returns activities that start or are still running after now.
func (q *Queries) ListUpcomingActivities(ctx context.Context, now time.Time, limit int64) ([]Activity, error) {
	now = now.UTC()
	return q.queryActivities(ctx, listUpcomingActivities, now, now, limit)
}

func (q *Queries) queryActivities(ctx context.Context, query string, args ...any) ([]Activity, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const deleteActivity = `DELETE FROM activities WHERE id = ?`

func (q *Queries) DeleteActivity(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteActivity, id)
	return err
}

func utcNullTime(t sql.NullTime) sql.NullTime {
	if t.Valid {
		t.Time = t.Time.UTC()
	}
	return t
}
