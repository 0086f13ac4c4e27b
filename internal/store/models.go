// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Role         string       `json:"role"`
	Name         string       `json:"name"`
	LastLoginAt  sql.NullTime `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type Event struct {
	ID         int64         `json:"id"`
	Level      string        `json:"level"`
	Category   string        `json:"category"`
	Message    string        `json:"message"`
	UserID     sql.NullInt64 `json:"-"`
	IpAddress  string        `json:"ip_address"`
	RequestUrl string        `json:"request_url"`
	Metadata   string        `json:"metadata"`
	CreatedAt  time.Time     `json:"created_at"`
}

type Volunteer struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Skills       string       `json:"skills"`
	Availability string       `json:"availability"`
	Notes        string       `json:"notes"`
	Active       bool         `json:"active"`
	JoinedAt     sql.NullTime `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type Contact struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Organization string    `json:"organization"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Notice struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	BodyMarkdown string        `json:"body_markdown"`
	BodyHtml     string        `json:"body_html"`
	Active       bool          `json:"active"`
	CreatedBy    sql.NullInt64 `json:"-"`
	ActivatedAt  sql.NullTime  `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type Activity struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	StartsAt    time.Time    `json:"starts_at"`
	EndsAt      sql.NullTime `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Medium struct {
	ID         int64         `json:"id"`
	Uuid       string        `json:"uuid"`
	Filename   string        `json:"filename"`
	MimeType   string        `json:"mime_type"`
	Size       int64         `json:"size"`
	Width      sql.NullInt64 `json:"-"`
	Height     sql.NullInt64 `json:"-"`
	Alt        string        `json:"alt"`
	UploadedBy sql.NullInt64 `json:"-"`
	CreatedAt  time.Time     `json:"created_at"`
}

type Newsletter struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Slug         string       `json:"slug"`
	Summary      string       `json:"summary"`
	BodyMarkdown string       `json:"body_markdown"`
	BodyHtml     string       `json:"body_html"`
	Published    bool         `json:"published"`
	PublishedAt  sql.NullTime `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type Album struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	Published   bool         `json:"published"`
	TakenAt     sql.NullTime `json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Photo struct {
	ID        int64     `json:"id"`
	AlbumID   int64     `json:"album_id"`
	MediaID   int64     `json:"media_id"`
	Caption   string    `json:"caption"`
	Position  int64     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type TelemetryEvent struct {
	ID              int64     `json:"id"`
	Type            string    `json:"type"`
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	Path            string    `json:"path"`
	Title           string    `json:"title"`
	Referrer        string    `json:"referrer"`
	Source          string    `json:"source"`
	Device          string    `json:"device"`
	Browser         string    `json:"browser"`
	Os              string    `json:"os"`
	Country         string    `json:"country"`
	Language        string    `json:"language"`
	ScreenWidth     int64     `json:"screen_width"`
	ScreenHeight    int64     `json:"screen_height"`
	ViewportWidth   int64     `json:"viewport_width"`
	ViewportHeight  int64     `json:"viewport_height"`
	Timezone        string    `json:"timezone"`
	InteractionKind string    `json:"interaction_kind"`
	Element         string    `json:"element"`
	Target          string    `json:"target"`
	ScrollDepth     int64     `json:"scroll_depth"`
	DurationSeconds int64     `json:"duration_seconds"`
	EventName       string    `json:"event_name"`
	Properties      string    `json:"properties"`
	OccurredAt      time.Time `json:"occurred_at"`
	CreatedAt       time.Time `json:"created_at"`
}

type TelemetryDaily struct {
	Day      string `json:"day"`
	Type     string `json:"type"`
	Path     string `json:"path"`
	Events   int64  `json:"events"`
	Sessions int64  `json:"sessions"`
}
