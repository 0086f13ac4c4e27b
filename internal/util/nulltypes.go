// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"time"
)

// NullInt64FromPtr converts an optional id into sql.NullInt64.
// Nil and non-positive values are NULL.
func NullInt64FromPtr(ptr *int64) sql.NullInt64 {
	if ptr == nil || *ptr <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *ptr, Valid: true}
}

// NullTimeFromPtr converts an optional time into a UTC sql.NullTime.
func NullTimeFromPtr(ptr *time.Time) sql.NullTime {
	if ptr == nil || ptr.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: ptr.UTC(), Valid: true}
}

// TimePtr returns the time held by nt, or nil.
func TimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
