// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Audit event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Audit event categories.
const (
	EventCategoryAuth      = "auth"
	EventCategoryUser      = "user"
	EventCategoryContent   = "content"
	EventCategoryMedia     = "media"
	EventCategoryTelemetry = "telemetry"
	EventCategorySystem    = "system"
	EventCategoryCache     = "cache"
)
