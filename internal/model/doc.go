// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain types and constants shared across the
// application: roles, audit event levels and media variant settings.
package model
