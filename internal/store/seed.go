// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/vcms-go/internal/auth"
	"github.com/olegiv/vcms-go/internal/model"
)

// DefaultAdminName is the display name of the seeded developer account.
const DefaultAdminName = "Developer"

// ErrSeedPasswordRequired is returned when seeding is enabled without a password.
var ErrSeedPasswordRequired = errors.New("VCMS_ADMIN_PASSWORD is required when VCMS_DO_SEED is enabled")

// SeedOptions configures the initial account.
type SeedOptions struct {
	Email    string
	Password string
}

// Seed creates the first developer account when the users table is empty.
// It does nothing once any user exists.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	queries := New(db)

	n, err := queries.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if n > 0 {
		slog.Info("users already exist, skipping seed")
		return nil
	}

	if opts.Password == "" {
		return ErrSeedPasswordRequired
	}
	if err := auth.ValidatePassword(opts.Password); err != nil {
		return fmt.Errorf("seed password: %w", err)
	}

	passwordHash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        opts.Email,
		PasswordHash: passwordHash,
		Role:         model.RoleDeveloper.String(),
		Name:         DefaultAdminName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating developer user: %w", err)
	}

	slog.Info("created initial developer account", "id", user.ID, "email", user.Email)
	return nil
}
