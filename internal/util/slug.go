// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds small helpers shared across packages: slugs, safe
// paths, nullable SQL values and outbound URL checks.
package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// MaxSlugLength bounds generated slugs.
const MaxSlugLength = 120

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify turns a title into a URL slug: transliterated to ASCII, lower
// case, words joined by single hyphens. "Zomerfeest in 't Café" becomes
// "zomerfeest-in-t-cafe".
func Slugify(s string) string {
	ascii := strings.ToLower(unidecode.Unidecode(s))
	ascii = strings.ReplaceAll(ascii, "'", "")
	slug := strings.Trim(slugInvalid.ReplaceAllString(ascii, "-"), "-")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-")
	}
	return slug
}

// IsValidSlug reports whether s consists of lower-case ASCII words joined by
// single hyphens.
func IsValidSlug(s string) bool {
	if s == "" || len(s) > MaxSlugLength {
		return false
	}
	if s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// UniqueSlug returns base, or base with the first free numeric suffix
// ("-2", "-3", ...) according to taken.
func UniqueSlug(base string, taken func(slug string) (bool, error)) (string, error) {
	candidate := base
	for i := 2; i < 1000; i++ {
		exists, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}
