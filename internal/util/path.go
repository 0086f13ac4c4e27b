// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidFilename is returned for names that reduce to nothing usable.
var ErrInvalidFilename = errors.New("invalid filename")

// SafeFilename reduces an uploaded filename to a plain base name safe to
// use on disk and in URLs. Names without an extension get ".bin".
func SafeFilename(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		return "", fmt.Errorf("%w %q", ErrInvalidFilename, name)
	}

	base = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '-'
		case strings.ContainsRune(`'"<>&#?%*:|`, r), r < 0x20:
			return -1
		}
		return r
	}, base)

	if base == "" || strings.HasPrefix(base, ".") && filepath.Ext(base) == base {
		return "", fmt.Errorf("%w %q", ErrInvalidFilename, name)
	}
	if filepath.Ext(base) == "" {
		base += ".bin"
	}
	return base, nil
}

// SafeJoin joins elems under base and fails if the result escapes base.
func SafeJoin(base string, elems ...string) (string, error) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", base, err)
	}
	full := filepath.Join(append([]string{absBase}, elems...)...)
	if full != absBase && !strings.HasPrefix(full, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", filepath.Join(elems...), base)
	}
	return full, nil
}
