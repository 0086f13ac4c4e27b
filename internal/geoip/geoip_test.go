// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"path/filepath"
	"testing"
)

func TestLookupWithoutDatabase(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if l.Enabled() {
		t.Error("lookup without a path must not be enabled")
	}

	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", Local},
		{"10.0.0.8", Local},
		{"192.168.178.20", Local},
		{"::1", Local},
		{"fd12::1", Local},
		{"8.8.8.8", ""},
		{"not-an-ip", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := l.Country(tt.ip); got != tt.want {
			t.Errorf("Country(%q) = %q, want %q", tt.ip, got, tt.want)
		}
	}

	if err := l.Reload(); err != nil {
		t.Errorf("Reload without path: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err == nil {
		t.Fatal("expected error for a missing database")
	}
	if l == nil {
		t.Fatal("Open must still return a usable Lookup")
	}
	if got := l.Country("192.168.1.1"); got != Local {
		t.Errorf("Country = %q, want %q", got, Local)
	}
	if err := l.Reload(); err == nil {
		t.Error("Reload of a missing file should report an error")
	}
}

var _ Resolver = (*Lookup)(nil)
