// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves visitor IP addresses to ISO country codes using a
// MaxMind GeoLite2-Country database.
package geoip

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/olegiv/vcms-go/internal/util"
)

// Local is reported for loopback and private addresses.
const Local = "LOCAL"

// Resolver maps an IP address to a country code.
type Resolver interface {
	Country(ip string) string
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Lookup is a Resolver backed by a .mmdb file that can be swapped on disk.
// A Lookup without a database still reports Local for private addresses.
type Lookup struct {
	mu      sync.RWMutex
	path    string
	reader  *maxminddb.Reader
	modTime time.Time
}

// Open loads the database at path. An empty path yields a Lookup that only
// recognizes local addresses.
func Open(path string) (*Lookup, error) {
	l := &Lookup{path: path}
	if path == "" {
		return l, nil
	}
	if err := l.load(); err != nil {
		return l, err
	}
	return l, nil
}

// load (re)opens the database when its modification time changed.
// Caller holds l.mu or has exclusive access.
func (l *Lookup) load() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("geoip database %s: %w", l.path, err)
	}
	if l.reader != nil && info.ModTime().Equal(l.modTime) {
		return nil
	}

	r, err := maxminddb.Open(l.path)
	if err != nil {
		return fmt.Errorf("opening geoip database: %w", err)
	}
	if l.reader != nil {
		_ = l.reader.Close()
	}
	l.reader = r
	l.modTime = info.ModTime()
	return nil
}

// Reload picks up a replaced database file. It is a no-op when no path is
// configured or the file is unchanged.
func (l *Lookup) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.path == "" {
		return nil
	}
	return l.load()
}

// Enabled reports whether a database is loaded.
func (l *Lookup) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reader != nil
}

// Country returns the ISO code for ip, Local for non-public addresses, or ""
// when unknown.
func (l *Lookup) Country(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	if !util.IsPublicAddr(addr) {
		return Local
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.reader == nil {
		return ""
	}
	var rec countryRecord
	if err := l.reader.Lookup(net.IP(addr.Unmap().AsSlice()), &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

// Close releases the database.
func (l *Lookup) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reader == nil {
		return nil
	}
	err := l.reader.Close()
	l.reader = nil
	return err
}
