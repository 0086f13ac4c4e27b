// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// MaxFetchURLLength is the longest URL the server will fetch on a user's behalf.
const MaxFetchURLLength = 2048

// ErrBlockedAddress is returned when a URL points at a non-public address.
var ErrBlockedAddress = errors.New("address is not public")

// reserved lists loopback, private, link-local, CGNAT, documentation,
// benchmarking, multicast and reserved ranges.
var reserved = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

// IsPublicAddr reports whether addr is routable on the public internet.
// IPv4-mapped IPv6 addresses are judged by their IPv4 form.
func IsPublicAddr(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	for _, p := range reserved {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// IsPrivateIP is the net.IP form of !IsPublicAddr. A nil IP is private.
func IsPrivateIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	return !ok || !IsPublicAddr(addr)
}

// ValidateFetchURL checks that rawURL is an http(s) URL whose host resolves
// only to public addresses.
func ValidateFetchURL(ctx context.Context, rawURL string) (*url.URL, error) {
	if len(rawURL) > MaxFetchURLLength {
		return nil, fmt.Errorf("URL longer than %d characters", MaxFetchURLLength)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, errors.New("URL has no host")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return nil, fmt.Errorf("%s: %w", host, ErrBlockedAddress)
	}
	if u.User != nil {
		return nil, errors.New("URL must not carry credentials")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if !IsPublicAddr(addr) {
			return nil, fmt.Errorf("%s: %w", host, ErrBlockedAddress)
		}
		return u, nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%s has no addresses", host)
	}
	for _, a := range addrs {
		if !IsPublicAddr(a) {
			return nil, fmt.Errorf("%s resolves to %s: %w", host, a, ErrBlockedAddress)
		}
	}
	return u, nil
}

// PublicOnlyDialContext returns a DialContext that resolves the host itself
// and dials only public addresses, so DNS rebinding between validation and
// connect cannot reach internal services.
func PublicOnlyDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("splitting %q: %w", addr, err)
		}

		addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", host, err)
		}
		for _, a := range addrs {
			if !IsPublicAddr(a) {
				return nil, fmt.Errorf("dial %s (%s): %w", host, a, ErrBlockedAddress)
			}
		}

		lastErr := fmt.Errorf("%s has no addresses", host)
		for _, a := range addrs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(a.Unmap().String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
}
