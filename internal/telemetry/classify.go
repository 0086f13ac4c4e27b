// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"net"
	"net/url"
	"strings"

	"github.com/mileusna/useragent"
	"golang.org/x/net/publicsuffix"
)

// Device is the coarse device class of a visitor.
type Device string

// Device classes.
const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
	DeviceTablet  Device = "tablet"
)

// Valid reports whether d is one of the device classes.
func (d Device) Valid() bool {
	switch d {
	case DeviceDesktop, DeviceMobile, DeviceTablet:
		return true
	}
	return false
}

// Browser is the coarse browser family of a visitor.
type Browser string

// Browser families.
const (
	BrowserChrome  Browser = "chrome"
	BrowserFirefox Browser = "firefox"
	BrowserSafari  Browser = "safari"
	BrowserEdge    Browser = "edge"
	BrowserOther   Browser = "other"
)

// Valid reports whether b is one of the browser families.
func (b Browser) Valid() bool {
	switch b {
	case BrowserChrome, BrowserFirefox, BrowserSafari, BrowserEdge, BrowserOther:
		return true
	}
	return false
}

// Source is how the visitor reached the site.
type Source string

// Traffic sources.
const (
	SourceDirect   Source = "direct"
	SourceSocial   Source = "social"
	SourceOrganic  Source = "organic"
	SourceReferral Source = "referral"
)

// Valid reports whether s is one of the traffic sources.
func (s Source) Valid() bool {
	switch s {
	case SourceDirect, SourceSocial, SourceOrganic, SourceReferral:
		return true
	}
	return false
}

var tabletMarkers = []string{"ipad", "tablet", "playbook", "silk", "kindle", "nexus 7", "nexus 10"}

var mobileMarkers = []string{
	"mobi", "iphone", "ipod", "android", "blackberry", "bb10",
	"opera mini", "iemobile", "windows phone", "webos",
}

// ClassifyDevice maps a user agent to a device class. Tablet markers are
// checked first because tablet agents often carry mobile markers too.
func ClassifyDevice(ua string) Device {
	s := strings.ToLower(ua)
	if containsAny(s, tabletMarkers) {
		return DeviceTablet
	}
	// Android tablets omit "Mobile" from the agent.
	if strings.Contains(s, "android") && !strings.Contains(s, "mobile") {
		return DeviceTablet
	}
	if containsAny(s, mobileMarkers) {
		return DeviceMobile
	}
	return DeviceDesktop
}

// ClassifyBrowser maps a user agent to a browser family. Edge agents also
// contain "Chrome" and Chrome agents also contain "Safari", so the more
// specific markers are checked first.
func ClassifyBrowser(ua string) Browser {
	s := strings.ToLower(ua)
	switch {
	case containsAny(s, []string{"edg/", "edge/", "edga/", "edgios/"}):
		return BrowserEdge
	case containsAny(s, []string{"opr/", "opera", "samsungbrowser/", "yabrowser/"}):
		return BrowserOther
	case containsAny(s, []string{"chrome/", "crios/", "chromium/"}):
		return BrowserChrome
	case containsAny(s, []string{"firefox/", "fxios/"}):
		return BrowserFirefox
	case strings.Contains(s, "safari/"):
		return BrowserSafari
	}
	return BrowserOther
}

// socialDomains are registrable domains of social networks.
var socialDomains = map[string]bool{
	"facebook.com":    true,
	"fb.com":          true,
	"instagram.com":   true,
	"twitter.com":     true,
	"x.com":           true,
	"t.co":            true,
	"linkedin.com":    true,
	"lnkd.in":         true,
	"youtube.com":     true,
	"youtu.be":        true,
	"tiktok.com":      true,
	"pinterest.com":   true,
	"reddit.com":      true,
	"whatsapp.com":    true,
	"wa.me":           true,
	"threads.net":     true,
	"mastodon.social": true,
	"bsky.app":        true,
}

// searchEngines are registrable names without their public suffix, so
// google.com, google.nl and google.co.uk all match "google".
var searchEngines = map[string]bool{
	"google":     true,
	"bing":       true,
	"duckduckgo": true,
	"yahoo":      true,
	"ecosia":     true,
	"baidu":      true,
	"yandex":     true,
	"startpage":  true,
	"qwant":      true,
	"brave":      true,
}

// ClassifySource maps a referrer URL (or bare host) to a traffic source.
// Referrers from siteHost count as direct navigation.
func ClassifySource(referrer, siteHost string) Source {
	host := ReferrerHost(referrer)
	if host == "" {
		return SourceDirect
	}
	if siteHost != "" && host == normalizeHost(siteHost) {
		return SourceDirect
	}

	domain, name := registrableDomain(host)
	if socialDomains[domain] {
		return SourceSocial
	}
	if searchEngines[name] {
		return SourceOrganic
	}
	return SourceReferral
}

// ReferrerHost extracts the lower-cased host of a referrer without port.
// It accepts full URLs and bare host names.
func ReferrerHost(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return ""
	}
	if !strings.Contains(referrer, "://") {
		referrer = "https://" + referrer
	}
	u, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	return normalizeHost(u.Host)
}

func normalizeHost(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.TrimSuffix(strings.ToLower(h), ".")
}

// registrableDomain returns the eTLD+1 of host and its leading label.
// Hosts without a public suffix (IPs, localhost) return themselves.
func registrableDomain(host string) (domain, name string) {
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, host
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	return domain, strings.TrimSuffix(domain, "."+suffix)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

var botMarkers = []string{"bot", "crawl", "spider", "slurp", "headless", "lighthouse", "preview"}

// IsBot reports whether ua belongs to a crawler, monitor or link expander.
// An empty user agent is not treated as a bot.
func IsBot(ua string) bool {
	if ua == "" {
		return false
	}
	if useragent.Parse(ua).Bot {
		return true
	}
	return containsAny(strings.ToLower(ua), botMarkers)
}

// OperatingSystem returns the OS name from ua, e.g. "Windows" or "iOS", or "".
func OperatingSystem(ua string) string {
	if ua == "" {
		return ""
	}
	return useragent.Parse(ua).OS
}
