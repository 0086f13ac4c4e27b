// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.status = http.StatusOK
		rw.wroteHeader = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// TrackingConfig configures TrackingMiddleware.
type TrackingConfig struct {
	// Store returns the session store for a request.
	Store func(r *http.Request) SessionStore
	// UserID returns the signed-in user's id, or "".
	UserID func(r *http.Request) string
	// Country returns the visitor's country code, or "".
	Country func(r *http.Request) string
	// ExcludePrefixes are path prefixes never reported.
	ExcludePrefixes []string
}

var skippedPrefixes = []string{
	"/static/", "/assets/", "/uploads/", "/favicon.", "/robots.txt",
	"/sitemap", "/.well-known/", "/api/", "/health", "/beheer",
}

var skippedExtensions = []string{
	".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
	".woff", ".woff2", ".ttf", ".xml", ".json", ".txt", ".pdf", ".map",
}

// ShouldTrack reports whether a request is a page navigation by a person
// worth reporting.
func ShouldTrack(r *http.Request, exclude []string) bool {
	if r.Method != http.MethodGet {
		return false
	}
	// Prefetches are not navigations.
	if r.Header.Get("Sec-Purpose") != "" || r.Header.Get("Purpose") == "prefetch" {
		return false
	}
	if IsBot(r.UserAgent()) {
		return false
	}

	p := r.URL.Path
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	for _, prefix := range exclude {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	lower := strings.ToLower(p)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// TrackingMiddleware gives every request a Beacon in its context and
// reports a pageview for trackable requests that answer 200. The session
// store must be loaded before this middleware runs.
func (c *Client) TrackingMiddleware(cfg TrackingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var store SessionStore = &MemoryStore{}
			if cfg.Store != nil {
				store = cfg.Store(r)
			}

			b := c.NewBeacon(store)
			// The id must be stored before the handler writes the response.
			b.Activate(r.Context())
			if cfg.UserID != nil {
				b.SetUser(cfg.UserID(r))
			}
			r = r.WithContext(WithBeacon(r.Context(), b))

			if !ShouldTrack(r, cfg.ExcludePrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status != http.StatusOK {
				return
			}
			pv := c.PageViewFromRequest(r)
			if cfg.Country != nil {
				pv.Country = cfg.Country(r)
			}
			b.TrackPageView(r.Context(), pv)
		})
	}
}

// PageViewFromRequest assembles a pageview from request metadata. Viewport
// size comes from client hints when the browser sends them.
func (c *Client) PageViewFromRequest(r *http.Request) PageView {
	ua := r.UserAgent()
	ref := r.Referer()
	return PageView{
		Path:           r.URL.Path,
		Referrer:       ReferrerHost(ref),
		Source:         ClassifySource(ref, c.siteHost(r)),
		Device:         ClassifyDevice(ua),
		Browser:        ClassifyBrowser(ua),
		OS:             OperatingSystem(ua),
		ViewportWidth:  headerInt(r, "Sec-CH-Viewport-Width"),
		ViewportHeight: headerInt(r, "Sec-CH-Viewport-Height"),
		Locale:         PrimaryLocale(r.Header.Get("Accept-Language")),
	}
}

func (c *Client) siteHost(r *http.Request) string {
	if c.opts.SiteHost != "" {
		return c.opts.SiteHost
	}
	return r.Host
}

func headerInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.Header.Get(name)))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// PrimaryLocale returns the visitor's preferred language tag from an
// Accept-Language header, e.g. "nl-NL", or "".
func PrimaryLocale(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	if tags[0] == language.Und {
		return ""
	}
	return tags[0].String()
}
