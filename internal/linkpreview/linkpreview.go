// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package linkpreview fetches a public web page and extracts the metadata
// needed to render a link card: title, description, image and site name.
package linkpreview

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/olegiv/vcms-go/internal/cache"
	"github.com/olegiv/vcms-go/internal/util"
)

// Fetch limits.
const (
	DefaultTimeout  = 8 * time.Second
	DefaultMaxBytes = 1 << 20
	DefaultCacheTTL = 6 * time.Hour
	maxRedirects    = 5
	maxTitleRunes   = 300
	maxDescRunes    = 600
	cacheNamespace  = "preview"
)

// Errors returned by Fetch.
var (
	// ErrBlockedURL is returned for URLs that are malformed or point at a
	// non-public address.
	ErrBlockedURL = errors.New("url not allowed")
	// ErrNotHTML is returned when the target is not an HTML document.
	ErrNotHTML = errors.New("target is not an HTML page")
)

// Preview is the metadata of one page.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

// Options configures a Fetcher.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	CacheTTL time.Duration
	// Cache stores previews; nil disables caching.
	Cache cache.Cache
	// Client overrides the HTTP client. Tests use it to reach httptest
	// servers on loopback; production code must leave it nil.
	Client *http.Client
	// Validate overrides URL validation. Same caveat as Client.
	Validate func(ctx context.Context, rawURL string) (*url.URL, error)
}

// Fetcher fetches and caches previews.
type Fetcher struct {
	client   *http.Client
	validate func(ctx context.Context, rawURL string) (*url.URL, error)
	maxBytes int64
	cache    *cache.TypedCache[Preview]
}

var textPolicy = bluemonday.StrictPolicy()

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Validate == nil {
		opts.Validate = util.ValidateFetchURL
	}

	f := &Fetcher{
		client:   opts.Client,
		validate: opts.Validate,
		maxBytes: opts.MaxBytes,
	}
	if f.client == nil {
		f.client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: util.PublicOnlyDialContext(&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}),
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}
	validate := f.validate
	f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.New("too many redirects")
		}
		if _, err := validate(req.Context(), req.URL.String()); err != nil {
			return fmt.Errorf("redirect blocked: %w", err)
		}
		return nil
	}
	if opts.Cache != nil {
		f.cache = cache.NewTypedCache[Preview](opts.Cache, cacheNamespace, opts.CacheTTL)
	}
	return f
}

// Fetch returns the preview for rawURL, from cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := f.validate(ctx, strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockedURL, err)
	}
	target := u.String()

	if f.cache == nil {
		return f.fetch(ctx, u)
	}
	return f.cache.GetOrSet(ctx, cacheKey(target), func() (*Preview, error) {
		return f.fetch(ctx, u)
	})
}

func cacheKey(target string) string {
	sum := sha256.Sum256([]byte(target))
	return hex.EncodeToString(sum[:16])
}

func (f *Fetcher) fetch(ctx context.Context, u *url.URL) (*Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "vcms-linkpreview/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: status %d", u.Host, resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/html" && mt != "application/xhtml+xml" {
		return nil, ErrNotHTML
	}

	p, err := Parse(io.LimitReader(resp.Body, f.maxBytes), resp.Request.URL)
	if err != nil {
		return nil, err
	}
	slog.Debug("link preview fetched", "host", u.Host, "title", p.Title)
	return p, nil
}

// Parse extracts preview metadata from an HTML document. Open Graph tags
// win over Twitter card tags, which win over <title> and meta description.
// Relative image URLs are resolved against base.
func Parse(r io.Reader, base *url.URL) (*Preview, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	meta := make(map[string]string)
	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = n.FirstChild.Data
				}
			case atom.Meta:
				key, content := metaPair(n)
				if key != "" && content != "" {
					if _, seen := meta[key]; !seen {
						meta[key] = content
					}
				}
			case atom.Body:
				// Metadata lives in <head>; stop before the page body.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	p := &Preview{
		URL:         base.String(),
		Title:       first(meta["og:title"], meta["twitter:title"], title),
		Description: first(meta["og:description"], meta["twitter:description"], meta["description"]),
		SiteName:    meta["og:site_name"],
	}
	if canonical := meta["og:url"]; canonical != "" {
		if cu, err := base.Parse(canonical); err == nil && (cu.Scheme == "http" || cu.Scheme == "https") {
			p.URL = cu.String()
		}
	}
	if img := first(meta["og:image"], meta["og:image:url"], meta["twitter:image"]); img != "" {
		if iu, err := base.Parse(img); err == nil && (iu.Scheme == "http" || iu.Scheme == "https") {
			p.Image = iu.String()
		}
	}

	p.Title = clean(p.Title, maxTitleRunes)
	p.Description = clean(p.Description, maxDescRunes)
	p.SiteName = clean(p.SiteName, maxTitleRunes)
	if p.Title == "" {
		p.Title = base.Hostname()
	}
	return p, nil
}

func metaPair(n *html.Node) (key, content string) {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(a.Val))
			}
		case "content":
			content = a.Val
		}
	}
	return key, content
}

func first(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// clean strips markup, collapses whitespace and cuts to n runes.
func clean(s string, n int) string {
	s = strings.Join(strings.Fields(textPolicy.Sanitize(s)), " ")
	s = html.UnescapeString(s)
	if r := []rune(s); len(r) > n {
		s = string(r[:n])
	}
	return s
}
