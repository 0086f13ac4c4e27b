// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package linkpreview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/vcms-go/internal/cache"
)

const ogPage = `<!doctype html>
<html><head>
<title>Fallback title</title>
<meta property="og:title" content="Zomerfeest &amp; BBQ">
<meta property="og:description" content="Kom <b>gezellig</b>   langs.">
<meta property="og:image" content="/img/feest.jpg">
<meta property="og:site_name" content="Buurthuis">
<meta name="twitter:title" content="Twitter title">
</head><body><meta property="og:title" content="ignored"></body></html>`

func allowAll(_ context.Context, raw string) (*url.URL, error) {
	return url.Parse(raw)
}

func TestParse_OpenGraph(t *testing.T) {
	base, _ := url.Parse("https://buurthuis.example/agenda")
	p, err := Parse(strings.NewReader(ogPage), base)
	require.NoError(t, err)

	assert.Equal(t, "Zomerfeest & BBQ", p.Title)
	assert.Equal(t, "Kom gezellig langs.", p.Description)
	assert.Equal(t, "https://buurthuis.example/img/feest.jpg", p.Image)
	assert.Equal(t, "Buurthuis", p.SiteName)
	assert.Equal(t, "https://buurthuis.example/agenda", p.URL)
}

func TestParse_Fallbacks(t *testing.T) {
	base, _ := url.Parse("https://example.org/")

	p, err := Parse(strings.NewReader(`<html><head><title> Plain  page </title>
<meta name="description" content="Just a page"></head></html>`), base)
	require.NoError(t, err)
	assert.Equal(t, "Plain page", p.Title)
	assert.Equal(t, "Just a page", p.Description)
	assert.Empty(t, p.Image)

	p, err = Parse(strings.NewReader(`<html><body>nothing</body></html>`), base)
	require.NoError(t, err)
	assert.Equal(t, "example.org", p.Title, "host is the last resort title")
}

func TestParse_RejectsNonHTTPImage(t *testing.T) {
	base, _ := url.Parse("https://example.org/")
	p, err := Parse(strings.NewReader(`<head><meta property="og:image" content="javascript:alert(1)"></head>`), base)
	require.NoError(t, err)
	assert.Empty(t, p.Image)
}

func TestFetch_CachesResult(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(ogPage))
	}))
	defer srv.Close()

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	defer func() { _ = mem.Close() }()

	f := New(Options{Client: srv.Client(), Validate: allowAll, Cache: mem})
	for range 3 {
		p, err := f.Fetch(context.Background(), srv.URL+"/page")
		require.NoError(t, err)
		assert.Equal(t, "Zomerfeest & BBQ", p.Title)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(Options{Client: srv.Client(), Validate: allowAll})

	_, err := f.Fetch(context.Background(), srv.URL+"/json")
	assert.ErrorIs(t, err, ErrNotHTML)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestFetch_BlocksPrivateTargets(t *testing.T) {
	f := New(Options{})
	for _, raw := range []string{
		"http://127.0.0.1/",
		"http://localhost:8080/",
		"ftp://example.org/",
		"http://10.1.2.3/admin",
	} {
		_, err := f.Fetch(context.Background(), raw)
		assert.True(t, errors.Is(err, ErrBlockedURL), "%s: %v", raw, err)
	}
}

func TestFetch_BlocksRedirectToPrivate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data", http.StatusFound)
	}))
	defer srv.Close()

	// The first hop is allowed, redirects must pass the real validator.
	validate := func(ctx context.Context, raw string) (*url.URL, error) {
		if strings.HasPrefix(raw, srv.URL) {
			return url.Parse(raw)
		}
		return nil, errors.New("blocked")
	}
	f := New(Options{Client: srv.Client(), Validate: validate})

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect blocked")
}
