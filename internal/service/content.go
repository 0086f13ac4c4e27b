// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown converts notice and newsletter bodies. Raw HTML in the source is
// dropped by goldmark; the result is sanitized again as user content.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var (
	ugcPolicy   = newUGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

func newUGCPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return ugcPolicy.Sanitize(buf.String()), nil
}

// SanitizeHTML cleans HTML from an untrusted source.
func SanitizeHTML(s string) string {
	return ugcPolicy.Sanitize(s)
}

// PlainText strips all markup from s and collapses whitespace.
func PlainText(s string) string {
	return strings.Join(strings.Fields(plainPolicy.Sanitize(s)), " ")
}

// Excerpt returns at most n runes of the plain text of s, cut at a word
// boundary when possible.
func Excerpt(s string, n int) string {
	text := PlainText(s)
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	cut := string(r[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
