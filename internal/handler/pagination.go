// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ErrMissingParam is returned when a required URL parameter is empty.
var ErrMissingParam = errors.New("missing URL parameter")

// Page is a parsed page/per_page pair.
type Page struct {
	Number  int
	PerPage int
}

// Limit returns the SQL LIMIT for the page.
func (p Page) Limit() int64 { return int64(p.PerPage) }

// Offset returns the SQL OFFSET for the page.
func (p Page) Offset() int64 { return int64((p.Number - 1) * p.PerPage) }

// ParsePage reads page and per_page from the query string.
func ParsePage(r *http.Request, defaultPerPage, maxPerPage int) Page {
	return Page{
		Number:  ParsePageParam(r),
		PerPage: ParsePerPageParam(r, defaultPerPage, maxPerPage),
	}
}

// CalculateTotalPages returns the number of pages needed for totalItems,
// never less than one.
func CalculateTotalPages(totalItems, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	pages := (totalItems + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

// ParsePageParam parses the "page" query parameter, defaulting to 1.
func ParsePageParam(r *http.Request) int {
	return ParseIntParam(r, "page", 1, 1, 0)
}

// ParsePerPageParam parses the "per_page" query parameter.
// Values outside [1, maxPerPage] fall back to defaultPerPage.
func ParsePerPageParam(r *http.Request, defaultPerPage, maxPerPage int) int {
	return ParseIntParam(r, "per_page", defaultPerPage, 1, maxPerPage)
}

// ParseIntParam parses an integer query parameter.
// Returns defaultVal if the parameter is missing or invalid.
// If minVal > 0, values below minVal return defaultVal.
// If maxVal > 0, values above maxVal return defaultVal.
func ParseIntParam(r *http.Request, param string, defaultVal, minVal, maxVal int) int {
	str := r.URL.Query().Get(param)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if minVal > 0 && val < minVal {
		return defaultVal
	}
	if maxVal > 0 && val > maxVal {
		return defaultVal
	}
	return val
}

// ParseIDParam parses the chi "id" URL parameter.
func ParseIDParam(r *http.Request) (int64, error) {
	return ParseURLParamInt64(r, "id")
}

// ParseURLParamInt64 parses a named chi URL parameter as int64.
func ParseURLParamInt64(r *http.Request, name string) (int64, error) {
	str, err := ParseURLParam(r, name)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(str, 10, 64)
}

// ParseURLParam returns a named chi URL parameter, or ErrMissingParam.
func ParseURLParam(r *http.Request, name string) (string, error) {
	str := chi.URLParam(r, name)
	if str == "" {
		return "", ErrMissingParam
	}
	return str, nil
}
