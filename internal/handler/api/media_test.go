// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/vcms-go/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func newUploadRequest(t *testing.T, field, filename string, content []byte, alt string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if alt != "" {
		_ = mw.WriteField("alt", alt)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(content)
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/beheer/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadMedia_Image(t *testing.T) {
	db, h := testSetup(t)
	admin := createTestUser(t, db, "anna@example.nl", model.RoleBeheerder)

	req := asUser(newUploadRequest(t, "file", "Zomer Feest.png", pngBytes(t, 64, 48), "Kinderen op het plein"), admin)
	w := executeHandler(t, h.UploadMedia, req)

	assertStatusCode(t, w, http.StatusCreated)
	m := unmarshalData[MediaResponse](t, w)
	if m.MimeType != "image/png" || m.Alt != "Kinderen op het plein" {
		t.Errorf("media = %+v", m.MediaFile)
	}
	if m.Width == nil || *m.Width != 64 || m.Height == nil || *m.Height != 48 {
		t.Errorf("dimensions = %v x %v", m.Width, m.Height)
	}
	if m.Filename != "Zomer-Feest.png" || m.URL == "" {
		t.Errorf("filename = %q, url = %q", m.Filename, m.URL)
	}

	stored, err := h.queries.GetMedia(req.Context(), m.ID)
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	if !stored.UploadedBy.Valid || stored.UploadedBy.Int64 != admin.ID {
		t.Errorf("uploaded_by = %+v", stored.UploadedBy)
	}

	w = executeHandler(t, h.ListMedia, newGetRequest(t, "/beheer/media", nil))
	if items, _ := unmarshalList[MediaResponse](t, w); len(items) != 1 {
		t.Errorf("listed %d media, want 1", len(items))
	}

	w = executeHandler(t, h.DeleteMedia, newDeleteRequest(t, "/beheer/media/x", idParam(m.ID)))
	assertStatusCode(t, w, http.StatusNoContent)
	w = executeHandler(t, h.GetMedia, newGetRequest(t, "/beheer/media/x", idParam(m.ID)))
	assertStatusCode(t, w, http.StatusNotFound)
}

func TestUploadMedia_Rejections(t *testing.T) {
	_, h := testSetup(t)

	tests := []struct {
		name     string
		field    string
		filename string
		content  []byte
		wantCode int
	}{
		{"wrong field", "upload", "a.png", pngBytes(t, 4, 4), http.StatusBadRequest},
		{"script disguised as image", "file", "evil.png", []byte("#!/bin/sh\nrm -rf /\n"), http.StatusUnsupportedMediaType},
		{"html", "file", "page.html", []byte("<!doctype html><html><body>x</body></html>"), http.StatusUnsupportedMediaType},
		{"too large", "file", "big.pdf", append([]byte("%PDF-1.4\n"), make([]byte, 3<<19)...), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := executeHandler(t, h.UploadMedia, newUploadRequest(t, tt.field, tt.filename, tt.content, ""))
			assertStatusCode(t, w, tt.wantCode)
		})
	}

	w := executeHandler(t, h.ListMedia, newGetRequest(t, "/beheer/media", nil))
	if items, _ := unmarshalList[MediaResponse](t, w); len(items) != 0 {
		t.Errorf("rejected uploads were stored: %d", len(items))
	}
}

func TestUploadMedia_NotMultipart(t *testing.T) {
	_, h := testSetup(t)
	w := executeHandler(t, h.UploadMedia, newJSONRequest(t, http.MethodPost, "/beheer/media", `{}`, nil))
	assertStatusCode(t, w, http.StatusBadRequest)
}
