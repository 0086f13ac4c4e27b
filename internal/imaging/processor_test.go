// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/olegiv/vcms-go/internal/model"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestIsImage(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{model.MimeTypeJPEG, true},
		{model.MimeTypePNG, true},
		{model.MimeTypeGIF, true},
		{model.MimeTypeWebP, true},
		{model.MimeTypePDF, false},
		{"application/octet-stream", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsImage(tt.mime); got != tt.want {
			t.Errorf("IsImage(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}

func TestSniffFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", pngBytes(t, 2, 2), "png"},
		{"jpeg", jpegBytes(t, 2, 2), "jpeg"},
		{"gif", []byte("GIF89a\x01\x00\x01\x00"), "gif"},
		{"tiff refused", []byte("II*\x00\x08\x00\x00\x00"), ""},
		{"text", []byte("hello"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffFormat(tt.data); got != tt.want {
				t.Errorf("SniffFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatFromName(t *testing.T) {
	tests := map[string]string{
		"zomer.JPG":  "jpeg",
		"logo.png":   "png",
		"anim.gif":   "gif",
		"photo.webp": "webp",
		"noext":      "jpeg",
	}
	for name, want := range tests {
		if got := formatFromName(name); got != want {
			t.Errorf("formatFromName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestMimeForFormat(t *testing.T) {
	if got := mimeForFormat("webp"); got != model.MimeTypeJPEG {
		t.Errorf("webp is re-encoded as JPEG, got %q", got)
	}
	if got := mimeForFormat("png"); got != model.MimeTypePNG {
		t.Errorf("png = %q", got)
	}
}

func TestOrient(t *testing.T) {
	src := testImage(40, 20)
	tests := []struct {
		orientation int
		w, h        int
	}{
		{1, 40, 20},
		{2, 40, 20},
		{3, 40, 20},
		{4, 40, 20},
		{5, 20, 40},
		{6, 20, 40},
		{7, 20, 40},
		{8, 20, 40},
		{0, 40, 20},
	}
	for _, tt := range tests {
		b := orient(src, tt.orientation).Bounds()
		if b.Dx() != tt.w || b.Dy() != tt.h {
			t.Errorf("orientation %d: got %dx%d, want %dx%d", tt.orientation, b.Dx(), b.Dy(), tt.w, tt.h)
		}
	}
}

func TestStoreOriginalAndVariants(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)

	orig, err := p.StoreOriginal(bytes.NewReader(pngBytes(t, 1600, 1200)), "abc", "zomer.png")
	if err != nil {
		t.Fatalf("StoreOriginal: %v", err)
	}
	if orig.Width != 1600 || orig.Height != 1200 {
		t.Errorf("size = %dx%d", orig.Width, orig.Height)
	}
	if orig.MimeType != model.MimeTypePNG {
		t.Errorf("MimeType = %q", orig.MimeType)
	}
	if _, err := os.Stat(filepath.Join(dir, OriginalsDir, "abc", "zomer.png")); err != nil {
		t.Fatalf("original not written: %v", err)
	}

	variants, err := p.RenderVariants(orig.Path, "abc", "zomer.png")
	if err != nil {
		t.Fatalf("RenderVariants: %v", err)
	}
	if len(variants) != len(model.ImageVariants) {
		t.Fatalf("got %d variants, want %d", len(variants), len(model.ImageVariants))
	}
	for _, v := range variants {
		cfg := model.ImageVariants[v.Variant]
		if v.Width > cfg.Width || v.Height > cfg.Height {
			t.Errorf("%s is %dx%d, exceeds %dx%d", v.Variant, v.Width, v.Height, cfg.Width, cfg.Height)
		}
		if cfg.Crop && (v.Width != cfg.Width || v.Height != cfg.Height) {
			t.Errorf("%s should be cropped to %dx%d, got %dx%d", v.Variant, cfg.Width, cfg.Height, v.Width, v.Height)
		}
	}

	if err := p.Remove("abc"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, OriginalsDir, "abc")); !os.IsNotExist(err) {
		t.Errorf("original dir still present: %v", err)
	}
}

func TestRenderVariant_SkipsSmallSource(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)

	orig, err := p.StoreOriginal(bytes.NewReader(jpegBytes(t, 100, 80)), "small", "klein.jpg")
	if err != nil {
		t.Fatalf("StoreOriginal: %v", err)
	}
	got, err := p.RenderVariant(orig.Path, "small", "klein.jpg", model.VariantMedium, model.ImageVariants[model.VariantMedium])
	if err != nil {
		t.Fatalf("RenderVariant: %v", err)
	}
	if got != nil {
		t.Errorf("expected no medium variant for a small source, got %+v", got)
	}
}

func TestStoreOriginal_RejectsNonImage(t *testing.T) {
	p := NewProcessor(t.TempDir())
	if _, err := p.StoreOriginal(bytes.NewReader([]byte("%PDF-1.4")), "x", "doc.pdf"); err != ErrUnsupportedFormat {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestWrite_RefusesEscape(t *testing.T) {
	p := NewProcessor(t.TempDir())
	if _, err := p.write("../outside", "x.png", []byte("x")); err == nil {
		t.Error("expected error for path outside the upload dir")
	}
	if _, err := p.write("originals/ok", "..", []byte("x")); err == nil {
		t.Error("expected error for filename ..")
	}
}
