// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging stores uploaded photos upright and renders the thumbnail
// and medium variants shown in photo albums.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // registers the WebP decoder

	"github.com/olegiv/vcms-go/internal/model"
)

// OriginalsDir is the directory under the upload root holding originals.
const OriginalsDir = "originals"

// ErrUnsupportedFormat is returned for data that is not JPEG, PNG, GIF or WebP.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Stored describes a file written by the processor.
type Stored struct {
	Variant  string // "" for the original
	Width    int
	Height   int
	MimeType string
	Size     int64
	Path     string
}

// Processor writes images below an upload root.
type Processor struct {
	root string
}

// NewProcessor returns a processor rooted at dir.
func NewProcessor(dir string) *Processor {
	return &Processor{root: dir}
}

// StoreOriginal decodes an uploaded image, rotates it according to its EXIF
// orientation and saves it without metadata as originals/{uuid}/{filename}.
func (p *Processor) StoreOriginal(r io.Reader, uuid, filename string) (*Stored, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	format := SniffFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = orient(img, exifOrientation(bytes.NewReader(data)))

	encoded, err := encode(img, format, 95)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	path, err := p.write(filepath.Join(OriginalsDir, uuid), filename, encoded)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &Stored{
		Width:    b.Dx(),
		Height:   b.Dy(),
		MimeType: mimeForFormat(format),
		Size:     int64(len(encoded)),
		Path:     path,
	}, nil
}

// RenderVariant writes one resized copy of src. It returns nil without error
// when src already fits a non-cropping variant.
func (p *Processor) RenderVariant(src, uuid, filename, variant string, cfg model.ImageVariantConfig) (*Stored, error) {
	img, err := imaging.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", src, err)
	}

	b := img.Bounds()
	if !cfg.Crop && b.Dx() <= cfg.Width && b.Dy() <= cfg.Height {
		return nil, nil
	}

	var out image.Image
	if cfg.Crop {
		out = imaging.Fill(img, cfg.Width, cfg.Height, imaging.Center, imaging.Lanczos)
	} else {
		out = imaging.Fit(img, cfg.Width, cfg.Height, imaging.Lanczos)
	}

	encoded, err := encode(out, formatFromName(filename), cfg.Quality)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", variant, err)
	}

	path, err := p.write(filepath.Join(variant, uuid), filename, encoded)
	if err != nil {
		return nil, err
	}

	ob := out.Bounds()
	return &Stored{
		Variant:  variant,
		Width:    ob.Dx(),
		Height:   ob.Dy(),
		MimeType: mimeForFormat(formatFromName(filename)),
		Size:     int64(len(encoded)),
		Path:     path,
	}, nil
}

// RenderVariants writes every configured variant. Individual failures are
// collected; an error is returned only when nothing could be rendered.
func (p *Processor) RenderVariants(src, uuid, filename string) ([]*Stored, error) {
	var (
		out  []*Stored
		errs []error
	)
	for name, cfg := range model.ImageVariants {
		s, err := p.RenderVariant(src, uuid, filename, name, cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Remove deletes the original and all variants of uuid.
func (p *Processor) Remove(uuid string) error {
	dirs := []string{OriginalsDir}
	for name := range model.ImageVariants {
		dirs = append(dirs, name)
	}
	for _, d := range dirs {
		if err := os.RemoveAll(filepath.Join(p.root, d, uuid)); err != nil {
			return fmt.Errorf("removing %s/%s: %w", d, uuid, err)
		}
	}
	return nil
}

// IsImage reports whether the processor can decode mimeType.
func IsImage(mimeType string) bool {
	switch mimeType {
	case model.MimeTypeJPEG, model.MimeTypePNG, model.MimeTypeGIF, model.MimeTypeWebP:
		return true
	}
	return false
}

// SniffFormat returns "jpeg", "png", "gif" or "webp" for image data, or "".
// TIFF is refused outright (CVE-2023-36308).
func SniffFormat(data []byte) string {
	ct := http.DetectContentType(data)
	switch {
	case strings.Contains(ct, "tiff"):
		return ""
	case strings.Contains(ct, "jpeg"):
		return "jpeg"
	case strings.Contains(ct, "png"):
		return "png"
	case strings.Contains(ct, "gif"):
		return "gif"
	case strings.Contains(ct, "webp"):
		return "webp"
	}
	return ""
}

func formatFromName(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	}
	return "jpeg"
}

// mimeForFormat reports the MIME type of the bytes encode produces. WebP
// input is written back as JPEG.
func mimeForFormat(format string) string {
	switch format {
	case "png":
		return model.MimeTypePNG
	case "gif":
		return model.MimeTypeGIF
	}
	return model.MimeTypeJPEG
}

func exifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}

// orient undoes EXIF orientations 2 through 8.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// encode writes img as format. There is no pure Go WebP encoder, so WebP
// and unknown formats become JPEG.
func encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// write stores data as root/subDir/filename, refusing anything that would
// land outside root.
func (p *Processor) write(subDir, filename string, data []byte) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}

	root, err := filepath.Abs(p.root)
	if err != nil {
		return "", fmt.Errorf("resolving upload dir: %w", err)
	}
	dir := filepath.Join(root, filepath.Clean(subDir))
	if rel, err := filepath.Rel(root, dir); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes upload dir", subDir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
