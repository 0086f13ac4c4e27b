// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/vcms-go/internal/imaging"
	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/util"
)

// DefaultMaxUploadSize applies when no limit is configured.
const DefaultMaxUploadSize = 20 << 20

// Upload errors reported to the client as validation failures.
var (
	ErrFileTooLarge    = errors.New("file exceeds the upload limit")
	ErrFileTypeRefused = errors.New("file type is not allowed")
)

// Upload is one incoming file.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
	Alt      string
	UserID   int64
}

// MediaFile is a stored media row with its public URLs.
type MediaFile struct {
	store.Medium
	URL      string            `json:"url"`
	Variants map[string]string `json:"variants,omitempty"`
}

// MediaService stores uploads on disk and in the media table.
type MediaService struct {
	queries   *store.Queries
	processor *imaging.Processor
	dir       string
	maxSize   int64
	now       func() time.Time
}

// NewMediaService stores files below dir, refusing files larger than maxSize bytes.
func NewMediaService(db *sql.DB, dir string, maxSize int64) *MediaService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &MediaService{
		queries:   store.New(db),
		processor: imaging.NewProcessor(dir),
		dir:       dir,
		maxSize:   maxSize,
		now:       time.Now,
	}
}

// MaxSize returns the upload limit in bytes.
func (s *MediaService) MaxSize() int64 { return s.maxSize }

// Save validates and stores an upload. Images are re-encoded upright and
// get thumbnail and medium variants; other allowed types are copied as is.
func (s *MediaService) Save(ctx context.Context, up Upload) (*MediaFile, error) {
	if up.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	filename, err := util.SafeFilename(up.Filename)
	if err != nil {
		return nil, err
	}

	// Sniff the real type from the first bytes rather than trusting the client.
	head := make([]byte, 512)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]
	mimeType := detectMime(head, filename)
	if !model.AllowedUploadTypes[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrFileTypeRefused, mimeType)
	}

	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), up.Body), s.maxSize+1)
	id := uuid.NewString()

	params := store.CreateMediaParams{
		Uuid:       id,
		Filename:   filename,
		MimeType:   mimeType,
		Alt:        strings.TrimSpace(up.Alt),
		UploadedBy: util.NullInt64FromPtr(&up.UserID),
		CreatedAt:  s.now(),
	}

	var variants []*imaging.Stored
	if imaging.IsImage(mimeType) {
		orig, err := s.processor.StoreOriginal(body, id, filename)
		if err != nil {
			_ = s.processor.Remove(id)
			return nil, fmt.Errorf("processing image: %w", err)
		}
		params.MimeType = orig.MimeType
		params.Size = orig.Size
		params.Width = sql.NullInt64{Int64: int64(orig.Width), Valid: true}
		params.Height = sql.NullInt64{Int64: int64(orig.Height), Valid: true}

		variants, err = s.processor.RenderVariants(orig.Path, id, filename)
		if err != nil {
			slog.Warn("image variants failed", "uuid", id, "error", err)
		}
	} else {
		size, err := s.copyFile(body, id, filename)
		if err != nil {
			return nil, err
		}
		params.Size = size
	}

	if params.Size > s.maxSize {
		_ = s.processor.Remove(id)
		return nil, ErrFileTooLarge
	}

	m, err := s.queries.CreateMedia(ctx, params)
	if err != nil {
		_ = s.processor.Remove(id)
		return nil, fmt.Errorf("creating media record: %w", err)
	}

	out := s.describe(m)
	for _, v := range variants {
		if out.Variants == nil {
			out.Variants = make(map[string]string)
		}
		out.Variants[v.Variant] = s.URL(m, v.Variant)
	}
	return out, nil
}

// Get loads one media item.
func (s *MediaService) Get(ctx context.Context, id int64) (*MediaFile, error) {
	m, err := s.queries.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.describe(m), nil
}

// List returns media newest first.
func (s *MediaService) List(ctx context.Context, limit, offset int64) ([]*MediaFile, error) {
	items, err := s.queries.ListMedia(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*MediaFile, 0, len(items))
	for _, m := range items {
		out = append(out, s.describe(m))
	}
	return out, nil
}

// Delete removes the row first, then the files. A failure to remove files
// is logged, not returned.
func (s *MediaService) Delete(ctx context.Context, id int64) error {
	m, err := s.queries.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	if err := s.queries.DeleteMedia(ctx, id); err != nil {
		return fmt.Errorf("deleting media record: %w", err)
	}
	if err := s.processor.Remove(m.Uuid); err != nil {
		slog.Warn("media files not removed", "uuid", m.Uuid, "error", err)
	}
	return nil
}

// URL returns the public path of the original or of a variant.
func (s *MediaService) URL(m store.Medium, variant string) string {
	if variant == "" {
		variant = imaging.OriginalsDir
	}
	return fmt.Sprintf("/uploads/%s/%s/%s", variant, m.Uuid, m.Filename)
}

// describe attaches URLs for the original and any variant present on disk.
func (s *MediaService) describe(m store.Medium) *MediaFile {
	out := &MediaFile{Medium: m, URL: s.URL(m, "")}
	if !imaging.IsImage(m.MimeType) {
		return out
	}
	for name := range model.ImageVariants {
		if _, err := os.Stat(filepath.Join(s.dir, name, m.Uuid, m.Filename)); err == nil {
			if out.Variants == nil {
				out.Variants = make(map[string]string)
			}
			out.Variants[name] = s.URL(m, name)
		}
	}
	return out
}

func (s *MediaService) copyFile(r io.Reader, id, filename string) (int64, error) {
	path, err := util.SafeJoin(s.dir, imaging.OriginalsDir, id, filename)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating upload dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return size, nil
}

// detectMime prefers the sniffed content type and falls back to the
// extension when sniffing is inconclusive. Image types are only ever taken
// from the content.
func detectMime(head []byte, filename string) string {
	sniffed := http.DetectContentType(head)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed != "application/octet-stream" && sniffed != "text/plain" {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}
		if strings.HasPrefix(byExt, "image/") {
			return sniffed
		}
		return byExt
	}
	return sniffed
}
