// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strings"

// Image variant types generated for uploaded photos.
const (
	VariantThumbnail = "thumbnail"
	VariantMedium    = "medium"
)

// Supported MIME types.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
	MimeTypeGIF  = "image/gif"
	MimeTypeWebP = "image/webp"
	MimeTypePDF  = "application/pdf"
)

// AllowedUploadTypes lists MIME types accepted by the media upload endpoint.
var AllowedUploadTypes = map[string]bool{
	MimeTypeJPEG: true,
	MimeTypePNG:  true,
	MimeTypeGIF:  true,
	MimeTypeWebP: true,
	MimeTypePDF:  true,
}

// ImageVariantConfig defines settings for generating image variants.
type ImageVariantConfig struct {
	Width   int
	Height  int
	Quality int
	Crop    bool // crop to exact size instead of fitting within bounds
}

// ImageVariants defines the variants created for every uploaded photo.
var ImageVariants = map[string]ImageVariantConfig{
	VariantThumbnail: {Width: 320, Height: 320, Quality: 80, Crop: true},
	VariantMedium:    {Width: 1280, Height: 960, Quality: 85, Crop: false},
}

// IsImageMime reports whether the MIME type is an image.
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
