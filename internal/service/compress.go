// Package service contains the business logic behind the intake forms and
// the chatbot: the upload pipeline, image compression and the submission
// coordinators.
//
// This file implements photo compression.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
)

// ErrUndecodable is returned by Compress when the data is not an image the
// decoder understands.
var ErrUndecodable = errors.New("image could not be decoded")

// =============================================================================
// Interface Definition
// =============================================================================

// Compressor shrinks photos before upload.
type Compressor interface {
	// Compress scales the image so its longer edge is at most maxDimension
	// and re-encodes it. It returns the new bytes and their content type.
	// Returns ErrUndecodable if data cannot be decoded.
	Compress(data []byte, maxDimension int) ([]byte, string, error)
}

// =============================================================================
// Implementation
// =============================================================================

// imagingCompressor implements Compressor using the imaging library.
type imagingCompressor struct {
	quality int
}

// NewImagingCompressor creates a Compressor that re-encodes at quality
// (1-100, JPEG only).
func NewImagingCompressor(quality int) Compressor {
	if quality <= 0 || quality > 100 {
		quality = domain.CompressQuality
	}
	return &imagingCompressor{quality: quality}
}

// encodeFormats maps decoder names to the format written back out. Anything
// else is re-encoded as JPEG.
var encodeFormats = map[string]struct {
	format      imaging.Format
	contentType string
}{
	"jpeg": {imaging.JPEG, "image/jpeg"},
	"png":  {imaging.PNG, "image/png"},
	"gif":  {imaging.GIF, "image/gif"},
	"bmp":  {imaging.BMP, "image/bmp"},
	"tiff": {imaging.TIFF, "image/tiff"},
}

// Compress decodes data, fits it within maxDimension x maxDimension and
// encodes it in the source format where possible. Images already within
// bounds are re-encoded without resizing.
func (c *imagingCompressor) Compress(data []byte, maxDimension int) ([]byte, string, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	b := img.Bounds()
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	out, ok := encodeFormats[name]
	if !ok {
		out = encodeFormats["jpeg"]
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, out.format, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), out.contentType, nil
}
