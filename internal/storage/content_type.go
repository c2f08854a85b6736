package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// =============================================================================
// Content Type Detection
// =============================================================================

// DetectContentType determines the MIME type of a file.
//
// Detection priority:
//  1. providedType, if non-empty
//  2. the filename extension, media types first, then mime.TypeByExtension
//  3. sniffing the first 512 bytes of data, if given
//  4. "application/octet-stream"
func DetectContentType(providedType, filename string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType, ok := mediaTypes[ext]; ok {
		return contentType
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if data != nil {
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// mediaTypes resolves upload extensions without relying on the host's
// mime.types file.
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".3gp":  "video/3gpp",
}

// ContentTypeOrWildcard returns contentType, or "<class>/*" when the client
// sent none. class is "image" or "video".
func ContentTypeOrWildcard(contentType, class string) string {
	if strings.TrimSpace(contentType) != "" {
		return contentType
	}
	return class + "/*"
}

// baseType strips parameters and normalises case.
func baseType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}

// =============================================================================
// File Extension Helpers
// =============================================================================

// ExtensionForContentType returns a file extension (without the dot) for a
// MIME type, or "bin" when none is known.
func ExtensionForContentType(contentType string) string {
	known := map[string]string{
		"image/jpeg":      "jpg",
		"image/jpg":       "jpg",
		"image/png":       "png",
		"image/gif":       "gif",
		"image/webp":      "webp",
		"image/bmp":       "bmp",
		"image/tiff":      "tiff",
		"video/mp4":       "mp4",
		"video/quicktime": "mov",
		"video/webm":      "webm",
		"video/3gpp":      "3gp",
	}

	bt := baseType(contentType)
	if ext, ok := known[bt]; ok {
		return ext
	}

	exts, err := mime.ExtensionsByType(bt)
	if err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}

	return "bin"
}
