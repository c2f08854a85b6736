package domain

import (
	"fmt"
	"strings"
)

// =============================================================================
// Media Classes
// =============================================================================

// MediaClass is the declared kind of an attachment.
type MediaClass string

const (
	MediaImage MediaClass = "image"
	MediaVideo MediaClass = "video"
)

// Media constraints
const (
	// DefaultMaxImageMB is the photo ceiling when MAX_IMAGE_MB is unset.
	DefaultMaxImageMB = 10

	// DefaultMaxVideoMB is the video ceiling when MAX_VIDEO_MB is unset.
	DefaultMaxVideoMB = 50

	// CompressMaxDimension bounds the longer edge of a compressed photo.
	CompressMaxDimension = 1600

	// CompressQuality is the JPEG quality used when re-encoding (0.8).
	CompressQuality = 80

	bytesPerMB = 1024 * 1024
)

// MIMEPrefix returns the content-type prefix for the class ("image/").
func (c MediaClass) MIMEPrefix() string {
	return string(c) + "/"
}

// KeyPrefix returns the storage key prefix for the class.
func (c MediaClass) KeyPrefix() string {
	switch c {
	case MediaImage:
		return "photos"
	case MediaVideo:
		return "videos"
	}
	return "files"
}

// Matches reports whether contentType belongs to this class, by MIME prefix.
func (c MediaClass) Matches(contentType string) bool {
	base := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	return strings.HasPrefix(base, c.MIMEPrefix())
}

// MBToBytes converts a megabyte ceiling to bytes.
func MBToBytes(mb int) int64 {
	return int64(mb) * bytesPerMB
}

// HumanMB renders a byte count as "1.5 MB".
func HumanMB(n int64) string {
	return fmt.Sprintf("%.1f MB", float64(n)/bytesPerMB)
}

// =============================================================================
// Attachment
// =============================================================================

// Attachment is a file selected by the user, held in memory until it is
// uploaded. It is owned by a single wizard and discarded with it.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes.
func (a *Attachment) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// Extension returns the lower-cased filename extension without the dot,
// or "bin" when there is none.
func (a *Attachment) Extension() string {
	name := a.Filename
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return "bin"
	}
	return strings.ToLower(name[i+1:])
}
