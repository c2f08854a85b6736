// Package storage provides object storage for uploaded complaint media.
//
// The Storage interface has two implementations:
//   - LocalStorage: files on disk, served by the app itself (development)
//   - S3Storage: any S3-compatible endpoint (Supabase Storage, Cloudflare R2)
//
// One Storage instance represents one logical bucket. The complaint pipeline
// uses a photos bucket and a videos bucket.
//
// Chatbot attachments go to a third-party unsigned upload endpoint through
// CloudinaryUploader instead.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the interface for file storage operations.
//
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at the specified key with the given options.
	// Returns ErrKeyExists if the key is taken and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key. The caller must close the
	// returned reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for the object. expires == 0 asks for the permanent
	// public URL; otherwise a presigned URL valid for that duration.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type of the object. Detected from the key
	// extension when empty.
	ContentType string

	// CacheControl is sent as the Cache-Control header of the object,
	// e.g. "max-age=3600". Ignored by LocalStorage.
	CacheControl string

	// MaxSize rejects payloads larger than this many bytes with ErrTooLarge.
	// Zero means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration Types
// =============================================================================

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored,
	// e.g. "./storage/complaints-photos".
	BasePath string

	// BaseURL is the public URL prefix for the files,
	// e.g. "http://localhost:8080/files/complaints-photos".
	BaseURL string
}

// S3Config holds configuration for an S3-compatible bucket.
type S3Config struct {
	// Endpoint is the S3 API endpoint. For Supabase this is
	// "https://<project>.supabase.co/storage/v1/s3"; for R2
	// "https://<account>.r2.cloudflarestorage.com".
	Endpoint string

	// Region is the signing region. Defaults to "auto".
	Region string

	AccessKeyID     string
	SecretAccessKey string

	// Bucket is the bucket name, e.g. "complaints-photos".
	Bucket string

	// PublicURL is the public object URL prefix for the bucket. For Supabase
	// public buckets: "https://<project>.supabase.co/storage/v1/object/public/<bucket>".
	// If empty, URL returns presigned links.
	PublicURL string

	// PathStyle addresses the bucket in the path rather than the host name.
	// Required by Supabase and most self-hosted gateways.
	PathStyle bool
}

// =============================================================================
// Provider Constants
// =============================================================================

const (
	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderS3 identifies an S3-compatible storage provider.
	ProviderS3 = "s3"
)

// Bucket names used by the complaint pipeline.
const (
	BucketPhotos = "complaints-photos"
	BucketVideos = "complaints-videos"
)

// CacheControlPublic is applied to uploaded media.
const CacheControlPublic = "max-age=3600"

// =============================================================================
// Key Generation Helpers
// =============================================================================

// MediaKey generates a collision-resistant key for an uploaded file.
// Format: {prefix}/{unixMillis}-{random}.{ext}
//
// Example: "photos/1741602330123-3f2a9c1be04d.jpg"
func MediaKey(prefix, ext string, now time.Time) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s/%d-%s.%s", prefix, now.UnixMilli(), random, ext)
}

// readLimited buffers data, failing with ErrTooLarge once more than max
// bytes arrive. max <= 0 means no limit.
func readLimited(data io.Reader, max int64) (*bytes.Reader, error) {
	var r io.Reader = data
	if max > 0 {
		r = io.LimitReader(data, max+1)
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if max > 0 && int64(len(buf)) > max {
		return nil, ErrTooLarge
	}
	return bytes.NewReader(buf), nil
}
