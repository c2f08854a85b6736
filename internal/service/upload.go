package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/metrics"
	"github.com/shaktiabhiyan/taskforce/internal/storage"
)

// =============================================================================
// Typed Failures
// =============================================================================

// UploadErrorKind classifies why an upload failed.
type UploadErrorKind string

const (
	UploadWrongType UploadErrorKind = "wrong_type" // MIME class mismatch
	UploadTooLarge  UploadErrorKind = "too_large"  // Over ceiling (after compression for photos)
	UploadAuth      UploadErrorKind = "auth"       // Storage rejected our credentials
	UploadNetwork   UploadErrorKind = "network"    // Storage unreachable
	UploadFailed    UploadErrorKind = "failed"     // Anything else
)

// UploadError is returned by UploadService. It carries enough to build a
// user-facing message but holds no user text itself.
type UploadError struct {
	Kind       UploadErrorKind
	Class      domain.MediaClass
	LimitBytes int64 // Set for UploadTooLarge
	Compressed bool  // UploadTooLarge was reached after compressing
	Err        error
}

func (e *UploadError) Error() string {
	msg := fmt.Sprintf("upload %s: %s", e.Class, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Interface Definition
// =============================================================================

// UploadService validates, optionally compresses and stores complaint media.
type UploadService interface {
	// UploadImage stores a photo. Oversized photos are compressed first;
	// undecodable photos are stored unmodified.
	UploadImage(ctx context.Context, a *domain.Attachment) (*StoredMedia, error)

	// UploadVideo stores a video. Oversized videos are rejected without a
	// network call.
	UploadVideo(ctx context.Context, a *domain.Attachment) (*StoredMedia, error)

	// Remove deletes a stored object from its bucket. Removing an object
	// that is already gone succeeds.
	Remove(ctx context.Context, m *StoredMedia) error
}

// StoredMedia identifies an uploaded object.
type StoredMedia struct {
	Class domain.MediaClass
	Key   string
	URL   string
}

// UploadConfig holds the size ceilings.
type UploadConfig struct {
	MaxImageBytes int64
	MaxVideoBytes int64
}

// =============================================================================
// Implementation
// =============================================================================

// uploadService implements UploadService.
type uploadService struct {
	photos     storage.Storage
	videos     storage.Storage
	compressor Compressor
	cfg        UploadConfig
	now        func() time.Time
	logger     *slog.Logger
}

// NewUploadService creates an UploadService writing photos and videos to
// their own buckets.
func NewUploadService(
	photos storage.Storage,
	videos storage.Storage,
	compressor Compressor,
	cfg UploadConfig,
	logger *slog.Logger,
) UploadService {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = domain.MBToBytes(domain.DefaultMaxImageMB)
	}
	if cfg.MaxVideoBytes <= 0 {
		cfg.MaxVideoBytes = domain.MBToBytes(domain.DefaultMaxVideoMB)
	}
	return &uploadService{
		photos:     photos,
		videos:     videos,
		compressor: compressor,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}
}

// UploadImage stores a photo.
func (s *uploadService) UploadImage(ctx context.Context, a *domain.Attachment) (*StoredMedia, error) {
	if a == nil || !domain.MediaImage.Matches(a.ContentType) {
		return nil, s.reject(&UploadError{Kind: UploadWrongType, Class: domain.MediaImage})
	}

	data := a.Data
	contentType := a.ContentType
	ext := a.Extension()

	if int64(len(data)) > s.cfg.MaxImageBytes {
		compressed, newType, err := s.compressor.Compress(data, domain.CompressMaxDimension)
		switch {
		case errors.Is(err, ErrUndecodable):
			metrics.Compressed("undecodable")
			s.logger.Warn("photo could not be decoded, uploading original",
				"filename", a.Filename,
				"content_type", a.ContentType,
				"size", len(data),
			)
		case err != nil:
			return nil, s.reject(&UploadError{Kind: UploadFailed, Class: domain.MediaImage, Err: err})
		default:
			s.logger.Debug("compressed photo",
				"from", domain.HumanMB(int64(len(data))),
				"to", domain.HumanMB(int64(len(compressed))),
			)
			if newType != contentType {
				ext = storage.ExtensionForContentType(newType)
			}
			data, contentType = compressed, newType
		}

		if int64(len(data)) > s.cfg.MaxImageBytes {
			metrics.Compressed("still_too_large")
			return nil, s.reject(&UploadError{
				Kind:       UploadTooLarge,
				Class:      domain.MediaImage,
				LimitBytes: s.cfg.MaxImageBytes,
				Compressed: true,
			})
		}
		metrics.Compressed("fit")
	}

	return s.store(ctx, domain.MediaImage, ext, contentType, data)
}

// UploadVideo stores a video.
func (s *uploadService) UploadVideo(ctx context.Context, a *domain.Attachment) (*StoredMedia, error) {
	if a == nil || !domain.MediaVideo.Matches(a.ContentType) {
		return nil, s.reject(&UploadError{Kind: UploadWrongType, Class: domain.MediaVideo})
	}
	if a.Size() > s.cfg.MaxVideoBytes {
		return nil, s.reject(&UploadError{
			Kind:       UploadTooLarge,
			Class:      domain.MediaVideo,
			LimitBytes: s.cfg.MaxVideoBytes,
		})
	}

	return s.store(ctx, domain.MediaVideo, a.Extension(), a.ContentType, a.Data)
}

// Remove deletes a stored object from its bucket.
func (s *uploadService) Remove(ctx context.Context, m *StoredMedia) error {
	if m == nil {
		return nil
	}
	bucket, _ := s.bucket(m.Class)
	if err := bucket.Delete(ctx, m.Key); err != nil {
		return fmt.Errorf("remove %s %q: %w", m.Class, m.Key, err)
	}
	metrics.UploadRemoved(string(m.Class))
	s.logger.Info("removed media", "class", m.Class, "key", m.Key)
	return nil
}

// bucket returns the storage and size ceiling for a media class.
func (s *uploadService) bucket(class domain.MediaClass) (storage.Storage, int64) {
	if class == domain.MediaVideo {
		return s.videos, s.cfg.MaxVideoBytes
	}
	return s.photos, s.cfg.MaxImageBytes
}

// store writes data under a fresh key and resolves the public URL.
func (s *uploadService) store(ctx context.Context, class domain.MediaClass, ext, contentType string, data []byte) (*StoredMedia, error) {
	bucket, limit := s.bucket(class)
	key := storage.MediaKey(class.KeyPrefix(), ext, s.now())

	err := bucket.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType:  storage.ContentTypeOrWildcard(contentType, string(class)),
		CacheControl: storage.CacheControlPublic,
		MaxSize:      limit,
		Overwrite:    false,
	})
	if err != nil {
		return nil, s.reject(storageFailure(class, limit, err))
	}

	url, err := bucket.URL(ctx, key, 0)
	if err != nil {
		return nil, s.reject(storageFailure(class, limit, err))
	}

	metrics.UploadSucceeded(string(class), int64(len(data)))
	s.logger.Info("stored media", "class", class, "key", key, "size", len(data))
	return &StoredMedia{Class: class, Key: key, URL: url}, nil
}

func (s *uploadService) reject(e *UploadError) error {
	metrics.UploadFailed(string(e.Class), string(e.Kind))
	if e.Err != nil {
		s.logger.Error("media upload failed", "class", e.Class, "kind", e.Kind, "error", e.Err)
	}
	return e
}

func storageFailure(class domain.MediaClass, limit int64, err error) *UploadError {
	ue := &UploadError{Kind: classifyStorageError(err), Class: class, Err: err}
	if ue.Kind == UploadTooLarge {
		ue.LimitBytes = limit
	}
	return ue
}

// classifyStorageError maps storage failures onto upload kinds.
func classifyStorageError(err error) UploadErrorKind {
	switch {
	case storage.IsAccessDenied(err):
		return UploadAuth
	case storage.IsUnreachable(err), errors.Is(err, context.DeadlineExceeded):
		return UploadNetwork
	case storage.IsTooLarge(err):
		return UploadTooLarge
	}
	return UploadFailed
}
