package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/storage"
)

// MediaHandler serves stored media from buckets the app hosts itself.
// S3-backed buckets hand out their own public or presigned URLs instead.
type MediaHandler struct {
	buckets map[string]storage.Storage
	logger  *slog.Logger
}

// NewMediaHandler creates a MediaHandler serving the given buckets by name.
func NewMediaHandler(buckets map[string]storage.Storage, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		buckets: buckets,
		logger:  logger,
	}
}

// RegisterRoutes registers the media routes.
//
// Routes:
//   - GET /files/{bucket}/{key...} - Stream a stored object
func (h *MediaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /files/{bucket}/{key...}", h.Serve)
}

// Serve streams one object. Seekable objects honour Range requests so
// videos can be scrubbed.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	const op = "media.serve"

	bucket, ok := h.buckets[r.PathValue("bucket")]
	if !ok {
		NotFoundResponse(w, r, h.logger)
		return
	}
	key := r.PathValue("key")

	reader, info, err := bucket.Get(r.Context(), key)
	if err != nil {
		if storage.IsNotFound(err) || errors.Is(err, storage.ErrInvalidKey) {
			NotFoundResponse(w, r, h.logger)
			return
		}
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to retrieve file"))
		return
	}
	defer reader.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", storage.CacheControlPublic)

	if rs, ok := reader.(io.ReadSeeker); ok {
		http.ServeContent(w, r, key, info.LastModified, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream file", "key", key, "error", err)
	}
}
