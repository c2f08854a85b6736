package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/middleware"
	"github.com/shaktiabhiyan/taskforce/internal/storage"
)

// maxJSONBody bounds answer and message bodies.
const maxJSONBody = 64 << 10

// multipartMemory is held in memory before parts spill to disk.
const multipartMemory = 32 << 20

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, op string) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.TooLarge(op, "Request body is too large")
		}
		return domain.Invalid(op, "Request body must be valid JSON")
	}
	return nil
}

// parseMultipart parses a multipart body of at most limit bytes.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64, op string) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.TooLarge(op, "File is larger than "+domain.HumanMB(limit))
		}
		return domain.Invalid(op, "Upload must be a multipart form")
	}
	return nil
}

// readAttachment loads an uploaded part into memory.
func readAttachment(fh *multipart.FileHeader) (*domain.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	provided := fh.Header.Get("Content-Type")
	if provided == "application/octet-stream" {
		provided = ""
	}
	return &domain.Attachment{
		Filename:    fh.Filename,
		ContentType: storage.DetectContentType(provided, fh.Filename, bytes.NewReader(data)),
		Data:        data,
	}, nil
}

// clientIP returns the submitter address recorded with complaints.
func clientIP(r *http.Request) string {
	return middleware.ClientIP(r)
}
