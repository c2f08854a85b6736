package service

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/storage"
)

// User-facing submission messages
const (
	MsgSubmitFailed  = "Failed to submit. Please try again."
	MsgServerConfig  = "Submission failed due to a server configuration problem. Please contact the campaign team."
	MsgUploadAuth    = "Upload failed due to a storage authentication problem. Please contact the campaign team."
	MsgPhotoNetwork  = "Photo upload failed. Please check your connection and try again."
	MsgVideoNetwork  = "Video upload failed. Please check your connection and try again."
	MsgPhotoFailed   = "Photo upload failed. Please try again."
	MsgVideoFailed   = "Video upload failed. Please try again."
	MsgPhotoRequired = "Please attach a photo."
	MsgVideoRequired = "Please attach a video."
)

// SubmitError is returned by the submission coordinators. It names the stage
// that failed and the file fields the user must attach again.
type SubmitError struct {
	Stage  domain.SubmitStage
	Fields []string
	Err    *domain.Error
}

func (e *SubmitError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// ClearFields lists the file fields invalidated by the failure.
func (e *SubmitError) ClearFields() []string {
	return e.Fields
}

// isConfigError reports whether err is a credential or permission fault on
// our side rather than a transient failure.
func isConfigError(err error) bool {
	if storage.IsAccessDenied(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 28: invalid authorization specification.
		// 42501: insufficient_privilege. 3D000: invalid catalog (no such database).
		return strings.HasPrefix(pgErr.Code, "28") || pgErr.Code == "42501" || pgErr.Code == "3D000"
	}

	// Misconfigured service keys surface as malformed tokens from
	// JWT-authenticated gateways.
	msg := err.Error()
	return strings.Contains(msg, "Invalid Compact JWS") || strings.Contains(msg, "invalid JWT")
}

// persistError maps a failed insert onto the user-facing taxonomy.
func persistError(err error, op string) *domain.Error {
	if isConfigError(err) {
		return domain.Config(err, op, MsgServerConfig)
	}
	return domain.Unavailable(err, op, MsgSubmitFailed)
}
