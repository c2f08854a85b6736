package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/metrics"
	"github.com/shaktiabhiyan/taskforce/internal/repository"
	"github.com/shaktiabhiyan/taskforce/internal/wizard"
	"github.com/sqlc-dev/pqtype"
)

// =============================================================================
// Interface Definition
// =============================================================================

// discardTimeout bounds cleanup of media left by a failed submission.
const discardTimeout = 15 * time.Second

// StageFunc observes submission progress. It is called synchronously.
type StageFunc func(stage domain.SubmitStage)

// ComplaintStore persists complaints. Satisfied by *repository.Queries.
type ComplaintStore interface {
	InsertComplaint(ctx context.Context, arg repository.InsertComplaintParams) (repository.Complaint, error)
}

// ComplaintService coordinates complaint submission.
type ComplaintService interface {
	// Submit uploads the photo, then the video, then writes one record.
	// Upload failures abort before the insert and return a *SubmitError
	// naming the file field(s) to re-attach. progress may be nil.
	Submit(ctx context.Context, params domain.SubmitComplaintParams, progress StageFunc) (*domain.Complaint, error)
}

// =============================================================================
// Implementation
// =============================================================================

// complaintService implements ComplaintService.
type complaintService struct {
	store   ComplaintStore
	uploads UploadService
	logger  *slog.Logger
}

// NewComplaintService creates a new ComplaintService.
func NewComplaintService(store ComplaintStore, uploads UploadService, logger *slog.Logger) ComplaintService {
	return &complaintService{
		store:   store,
		uploads: uploads,
		logger:  logger,
	}
}

// Submit runs preparing → uploading_photo → uploading_video → saving → done.
func (s *complaintService) Submit(ctx context.Context, params domain.SubmitComplaintParams, progress StageFunc) (*domain.Complaint, error) {
	const op = "complaint.submit"

	if progress == nil {
		progress = func(domain.SubmitStage) {}
	}
	start := time.Now()
	fail := func(stage domain.SubmitStage, fields []string, e *domain.Error) error {
		metrics.SubmissionFailed(wizard.FormComplaint, string(stage))
		return &SubmitError{Stage: stage, Fields: fields, Err: e}
	}

	progress(domain.StagePreparing)

	if !params.ComplaintType.IsValid() {
		return nil, fail(domain.StagePreparing, nil, domain.Invalid(op, "Select one of the listed options"))
	}
	incidentDate, err := time.Parse("2006-01-02", params.IncidentDate)
	if err != nil {
		return nil, fail(domain.StagePreparing, nil, domain.Invalid(op, "Enter a valid date"))
	}
	if params.Photo == nil {
		return nil, fail(domain.StagePreparing, []string{wizard.FieldPhoto}, domain.Invalid(op, MsgPhotoRequired))
	}
	if params.Video == nil {
		return nil, fail(domain.StagePreparing, []string{wizard.FieldVideo}, domain.Invalid(op, MsgVideoRequired))
	}

	// Photo completes before the video starts.
	progress(domain.StageUploadingPhoto)
	photo, err := s.uploads.UploadImage(ctx, params.Photo)
	if err != nil {
		return nil, fail(domain.StageUploadingPhoto, []string{wizard.FieldPhoto}, uploadFailure(err, op))
	}

	progress(domain.StageUploadingVideo)
	video, err := s.uploads.UploadVideo(ctx, params.Video)
	if err != nil {
		s.discard(ctx, photo)
		return nil, fail(domain.StageUploadingVideo, []string{wizard.FieldVideo}, uploadFailure(err, op))
	}

	progress(domain.StageSaving)
	row, err := s.store.InsertComplaint(ctx, repository.InsertComplaintParams{
		Name:          strings.TrimSpace(params.Name),
		Phone:         strings.TrimSpace(params.Phone),
		Assembly:      nullString(params.Assembly),
		District:      strings.TrimSpace(params.District),
		IncidentDate:  incidentDate,
		IncidentTime:  params.IncidentTime,
		Location:      strings.TrimSpace(params.Location),
		ComplaintType: params.ComplaintType.String(),
		Description:   nullString(params.EffectiveDescription()),
		PhotoUrl:      photo.URL,
		VideoUrl:      video.URL,
		SubmitterIp:   inet(params.SubmitterIP),
	})
	if err != nil {
		s.logger.Error("failed to insert complaint",
			"error", err,
			"district", params.District,
			"photo_key", photo.Key,
			"video_key", video.Key,
		)
		s.discard(ctx, photo, video)
		return nil, fail(domain.StageSaving, nil, persistError(err, op))
	}

	progress(domain.StageDone)
	metrics.SubmissionSucceeded(wizard.FormComplaint, time.Since(start))
	s.logger.Info("complaint submitted",
		"complaint_id", row.ID,
		"district", row.District,
		"type", row.ComplaintType,
		"duration", time.Since(start),
	)

	return complaintToDomain(row), nil
}

// discard removes media stored by a submission that did not complete. It
// outlives a cancelled request so a client disconnect still cleans up.
func (s *complaintService) discard(ctx context.Context, media ...*StoredMedia) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	for _, m := range media {
		if err := s.uploads.Remove(ctx, m); err != nil {
			s.logger.Warn("failed to remove orphaned media", "class", m.Class, "key", m.Key, "error", err)
		}
	}
}

// uploadFailure turns an UploadError into the user-facing error for its stage.
func uploadFailure(err error, op string) *domain.Error {
	var ue *UploadError
	if !errors.As(err, &ue) {
		return domain.Unavailable(err, op, MsgSubmitFailed)
	}

	photo := ue.Class == domain.MediaImage
	switch ue.Kind {
	case UploadWrongType:
		if photo {
			return domain.Invalid(op, wizard.MsgImageOnly)
		}
		return domain.Invalid(op, wizard.MsgVideoOnly)
	case UploadTooLarge:
		mb := ue.LimitBytes / (1024 * 1024)
		if photo {
			return domain.TooLarge(op, fmt.Sprintf("Image exceeds %d MB even after compression", mb))
		}
		return domain.TooLarge(op, fmt.Sprintf("Video exceeds %d MB. Please choose a shorter/lower-resolution clip.", mb))
	case UploadAuth:
		return domain.Config(err, op, MsgUploadAuth)
	case UploadNetwork:
		if photo {
			return domain.Unavailable(err, op, MsgPhotoNetwork)
		}
		return domain.Unavailable(err, op, MsgVideoNetwork)
	}
	if photo {
		return domain.Unavailable(err, op, MsgPhotoFailed)
	}
	return domain.Unavailable(err, op, MsgVideoFailed)
}

// =============================================================================
// Record Conversion
// =============================================================================

// ComplaintParamsFromRecord builds submit parameters from a completed
// complaint wizard record.
func ComplaintParamsFromRecord(rec *wizard.Record, submitterIP string) domain.SubmitComplaintParams {
	return domain.SubmitComplaintParams{
		Name:          rec.Text(wizard.FieldName),
		Phone:         rec.Text(wizard.FieldPhone),
		Assembly:      rec.Text(wizard.FieldAssembly),
		District:      rec.Text(wizard.FieldDistrict),
		IncidentDate:  rec.Text(wizard.FieldIncidentDate),
		IncidentTime:  rec.Text(wizard.FieldIncidentTime),
		Location:      rec.Text(wizard.FieldLocation),
		ComplaintType: domain.ComplaintType(rec.Text(wizard.FieldComplaintType)),
		OtherText:     rec.Text(wizard.FieldOtherText),
		Description:   rec.Text(wizard.FieldDescription),
		Photo:         rec.File(wizard.FieldPhoto),
		Video:         rec.File(wizard.FieldVideo),
		SubmitterIP:   submitterIP,
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

func complaintToDomain(row repository.Complaint) *domain.Complaint {
	c := &domain.Complaint{
		ID:            row.ID,
		Name:          row.Name,
		Phone:         row.Phone,
		District:      row.District,
		IncidentDate:  row.IncidentDate.Format("2006-01-02"),
		IncidentTime:  row.IncidentTime,
		Location:      row.Location,
		ComplaintType: domain.ComplaintType(row.ComplaintType),
		PhotoURL:      row.PhotoUrl,
		VideoURL:      row.VideoUrl,
		CreatedAt:     row.CreatedAt,
	}
	if row.Assembly.Valid {
		c.Assembly = &row.Assembly.String
	}
	if row.Description.Valid {
		c.Description = &row.Description.String
	}
	if row.SubmitterIp.Valid {
		c.SubmitterIP = row.SubmitterIp.IPNet.IP.String()
	}
	return c
}

// nullString maps blank text to NULL.
func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// inet converts a client address to a host inet value. Unparseable input
// is stored as NULL.
func inet(addr string) pqtype.Inet {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return pqtype.Inet{}
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 32
	}
	return pqtype.Inet{
		IPNet: net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)},
		Valid: true,
	}
}
