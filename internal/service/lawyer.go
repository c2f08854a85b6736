package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/metrics"
	"github.com/shaktiabhiyan/taskforce/internal/repository"
	"github.com/shaktiabhiyan/taskforce/internal/wizard"
)

// LawyerStore persists lawyer registrations. Satisfied by *repository.Queries.
type LawyerStore interface {
	InsertLawyer(ctx context.Context, arg repository.InsertLawyerParams) (repository.Lawyer, error)
}

// LawyerService registers volunteer lawyers.
type LawyerService interface {
	// Register writes one lawyer record.
	Register(ctx context.Context, params domain.RegisterLawyerParams) (*domain.Lawyer, error)
}

type lawyerService struct {
	store  LawyerStore
	logger *slog.Logger
}

// NewLawyerService creates a new LawyerService.
func NewLawyerService(store LawyerStore, logger *slog.Logger) LawyerService {
	return &lawyerService{store: store, logger: logger}
}

// Register writes one lawyer record.
func (s *lawyerService) Register(ctx context.Context, params domain.RegisterLawyerParams) (*domain.Lawyer, error) {
	const op = "lawyer.register"
	start := time.Now()

	row, err := s.store.InsertLawyer(ctx, repository.InsertLawyerParams{
		Name:            strings.TrimSpace(params.Name),
		Whatsapp:        strings.TrimSpace(params.WhatsApp),
		PracticingCourt: strings.TrimSpace(params.PracticingCourt),
		Assembly:        strings.TrimSpace(params.Assembly),
		Email:           strings.ToLower(strings.TrimSpace(params.Email)),
	})
	if err != nil {
		s.logger.Error("failed to insert lawyer", "error", err, "assembly", params.Assembly)
		metrics.SubmissionFailed(wizard.FormLawyer, string(domain.StageSaving))
		return nil, &SubmitError{Stage: domain.StageSaving, Err: persistError(err, op)}
	}

	metrics.SubmissionSucceeded(wizard.FormLawyer, time.Since(start))
	s.logger.Info("lawyer registered", "lawyer_id", row.ID, "assembly", row.Assembly)

	return &domain.Lawyer{
		ID:              row.ID,
		Name:            row.Name,
		WhatsApp:        row.Whatsapp,
		PracticingCourt: row.PracticingCourt,
		Assembly:        row.Assembly,
		Email:           row.Email,
		CreatedAt:       row.CreatedAt,
	}, nil
}

// LawyerParamsFromRecord builds registration parameters from a completed
// lawyer wizard record.
func LawyerParamsFromRecord(rec *wizard.Record) domain.RegisterLawyerParams {
	return domain.RegisterLawyerParams{
		Name:            rec.Text(wizard.FieldName),
		WhatsApp:        rec.Text(wizard.FieldWhatsApp),
		PracticingCourt: rec.Text(wizard.FieldPracticingCourt),
		Assembly:        rec.Text(wizard.FieldAssembly),
		Email:           rec.Text(wizard.FieldEmail),
	}
}
