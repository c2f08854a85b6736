package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/service"
	"github.com/shaktiabhiyan/taskforce/internal/session"
	"github.com/shaktiabhiyan/taskforce/internal/wizard"
)

// MsgSessionExpired is returned when a form request arrives without a live
// session.
const MsgSessionExpired = "Your form session has expired. Please start again."

// SuccessPath is where clients go after a successful submission.
const SuccessPath = "/success"

// WizardSessions stores one wizard per visitor.
type WizardSessions = session.Store[*wizard.Wizard]

// NewWizardSessions creates the session store for a form. Expired wizards
// release their previews.
func NewWizardSessions(form *wizard.Form, cfg session.Config) *WizardSessions {
	return session.NewStore(form.Name, cfg,
		func() *wizard.Wizard { return wizard.New(form, nil) },
		(*wizard.Wizard).Close,
	)
}

// submitFunc builds the persistence callback for one request.
type submitFunc func(r *http.Request) wizard.SubmitFunc

// =============================================================================
// Handler Configuration
// =============================================================================

// WizardHandler serves one multi-step form as a JSON API.
type WizardHandler struct {
	name      string
	sessions  *WizardSessions
	submit    submitFunc
	maxUpload int64 // Zero disables file routes
	logger    *slog.Logger
}

// wizardResponse is the body of every successful wizard request.
type wizardResponse struct {
	Wizard   wizard.Snapshot `json:"wizard"`
	Redirect string          `json:"redirect,omitempty"`
}

// NewComplaintHandler creates the handler for the complaint form. maxUpload
// bounds a single file upload request.
func NewComplaintHandler(sessions *WizardSessions, complaints service.ComplaintService, maxUpload int64, logger *slog.Logger) *WizardHandler {
	h := &WizardHandler{
		name:      wizard.FormComplaint,
		sessions:  sessions,
		maxUpload: maxUpload,
		logger:    logger,
	}
	h.submit = func(r *http.Request) wizard.SubmitFunc {
		ip := clientIP(r)
		return func(ctx context.Context, rec *wizard.Record) error {
			_, err := complaints.Submit(ctx, service.ComplaintParamsFromRecord(rec, ip), h.progress)
			return err
		}
	}
	return h
}

// NewLawyerHandler creates the handler for the lawyer registration form.
func NewLawyerHandler(sessions *WizardSessions, lawyers service.LawyerService, logger *slog.Logger) *WizardHandler {
	h := &WizardHandler{
		name:     wizard.FormLawyer,
		sessions: sessions,
		logger:   logger,
	}
	h.submit = func(*http.Request) wizard.SubmitFunc {
		return func(ctx context.Context, rec *wizard.Record) error {
			_, err := lawyers.Register(ctx, service.LawyerParamsFromRecord(rec))
			return err
		}
	}
	return h
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the form routes under /api/{form}.
//
// Routes:
// - POST   /api/{form}                 -> Start (new or reset)
// - GET    /api/{form}                 -> Show
// - PUT    /api/{form}/answers/{field} -> SetAnswer
// - POST   /api/{form}/files/{field}   -> AttachFile (file forms only)
// - DELETE /api/{form}/files/{field}   -> DetachFile (file forms only)
// - POST   /api/{form}/next            -> Next
// - POST   /api/{form}/back            -> Back
// - POST   /api/{form}/submit          -> Submit (rate limited)
func (h *WizardHandler) RegisterRoutes(mux *http.ServeMux, limitSubmit func(http.Handler) http.Handler) {
	prefix := "/api/" + h.name
	mux.HandleFunc("POST "+prefix, h.Start)
	mux.HandleFunc("GET "+prefix, h.Show)
	mux.HandleFunc("PUT "+prefix+"/answers/{field}", h.SetAnswer)
	if h.maxUpload > 0 {
		mux.HandleFunc("POST "+prefix+"/files/{field}", h.AttachFile)
		mux.HandleFunc("DELETE "+prefix+"/files/{field}", h.DetachFile)
	}
	mux.HandleFunc("POST "+prefix+"/next", h.Next)
	mux.HandleFunc("POST "+prefix+"/back", h.Back)
	mux.Handle("POST "+prefix+"/submit", limitSubmit(http.HandlerFunc(h.Submit)))
}

// =============================================================================
// Session Lifecycle
// =============================================================================

// Start opens a wizard, or resets the visitor's existing one to step 1.
func (h *WizardHandler) Start(w http.ResponseWriter, r *http.Request) {
	lease, err := h.sessions.LoadOrBegin(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler."+h.name+".start", "Could not start the form"))
		return
	}
	defer lease.Release()

	lease.Value.Reset()
	writeJSON(w, http.StatusOK, wizardResponse{Wizard: lease.Value.Snapshot()})
}

// Show returns the visitor's wizard, opening one if none is live.
func (h *WizardHandler) Show(w http.ResponseWriter, r *http.Request) {
	lease, err := h.sessions.LoadOrBegin(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler."+h.name+".show", "Could not start the form"))
		return
	}
	defer lease.Release()

	writeJSON(w, http.StatusOK, wizardResponse{Wizard: lease.Value.Snapshot()})
}

// load returns the live wizard or writes a session-expired error.
func (h *WizardHandler) load(w http.ResponseWriter, r *http.Request, op string) (*session.Lease[*wizard.Wizard], bool) {
	lease, ok := h.sessions.Load(r)
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTFOUND, op, MsgSessionExpired))
		return nil, false
	}
	return lease, true
}

// =============================================================================
// Answers and Files
// =============================================================================

type answerRequest struct {
	Value string `json:"value"`
}

// SetAnswer stores one scalar answer. Invalid values are kept and reported
// in the snapshot's errors.
func (h *WizardHandler) SetAnswer(w http.ResponseWriter, r *http.Request) {
	op := "handler." + h.name + ".answer"

	var req answerRequest
	if err := decodeJSON(w, r, &req, op); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	lease, ok := h.load(w, r, op)
	if !ok {
		return
	}
	defer lease.Release()

	if _, err := lease.Value.Set(r.PathValue("field"), req.Value); err != nil {
		errorWithState(w, r, h.logger, err, "wizard", lease.Value.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, wizardResponse{Wizard: lease.Value.Snapshot()})
}

// AttachFile stores the uploaded "file" part for a file field. A rejected
// file clears the field.
func (h *WizardHandler) AttachFile(w http.ResponseWriter, r *http.Request) {
	op := "handler." + h.name + ".attach"
	field := r.PathValue("field")

	lease, ok := h.load(w, r, op)
	if !ok {
		return
	}
	defer lease.Release()
	wz := lease.Value

	// A field that cannot take a file is reported before the body is read.
	if err := wz.CanAttach(field); err != nil {
		errorWithState(w, r, h.logger, err, "wizard", wz.Snapshot())
		return
	}

	// The previous selection does not survive a failed one.
	reject := func(err error) {
		if derr := wz.Detach(field); derr != nil {
			err = derr
		}
		errorWithState(w, r, h.logger, err, "wizard", wz.Snapshot())
	}

	if err := parseMultipart(w, r, h.maxUpload, op); err != nil {
		reject(err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		reject(domain.Invalid(op, "Select one file"))
		return
	}

	a, err := readAttachment(files[0])
	if err != nil {
		reject(domain.Invalid(op, "The file could not be read"))
		return
	}

	res, _, err := wz.Attach(field, a)
	if err != nil {
		errorWithState(w, r, h.logger, err, "wizard", wz.Snapshot())
		return
	}
	if !res.Valid {
		h.logger.Info("file rejected",
			"form", h.name,
			"field", field,
			"content_type", a.ContentType,
			"size", a.Size(),
		)
	}
	writeJSON(w, http.StatusOK, wizardResponse{Wizard: wz.Snapshot()})
}

// DetachFile removes the file selected for a field.
func (h *WizardHandler) DetachFile(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.load(w, r, "handler."+h.name+".detach")
	if !ok {
		return
	}
	defer lease.Release()

	if err := lease.Value.Detach(r.PathValue("field")); err != nil {
		errorWithState(w, r, h.logger, err, "wizard", lease.Value.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, wizardResponse{Wizard: lease.Value.Snapshot()})
}

// =============================================================================
// Navigation and Submission
// =============================================================================

// Next advances one step. An incomplete step does not move; the snapshot
// shows why.
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.load(w, r, "handler."+h.name+".next")
	if !ok {
		return
	}
	defer lease.Release()

	lease.Value.Advance()
	writeJSON(w, http.StatusOK, wizardResponse{Wizard: lease.Value.Snapshot()})
}

// Back moves one step back.
func (h *WizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.load(w, r, "handler."+h.name+".back")
	if !ok {
		return
	}
	defer lease.Release()

	lease.Value.Retreat()
	writeJSON(w, http.StatusOK, wizardResponse{Wizard: lease.Value.Snapshot()})
}

// Submit validates and persists the form. On success the client is sent to
// the confirmation page.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.load(w, r, "handler."+h.name+".submit")
	if !ok {
		return
	}
	defer lease.Release()

	if err := lease.Value.Submit(r.Context(), h.submit(r)); err != nil {
		errorWithState(w, r, h.logger, err, "wizard", lease.Value.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, wizardResponse{
		Wizard:   lease.Value.Snapshot(),
		Redirect: SuccessPath,
	})
}

// progress logs submission stages.
func (h *WizardHandler) progress(stage domain.SubmitStage) {
	h.logger.Debug("submission stage", "form", h.name, "stage", stage.String())
}
