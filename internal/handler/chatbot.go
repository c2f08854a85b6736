package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/chatbot"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/session"
)

// ChatbotSessions stores one conversation per visitor.
type ChatbotSessions = session.Store[*chatbot.Session]

// NewChatbotSessions creates the chatbot session store. Expired
// conversations drop their upstream token.
func NewChatbotSessions(cfg session.Config) *ChatbotSessions {
	return session.NewStore("chatbot", cfg, chatbot.NewSession, (*chatbot.Session).Close)
}

// ChatbotHandler serves the voter-audit chatbot.
type ChatbotHandler struct {
	flow        *chatbot.Flow
	sessions    *ChatbotSessions
	certificate *chatbot.Certificate
	maxUpload   int64
	location    *time.Location
	logger      *slog.Logger
}

// chatbotResponse is the body of every chatbot response. Error is set when
// the interaction failed; Reply still describes where the conversation is.
type chatbotResponse struct {
	Reply chatbot.Reply `json:"reply"`
	Error *ErrorBody    `json:"error,omitempty"`
}

// NewChatbotHandler creates a ChatbotHandler. maxUpload bounds one
// attachments request; loc is used for the certificate's issue date.
func NewChatbotHandler(
	flow *chatbot.Flow,
	sessions *ChatbotSessions,
	certificate *chatbot.Certificate,
	maxUpload int64,
	loc *time.Location,
	logger *slog.Logger,
) *ChatbotHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ChatbotHandler{
		flow:        flow,
		sessions:    sessions,
		certificate: certificate,
		maxUpload:   maxUpload,
		location:    loc,
		logger:      logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the chatbot routes.
//
// Routes:
// - POST   /api/chatbot               -> Start
// - GET    /api/chatbot               -> Show
// - POST   /api/chatbot/messages      -> Message
// - POST   /api/chatbot/attachments   -> Attach
// - POST   /api/chatbot/submit        -> Submit
// - POST   /api/chatbot/new-complaint -> NewComplaint
// - DELETE /api/chatbot               -> Reset
// - GET    /api/chatbot/certificate   -> Certificate
//
// Everything except Show and Certificate goes through limit.
func (h *ChatbotHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	mux.Handle("POST /api/chatbot", limit(http.HandlerFunc(h.Start)))
	mux.HandleFunc("GET /api/chatbot", h.Show)
	mux.Handle("POST /api/chatbot/messages", limit(http.HandlerFunc(h.Message)))
	mux.Handle("POST /api/chatbot/attachments", limit(http.HandlerFunc(h.Attach)))
	mux.Handle("POST /api/chatbot/submit", limit(http.HandlerFunc(h.Submit)))
	mux.Handle("POST /api/chatbot/new-complaint", limit(http.HandlerFunc(h.NewComplaint)))
	mux.Handle("DELETE /api/chatbot", limit(http.HandlerFunc(h.Reset)))
	mux.HandleFunc("GET /api/chatbot/certificate", h.Certificate)
}

// =============================================================================
// Conversation
// =============================================================================

// Start opens the conversation. A session with a live token resumes.
func (h *ChatbotHandler) Start(w http.ResponseWriter, r *http.Request) {
	lease, err := h.sessions.LoadOrBegin(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "handler.chatbot.start", "Could not start the conversation"))
		return
	}
	defer lease.Release()

	h.respond(w, r, h.flow.Start(lease.Value), nil)
}

// Show restates the current step, opening a conversation if none is live.
func (h *ChatbotHandler) Show(w http.ResponseWriter, r *http.Request) {
	if lease, ok := h.sessions.Load(r); ok {
		defer lease.Release()
		h.respond(w, r, h.flow.Current(lease.Value), nil)
		return
	}
	h.Start(w, r)
}

type messageRequest struct {
	Text string `json:"text"`
}

// Message handles one typed message or option click.
func (h *ChatbotHandler) Message(w http.ResponseWriter, r *http.Request) {
	const op = "handler.chatbot.message"

	var req messageRequest
	if err := decodeJSON(w, r, &req, op); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	lease, ok := h.load(w, r, op)
	if !ok {
		return
	}
	defer lease.Release()

	reply, err := h.flow.Handle(r.Context(), lease.Value, req.Text)
	h.respond(w, r, reply, err)
}

// Attach uploads the "files" parts as audit evidence.
func (h *ChatbotHandler) Attach(w http.ResponseWriter, r *http.Request) {
	const op = "handler.chatbot.attach"

	lease, ok := h.load(w, r, op)
	if !ok {
		return
	}
	defer lease.Release()

	if err := parseMultipart(w, r, h.maxUpload, op); err != nil {
		h.respond(w, r, h.flow.Current(lease.Value), err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	parts := r.MultipartForm.File["files"]
	files := make([]*domain.Attachment, 0, len(parts))
	for _, fh := range parts {
		a, err := readAttachment(fh)
		if err != nil {
			h.respond(w, r, h.flow.Current(lease.Value), domain.Invalid(op, fmt.Sprintf("%s could not be read", fh.Filename)))
			return
		}
		files = append(files, a)
	}

	reply, err := h.flow.Attach(r.Context(), lease.Value, files)
	h.respond(w, r, reply, err)
}

// Submit sends the audit upstream.
func (h *ChatbotHandler) Submit(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.load(w, r, "handler.chatbot.submit")
	if !ok {
		return
	}
	defer lease.Release()

	reply, err := h.flow.Submit(r.Context(), lease.Value)
	h.respond(w, r, reply, err)
}

// NewComplaint starts another audit for the same participant.
func (h *ChatbotHandler) NewComplaint(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.load(w, r, "handler.chatbot.new_complaint")
	if !ok {
		return
	}
	defer lease.Release()

	h.respond(w, r, h.flow.StartNewComplaint(lease.Value), nil)
}

// Reset ends the conversation and clears its cookie.
func (h *ChatbotHandler) Reset(w http.ResponseWriter, r *http.Request) {
	reply := h.flow.Reset(chatbot.NewSession())
	if lease, ok := h.sessions.Load(r); ok {
		reply = h.flow.Reset(lease.Value)
		lease.Release()
	}
	h.sessions.End(w, r)
	h.respond(w, r, reply, nil)
}

// =============================================================================
// Certificate
// =============================================================================

// Certificate downloads the participation certificate earned by the last
// submission.
func (h *ChatbotHandler) Certificate(w http.ResponseWriter, r *http.Request) {
	lease, ok := h.load(w, r, "handler.chatbot.certificate")
	if !ok {
		return
	}
	defer lease.Release()

	var buf bytes.Buffer
	if _, err := h.certificate.Generate(lease.Value, time.Now().In(h.location), &buf); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	filename := h.certificate.Filename(lease.Value.CertificateName())
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// =============================================================================
// Helper Functions
// =============================================================================

func (h *ChatbotHandler) load(w http.ResponseWriter, r *http.Request, op string) (*session.Lease[*chatbot.Session], bool) {
	lease, ok := h.sessions.Load(r)
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTFOUND, op, "Your chat session has expired. Please start again."))
		return nil, false
	}
	return lease, true
}

// respond writes reply, with err's status and description when err is set.
func (h *ChatbotHandler) respond(w http.ResponseWriter, r *http.Request, reply chatbot.Reply, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, chatbotResponse{Reply: reply})
		return
	}
	body, status := errorBody(err)
	logError(h.logger, r, err, body.Code, domain.ErrorOp(err), status)
	writeJSON(w, status, chatbotResponse{Reply: reply, Error: &body})
}
