package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/repository"
)

// Pinger reports whether a dependency is reachable. Satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StatsSource counts stored submissions. Satisfied by *repository.Queries.
type StatsSource interface {
	CountComplaintsByDistrict(ctx context.Context) ([]repository.CountComplaintsByDistrictRow, error)
	CountLawyers(ctx context.Context) (int64, error)
}

// PagesHandler serves the routes outside the form and chatbot APIs.
type PagesHandler struct {
	db     Pinger
	stats  StatsSource
	logger *slog.Logger
}

// NewPagesHandler creates a PagesHandler. db may be nil, in which case the
// health check only reports the process as up.
func NewPagesHandler(db Pinger, stats StatsSource, logger *slog.Logger) *PagesHandler {
	return &PagesHandler{db: db, stats: stats, logger: logger}
}

// RegisterRoutes registers the page routes.
//
// Routes:
// - GET /health                -> Health
// - GET /success               -> Success
// - GET /api/complaint-types   -> ComplaintTypes
// - GET /stats                 -> Stats (behind protect)
func (h *PagesHandler) RegisterRoutes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET "+SuccessPath, h.Success)
	mux.HandleFunc("GET /api/complaint-types", h.ComplaintTypes)
	mux.Handle("GET /stats", protect(http.HandlerFunc(h.Stats)))
}

// Health reports whether the service and its database are reachable.
func (h *PagesHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Success is the terminal confirmation shown after a submission.
func (h *PagesHandler) Success(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "submitted",
		"message": "Thank you. Your submission has been received and the legal taskforce will follow up.",
	})
}

// ComplaintTypes lists the selectable complaint categories in display order.
func (h *PagesHandler) ComplaintTypes(w http.ResponseWriter, r *http.Request) {
	types := domain.ComplaintTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"types": out,
		"other": domain.ComplaintTypeOther.String(),
	})
}

type districtCount struct {
	District string `json:"district"`
	Total    int64  `json:"total"`
}

type statsResponse struct {
	ComplaintsByDistrict []districtCount `json:"complaints_by_district"`
	Complaints           int64           `json:"complaints"`
	Lawyers              int64           `json:"lawyers"`
}

// Stats reports submission totals for the campaign team.
func (h *PagesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	const op = "handler.pages.stats"

	rows, err := h.stats.CountComplaintsByDistrict(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(err, op, "Statistics are unavailable right now"))
		return
	}
	lawyers, err := h.stats.CountLawyers(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Unavailable(err, op, "Statistics are unavailable right now"))
		return
	}

	resp := statsResponse{
		ComplaintsByDistrict: make([]districtCount, len(rows)),
		Lawyers:              lawyers,
	}
	for i, row := range rows {
		resp.ComplaintsByDistrict[i] = districtCount{District: row.District, Total: row.Total}
		resp.Complaints += row.Total
	}
	writeJSON(w, http.StatusOK, resp)
}
