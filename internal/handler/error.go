package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/service"
)

// JSONError is the body of every error response.
type JSONError struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failure to the client. Stage and ClearFields are
// set for failed submissions: the stage that failed and the file fields the
// user must select again.
type ErrorBody struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Fields      map[string]string `json:"fields,omitempty"`
	Stage       string            `json:"stage,omitempty"`
	ClearFields []string          `json:"clear_fields,omitempty"`
}

// MsgValidation summarises a response carrying per-field errors.
const MsgValidation = "Please correct the highlighted fields."

// ErrorResponse writes an error response to the client.
// It maps domain error codes to HTTP status codes; internal detail is never
// included in the body.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	body, status := errorBody(err)
	logError(logger, r, err, body.Code, domain.ErrorOp(err), status)
	writeJSON(w, status, JSONError{Error: body})
}

// errorWithState writes err together with the caller's current state under
// key, so the client can re-render without another request.
func errorWithState(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, key string, state any) {
	body, status := errorBody(err)
	logError(logger, r, err, body.Code, domain.ErrorOp(err), status)
	writeJSON(w, status, map[string]any{"error": body, key: state})
}

// errorBody builds the client-facing description of err.
func errorBody(err error) (ErrorBody, int) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ErrorBody{
			Code:    domain.EINVALID,
			Message: MsgValidation,
			Fields:  ve.Fields,
		}, http.StatusBadRequest
	}

	code := domain.ErrorCode(err)
	body := ErrorBody{
		Code:    code,
		Message: domain.ErrorMessage(err),
	}

	var se *service.SubmitError
	if errors.As(err, &se) {
		body.Stage = se.Stage.String()
		body.ClearFields = se.ClearFields()
	}
	return body, ErrorCodeToHTTPStatus(code)
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EFORBIDDEN:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge // 413
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests // 429
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable // 503
	case domain.ECONFIG, domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// NotFoundResponse is a convenience wrapper for 404 errors.
func NotFoundResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	err := domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found")
	ErrorResponse(w, r, logger, err)
}

// logError logs the error with appropriate level based on status code.
func logError(logger *slog.Logger, r *http.Request, err error, code, op string, status int) {
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
	}

	// Add operation if present
	if op != "" {
		attrs = append(attrs, "op", op)
	}

	// 5xx are our problem, 4xx are expected client mistakes
	if status >= 500 {
		logger.Error("server error", attrs...)
	} else if status >= 400 {
		logger.Info("client error", attrs...)
	}
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
