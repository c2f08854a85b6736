package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Request Logging Middleware Tests
// =============================================================================

// logRequest serves req through the logging middleware and returns the log
// output and the response.
func logRequest(req *http.Request, status int) (string, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	rec := httptest.NewRecorder()
	NewRequestLoggingMiddleware(logger).Handler(handler).ServeHTTP(rec, req)
	return buf.String(), rec
}

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/complaint/next", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 14)")

	logOutput, _ := logRequest(req, http.StatusOK)

	for _, want := range []string{"POST", "/api/complaint/next", "status=200", "duration_ms", "192.168.1.1", "Android 14", "request_id"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("log should contain %q, got: %s", want, logOutput)
		}
	}
}

func TestRequestLoggingMiddleware_ServerErrorsAreWarnings(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/complaint/submit", nil)

	logOutput, _ := logRequest(req, http.StatusServiceUnavailable)

	if !strings.Contains(logOutput, "level=WARN") {
		t.Errorf("5xx should log at WARN, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "503") {
		t.Errorf("log should contain status, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_SetsRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/chatbot", nil)
	logOutput, rec := logRequest(req, http.StatusOK)

	id := rec.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatal("expected X-Request-ID response header")
	}
	if !strings.Contains(logOutput, id) {
		t.Errorf("log should contain request id %s, got: %s", id, logOutput)
	}
}

func TestRequestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/chatbot", nil)
	req.Header.Set(RequestIDHeader, "edge-42")

	_, rec := logRequest(req, http.StatusOK)

	if got := rec.Header().Get(RequestIDHeader); got != "edge-42" {
		t.Errorf("expected incoming request id to be kept, got %q", got)
	}
}

func TestRequestLoggingMiddleware_DoesNotLogSensitiveQueryParams(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/chatbot?mobile=9876543210&token=secrettoken123&lang=hi", nil)

	logOutput, _ := logRequest(req, http.StatusOK)

	if strings.Contains(logOutput, "9876543210") {
		t.Errorf("log should NOT contain phone number, got: %s", logOutput)
	}
	if strings.Contains(logOutput, "secrettoken123") {
		t.Errorf("log should NOT contain token, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "lang=hi") {
		t.Errorf("log should keep harmless params, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics", "/files/photos/a.jpg"} {
		t.Run(path, func(t *testing.T) {
			logOutput, rec := logRequest(httptest.NewRequest("GET", path, nil), http.StatusOK)

			if logOutput != "" {
				t.Errorf("expected no log for %s, got: %s", path, logOutput)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("request should pass through, got %d", rec.Code)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path, query, want string
	}{
		{"/api/lawyer", "", "/api/lawyer"},
		{"/api/lawyer", "email=a@b.in", "/api/lawyer?email=[REDACTED]"},
		{"/api/lawyer", "WhatsApp=9876543210&step=2", "/api/lawyer?WhatsApp=[REDACTED]&step=2"},
		{"/api/lawyer", "flag", "/api/lawyer"},
	}

	for _, tt := range tests {
		if got := sanitizePath(tt.path, tt.query); got != tt.want {
			t.Errorf("sanitizePath(%q, %q) = %q, want %q", tt.path, tt.query, got, tt.want)
		}
	}
}
