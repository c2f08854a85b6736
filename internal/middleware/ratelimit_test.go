package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock returns a limiter clock and a function to advance it.
func fakeClock(rl *RateLimiter) func(time.Duration) {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

// =============================================================================
// RateLimiter Tests
// =============================================================================

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	if rl == nil {
		t.Fatal("expected rate limiter to be created")
	}
	if rl.maxAttempts != 5 {
		t.Errorf("expected maxAttempts=5, got %d", rl.maxAttempts)
	}
	if rl.window != time.Minute {
		t.Errorf("expected window=1m, got %v", rl.window)
	}
}

func TestRateLimiter_Allow_AtLimit(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !rl.Allow("192.168.1.1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if rl.Allow("192.168.1.1") {
		t.Error("6th request should be denied")
	}
}

func TestRateLimiter_Allow_DifferentIPs(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	rl.Allow("192.168.1.1")
	rl.Allow("192.168.1.1")
	if rl.Allow("192.168.1.1") {
		t.Error("IP 1 should be rate limited")
	}

	// IP 2 has its own budget
	if !rl.Allow("192.168.1.2") {
		t.Error("IP 2 should not be rate limited")
	}
}

func TestRateLimiter_Allow_WindowExpiry(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	advance := fakeClock(rl)

	rl.Allow("192.168.1.1")
	rl.Allow("192.168.1.1")
	if rl.Allow("192.168.1.1") {
		t.Error("should be rate limited")
	}

	advance(61 * time.Second)

	if !rl.Allow("192.168.1.1") {
		t.Error("should be allowed after window expires")
	}
}

func TestRateLimiter_TimeUntilReset(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	advance := fakeClock(rl)

	if got := rl.TimeUntilReset("10.0.0.1"); got != 0 {
		t.Errorf("unknown key: expected 0, got %v", got)
	}

	rl.Allow("10.0.0.1")
	advance(20 * time.Second)

	if got := rl.TimeUntilReset("10.0.0.1"); got != 40*time.Second {
		t.Errorf("expected 40s, got %v", got)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	advance := fakeClock(rl)

	rl.Allow("10.0.0.1")
	advance(45 * time.Second)
	rl.Allow("10.0.0.2")
	advance(30 * time.Second)

	rl.Sweep()

	if _, ok := rl.entries["10.0.0.1"]; ok {
		t.Error("expired entry should be swept")
	}
	if _, ok := rl.entries["10.0.0.2"]; !ok {
		t.Error("live entry should be kept")
	}
}

func TestRateLimiter_RunStopsWithContext(t *testing.T) {
	rl := NewRateLimiter(1, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rl.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// =============================================================================
// RateLimitMiddleware Tests
// =============================================================================

func limitedHandler(max int) http.Handler {
	mw := NewRateLimitMiddleware("test", NewRateLimiter(max, time.Minute), newTestLogger())
	return mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func submitFrom(h http.Handler, remote string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/complaint/submit", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware_BlocksAfterLimit(t *testing.T) {
	h := limitedHandler(2)

	for i := 0; i < 3; i++ {
		rec := submitFrom(h, "192.168.1.1:12345", nil)

		if i < 2 && rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if i == 2 && rec.Code != http.StatusTooManyRequests {
			t.Errorf("request %d: expected 429, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimitMiddleware_JSONResponse(t *testing.T) {
	h := limitedHandler(1)
	submitFrom(h, "192.168.1.1:12345", nil)
	rec := submitFrom(h, "192.168.1.1:12345", nil)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header to be set")
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "rate_limit" {
		t.Errorf("expected rate_limit code, got %q", body.Error.Code)
	}
}

func TestRateLimitMiddleware_XForwardedFor(t *testing.T) {
	h := limitedHandler(1)

	// Same proxy, different clients
	first := submitFrom(h, "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"})
	second := submitFrom(h, "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.6, 10.0.0.1"})

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Errorf("different forwarded clients should have separate budgets: %d, %d", first.Code, second.Code)
	}

	third := submitFrom(h, "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.5"})
	if third.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 for repeated client, got %d", third.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "192.168.1.1:12345", nil, "192.168.1.1"},
		{"remote addr without port", "192.168.1.1", nil, "192.168.1.1"},
		{"x-forwarded-for first hop", "10.0.0.1:80", map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1"}, "203.0.113.5"},
		{"x-real-ip", "10.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"ipv6", "[2001:db8::1]:443", nil, "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIntakeRateLimiter_SeparateBudgets(t *testing.T) {
	a := NewIntakeRateLimiter(newTestLogger())
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	submit := a.LimitSubmit(ok)
	chat := a.LimitChatbot(ok)

	for i := 0; i < 10; i++ {
		submitFrom(submit, "192.168.1.9:1", nil)
	}
	if rec := submitFrom(submit, "192.168.1.9:1", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("11th submission: expected 429, got %d", rec.Code)
	}
	if rec := submitFrom(chat, "192.168.1.9:1", nil); rec.Code != http.StatusOK {
		t.Errorf("chatbot budget should be separate, got %d", rec.Code)
	}
}
