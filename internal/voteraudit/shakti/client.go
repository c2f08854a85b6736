// Package shakti implements voteraudit.Client against the campaign's REST API.
package shakti

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/metrics"
	"github.com/shaktiabhiyan/taskforce/internal/voteraudit"
)

// Endpoint paths relative to the base URL
const (
	pathCheckUser  = "voterAuditUser/check_user"
	pathLogin      = "voterAuditUser/login"
	pathCreateUser = "voterAuditUser/create_user"
	pathAudit      = "voterAuditRecords/"

	statusSuccess = "success"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Client implements voteraudit.Client over HTTP.
type Client struct {
	config voteraudit.Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new API client
func New(config voteraudit.Config, logger *slog.Logger) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = voteraudit.DefaultBaseURL
	}
	if !strings.HasSuffix(config.BaseURL, "/") {
		config.BaseURL += "/"
	}
	if !strings.HasPrefix(config.BaseURL, "http://") && !strings.HasPrefix(config.BaseURL, "https://") {
		return nil, fmt.Errorf("voter audit base URL must be http(s): %q", config.BaseURL)
	}

	// Set defaults
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryBaseDelay == 0 {
		config.RetryBaseDelay = 500 * time.Millisecond
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// CloseIdleConnections releases pooled connections. Call on shutdown.
func (c *Client) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}

// =============================================================================
// Operations
// =============================================================================

// CheckUser reports whether a participant is registered under phone.
func (c *Client) CheckUser(ctx context.Context, phone string) (voteraudit.UserStatus, error) {
	body, err := c.executeWithRetry(ctx, pathCheckUser, "", checkUserRequest{UserID: phone})
	if err != nil {
		return "", voteraudit.WrapError("check user", err)
	}

	status := parseUserStatus(body)
	if !status.Valid() {
		return "", voteraudit.WrapError("check user", fmt.Errorf("%w: %q", voteraudit.ErrUnexpectedResponse, truncate(body)))
	}
	return status, nil
}

// Login exchanges a registered phone number for a bearer token.
func (c *Client) Login(ctx context.Context, phone string) (*voteraudit.LoginResult, error) {
	body, err := c.executeWithRetry(ctx, pathLogin, "", loginRequest{Phone: phone})
	if err != nil {
		return nil, voteraudit.WrapError("login", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, voteraudit.WrapError("login", fmt.Errorf("%w: %v", voteraudit.ErrUnexpectedResponse, err))
	}
	if resp.Status != statusSuccess {
		return nil, voteraudit.WrapError("login", &voteraudit.RejectedError{Message: resp.Message})
	}
	if resp.Token == "" {
		return nil, voteraudit.WrapError("login", fmt.Errorf("%w: missing token", voteraudit.ErrUnexpectedResponse))
	}

	return &voteraudit.LoginResult{Token: resp.Token, User: resp.Data.User}, nil
}

// CreateUser registers a new participant.
func (c *Client) CreateUser(ctx context.Context, user voteraudit.NewUser) error {
	body, err := c.executeOnce(ctx, pathCreateUser, "", user)
	if err != nil {
		return voteraudit.WrapError("create user", err)
	}
	return voteraudit.WrapError("create user", checkStatus(body))
}

// SubmitAudit records an audit on behalf of the token's participant.
func (c *Client) SubmitAudit(ctx context.Context, token string, record domain.AuditRecord) error {
	if token == "" {
		return voteraudit.WrapError("submit audit", voteraudit.ErrUnauthorized)
	}
	body, err := c.executeOnce(ctx, pathAudit, token, record)
	if err != nil {
		return voteraudit.WrapError("submit audit", err)
	}
	return voteraudit.WrapError("submit audit", checkStatus(body))
}

// =============================================================================
// Transport
// =============================================================================

// executeWithRetry POSTs payload to path with exponential backoff on
// transient errors. The request is rebuilt on every attempt. Only read-only
// lookups go through here.
func (c *Client) executeWithRetry(ctx context.Context, path, token string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		body, err := c.executeRequest(ctx, path, token, bodyBytes)
		if err == nil {
			return body, nil
		}

		lastErr = err

		// Only retry on retryable errors
		if !voteraudit.IsRetryable(err) || attempt >= c.config.MaxRetries {
			break
		}

		// Exponential: base * 2^(attempt-1)
		delay := c.config.RetryBaseDelay * time.Duration(1<<(attempt-1))
		c.logger.Info("retrying voter audit request", "endpoint", path, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// executeOnce POSTs payload without retrying. Used for requests that create
// records upstream, where a late reply may still have been applied.
func (c *Client) executeOnce(ctx context.Context, path, token string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.executeRequest(ctx, path, token, bodyBytes)
}

// executeRequest performs a single POST.
func (c *Client) executeRequest(ctx context.Context, path, token string, bodyBytes []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamCall(path, "error")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %v", voteraudit.ErrTimeout, err)
		}
		// Network errors are typically retryable
		return nil, fmt.Errorf("%w: %v", voteraudit.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamCall(path, strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", voteraudit.ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("voter audit request failed",
			"endpoint", path,
			"status", resp.StatusCode,
			"body", truncate(body),
		)
		return nil, mapHTTPError(resp.StatusCode, body)
	}

	return body, nil
}

// mapHTTPError maps HTTP status codes to client errors
func mapHTTPError(statusCode int, body []byte) error {
	var env envelope
	_ = json.Unmarshal(body, &env)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return voteraudit.ErrUnauthorized
	case http.StatusTooManyRequests:
		return voteraudit.ErrRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return voteraudit.ErrTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return voteraudit.ErrUnavailable
	}
	if statusCode >= 500 {
		return fmt.Errorf("%w: status %d", voteraudit.ErrUnavailable, statusCode)
	}
	return &voteraudit.RejectedError{Message: env.Message}
}

// =============================================================================
// Response Parsing
// =============================================================================

// parseUserStatus accepts either a JSON string or bare text, with or without
// quotes.
func parseUserStatus(body []byte) voteraudit.UserStatus {
	var s string
	if err := json.Unmarshal(body, &s); err != nil {
		s = strings.ReplaceAll(string(body), `"`, "")
	}
	return voteraudit.UserStatus(strings.TrimSpace(s))
}

// checkStatus returns nil when body is a success envelope.
func checkStatus(body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", voteraudit.ErrUnexpectedResponse, err)
	}
	if env.Status != statusSuccess {
		return &voteraudit.RejectedError{Message: env.Message}
	}
	return nil
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// API request/response types

type checkUserRequest struct {
	UserID string `json:"user_id"`
}

type loginRequest struct {
	Phone string `json:"phone"`
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type loginResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
	Data    struct {
		User domain.AuditUser `json:"user"`
	} `json:"data"`
}
