// Package voteraudit defines the contract of the voter-audit REST API used by
// the chatbot: participant lookup, login, registration and audit submission.
package voteraudit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
)

// Client is the voter-audit API as the chatbot consumes it.
type Client interface {
	// CheckUser reports whether a participant is registered under phone.
	CheckUser(ctx context.Context, phone string) (UserStatus, error)

	// Login exchanges a registered phone number for a bearer token.
	Login(ctx context.Context, phone string) (*LoginResult, error)

	// CreateUser registers a new participant. Login must follow to obtain
	// a token.
	CreateUser(ctx context.Context, user NewUser) error

	// SubmitAudit records an audit on behalf of the token's participant.
	// Returns ErrUnauthorized when the token is no longer accepted.
	SubmitAudit(ctx context.Context, token string, record domain.AuditRecord) error
}

// UserStatus is the result of CheckUser.
type UserStatus string

const (
	UserExists    UserStatus = "exist"
	UserNotExists UserStatus = "notexist"
)

// Valid reports whether s is a recognised status.
func (s UserStatus) Valid() bool {
	return s == UserExists || s == UserNotExists
}

// LoginResult is a successful login.
type LoginResult struct {
	Token string
	User  domain.AuditUser
}

// NewUser is the registration payload.
type NewUser struct {
	Phone       string `json:"phone"`
	Name        string `json:"name"`
	State       string `json:"state"`
	District    string `json:"district"`
	Assembly    string `json:"assembly"`
	BoothNumber string `json:"boothNumber"`
}

// Config contains common configuration for API clients
type Config struct {
	BaseURL        string        // API root, with trailing slash
	MaxRetries     int           // Maximum attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.shaktiabhiyan.in/api/v1/"

// Errors returned by clients
var (
	// ErrUnauthorized indicates the bearer token was rejected (session expired)
	ErrUnauthorized = errors.New("voter audit session expired")

	// ErrRateLimit indicates the API rate limit has been exceeded
	ErrRateLimit = errors.New("voter audit rate limit exceeded")

	// ErrTimeout indicates the request timed out
	ErrTimeout = errors.New("voter audit request timed out")

	// ErrUnavailable indicates the API is unreachable or failing
	ErrUnavailable = errors.New("voter audit service temporarily unavailable")

	// ErrRejected indicates the API answered but did not report success
	ErrRejected = errors.New("voter audit request rejected")

	// ErrUnexpectedResponse indicates a response body that could not be understood
	ErrUnexpectedResponse = errors.New("unexpected voter audit response")
)

// RejectedError carries the API's own explanation for a rejection.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return ErrRejected.Error() + ": " + e.Message
}

// Is lets errors.Is(err, ErrRejected) match.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// RejectionMessage returns the API's message for a rejection, or "".
func RejectionMessage(err error) string {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Message
	}
	return ""
}

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
}

// WrapError wraps an error with the operation that produced it
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("voteraudit %s: %w", operation, err)
}
