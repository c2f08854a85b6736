// Package mock provides an in-memory voteraudit.Client for tests and local
// development.
package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/voteraudit"
)

// Client is a mock voter-audit API backed by a participant map.
type Client struct {
	mu     sync.Mutex
	logger *slog.Logger

	users  map[string]domain.AuditUser // by phone
	tokens map[string]string           // token -> phone

	// Configurable failures for testing
	CheckUserError   error
	LoginError       error
	CreateUserError  error
	SubmitAuditError error

	// Call tracking for testing
	CheckUserCalls  int
	LoginCalls      int
	CreateUserCalls int
	Audits          []domain.AuditRecord
}

// New creates a new mock client with no registered participants
func New(logger *slog.Logger) *Client {
	return &Client{
		logger: logger,
		users:  make(map[string]domain.AuditUser),
		tokens: make(map[string]string),
	}
}

// AddUser registers a participant directly.
func (c *Client) AddUser(u domain.AuditUser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	c.users[u.Phone] = u
}

// ExpireTokens invalidates every issued token.
func (c *Client) ExpireTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = make(map[string]string)
}

// CheckUser reports whether phone is registered.
func (c *Client) CheckUser(ctx context.Context, phone string) (voteraudit.UserStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CheckUserCalls++

	if c.CheckUserError != nil {
		return "", c.CheckUserError
	}
	if _, ok := c.users[phone]; ok {
		return voteraudit.UserExists, nil
	}
	return voteraudit.UserNotExists, nil
}

// Login issues a random token for a registered phone.
func (c *Client) Login(ctx context.Context, phone string) (*voteraudit.LoginResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LoginCalls++

	if c.LoginError != nil {
		return nil, c.LoginError
	}
	u, ok := c.users[phone]
	if !ok {
		return nil, &voteraudit.RejectedError{Message: "user not found"}
	}
	token := uuid.NewString()
	c.tokens[token] = phone
	return &voteraudit.LoginResult{Token: token, User: u}, nil
}

// CreateUser registers a participant. Duplicate phones are rejected.
func (c *Client) CreateUser(ctx context.Context, user voteraudit.NewUser) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CreateUserCalls++

	if c.CreateUserError != nil {
		return c.CreateUserError
	}
	if _, ok := c.users[user.Phone]; ok {
		return &voteraudit.RejectedError{Message: "user already exists"}
	}
	c.users[user.Phone] = domain.AuditUser{
		ID:          uuid.NewString(),
		Phone:       user.Phone,
		Name:        user.Name,
		State:       user.State,
		District:    user.District,
		Assembly:    user.Assembly,
		BoothNumber: user.BoothNumber,
	}
	if c.logger != nil {
		c.logger.Debug("mock voter audit user created", "phone", user.Phone)
	}
	return nil
}

// SubmitAudit records the audit when token is current.
func (c *Client) SubmitAudit(ctx context.Context, token string, record domain.AuditRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SubmitAuditError != nil {
		return c.SubmitAuditError
	}
	if _, ok := c.tokens[token]; !ok {
		return voteraudit.ErrUnauthorized
	}
	c.Audits = append(c.Audits, record)
	return nil
}

// Reset clears call counters, failures and recorded audits. Registered
// participants are kept.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CheckUserCalls = 0
	c.LoginCalls = 0
	c.CreateUserCalls = 0
	c.Audits = nil
	c.CheckUserError = nil
	c.LoginError = nil
	c.CreateUserError = nil
	c.SubmitAuditError = nil
}

var _ voteraudit.Client = (*Client)(nil)
