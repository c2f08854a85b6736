package chatbot

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
)

// Language is the conversation language picked on the first step.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageHindi   Language = "hindi"
)

// Session is one participant's chatbot conversation. It holds everything the
// flow needs between messages, including the upstream bearer token. A
// Session is not safe for concurrent use; the session store serialises
// access.
type Session struct {
	Language Language
	Step     Step

	// Upstream identity
	Token       string
	TokenExpiry time.Time // Zero when the token carries no readable exp
	User        domain.AuditUser

	// registrationPhone is set between a "notexist" lookup and a
	// successful create_user.
	registrationPhone string

	// Current audit
	Description string
	ImageURLs   []string

	// certificateName is set after a successful submission.
	certificateName string
}

// NewSession returns a session at the language step.
func NewSession() *Session {
	return &Session{Language: LanguageEnglish, Step: StepLanguage}
}

// SetToken stores the bearer token and reads its expiry from the unverified
// exp claim. The token is verified upstream, never here.
func (s *Session) SetToken(token string) {
	s.Token = token
	s.TokenExpiry = time.Time{}

	var claims jwt.RegisteredClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return
	}
	if claims.ExpiresAt != nil {
		s.TokenExpiry = claims.ExpiresAt.Time
	}
}

// Authenticated reports whether a token is held and not known to be expired.
func (s *Session) Authenticated(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.TokenExpiry.IsZero() || now.Before(s.TokenExpiry)
}

// Logout drops the upstream identity.
func (s *Session) Logout() {
	s.Token = ""
	s.TokenExpiry = time.Time{}
}

// Location returns the booth the participant is registered at.
func (s *Session) Location() domain.AuditLocation {
	return domain.AuditLocation{
		State:       s.User.State,
		District:    s.User.District,
		Assembly:    s.User.Assembly,
		BoothNumber: s.User.BoothNumber,
	}
}

// CertificateName returns the name printed on the certificate, or "" when
// no certificate has been earned in this session.
func (s *Session) CertificateName() string {
	return s.certificateName
}

// clearAudit drops the current audit but keeps identity.
func (s *Session) clearAudit() {
	s.Description = ""
	s.ImageURLs = nil
	s.certificateName = ""
}

// Close tears the session down. Every field returns to its initial value.
func (s *Session) Close() {
	*s = *NewSession()
}
