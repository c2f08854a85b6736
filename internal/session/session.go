// Package session holds per-visitor server state (form wizards and chatbot
// conversations) in memory, keyed by an opaque cookie.
//
// Nothing is persisted: a restart or an idle period longer than the TTL
// loses the session.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/metrics"
)

const (
	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// DefaultTTL is the idle lifetime of a session.
	DefaultTTL = 2 * time.Hour

	// DefaultCleanupInterval is how often expired sessions are swept.
	DefaultCleanupInterval = 5 * time.Minute
)

// Config configures a Store.
type Config struct {
	TTL    time.Duration
	Secure bool // Set the Secure cookie attribute (HTTPS deployments)
}

// Store is an in-memory session store for values of type T. Each session has
// its own lock; a Lease holds it until Release.
type Store[T any] struct {
	kind     string // Cookie suffix and metric label
	ttl      time.Duration
	secure   bool
	newValue func() T
	onExpire func(T)
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry[T]
}

type entry[T any] struct {
	mu      sync.Mutex
	value   T
	expires time.Time // Guarded by Store.mu
}

// Lease is exclusive access to one session's value.
type Lease[T any] struct {
	ID    string
	Value T

	once    sync.Once
	release func()
}

// Release unlocks the session. It is safe to call more than once.
func (l *Lease[T]) Release() {
	l.once.Do(l.release)
}

// NewStore creates a store. newValue builds the value of a fresh session;
// onExpire, if non-nil, runs on values removed by expiry or End.
func NewStore[T any](kind string, cfg Config, newValue func() T, onExpire func(T)) *Store[T] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Store[T]{
		kind:     kind,
		ttl:      cfg.TTL,
		secure:   cfg.Secure,
		newValue: newValue,
		onExpire: onExpire,
		now:      time.Now,
		entries:  make(map[string]*entry[T]),
	}
}

// CookieName is the cookie carrying this store's session ID.
func (s *Store[T]) CookieName() string {
	return "taskforce_" + s.kind
}

// =============================================================================
// Lookup and Creation
// =============================================================================

// Load returns the locked session named by the request cookie. It reports
// false when there is no cookie or the session has expired.
func (s *Store[T]) Load(r *http.Request) (*Lease[T], bool) {
	cookie, err := r.Cookie(s.CookieName())
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return s.acquire(cookie.Value)
}

// Begin creates a session, sets its cookie on w and returns it locked.
func (s *Store[T]) Begin(w http.ResponseWriter) (*Lease[T], error) {
	id, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	e := &entry[T]{value: s.newValue()}
	e.mu.Lock()

	s.mu.Lock()
	e.expires = s.now().Add(s.ttl)
	s.entries[id] = e
	n := len(s.entries)
	s.mu.Unlock()

	metrics.ActiveSessions.WithLabelValues(s.kind).Set(float64(n))
	s.setCookie(w, id)
	return &Lease[T]{ID: id, Value: e.value, release: e.mu.Unlock}, nil
}

// LoadOrBegin returns the request's session, creating one if needed.
func (s *Store[T]) LoadOrBegin(w http.ResponseWriter, r *http.Request) (*Lease[T], error) {
	if l, ok := s.Load(r); ok {
		return l, nil
	}
	return s.Begin(w)
}

// End removes the request's session and clears its cookie. The caller must
// not hold a lease on that session.
func (s *Store[T]) End(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.CookieName()); err == nil {
		s.remove(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName(),
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Len returns the number of live sessions.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// acquire locks the session id and slides its expiry.
func (s *Store[T]) acquire(id string) (*Lease[T], bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if !s.now().Before(e.expires) {
		s.mu.Unlock()
		s.remove(id)
		return nil, false
	}
	e.expires = s.now().Add(s.ttl)
	s.mu.Unlock()

	e.mu.Lock()
	return &Lease[T]{ID: id, Value: e.value, release: e.mu.Unlock}, true
}

func (s *Store[T]) remove(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	n := len(s.entries)
	s.mu.Unlock()

	if !ok {
		return
	}
	metrics.ActiveSessions.WithLabelValues(s.kind).Set(float64(n))
	s.expire(e)
}

// expire hands the value to onExpire once no request holds it.
func (s *Store[T]) expire(e *entry[T]) {
	if s.onExpire == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s.onExpire(e.value)
}

func (s *Store[T]) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName(),
		Value:    id,
		Path:     CookiePath,
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// =============================================================================
// Cleanup
// =============================================================================

// Sweep removes every expired session and returns how many were removed.
func (s *Store[T]) Sweep() int {
	now := s.now()

	s.mu.Lock()
	var expired []*entry[T]
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			expired = append(expired, e)
			delete(s.entries, id)
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.ActiveSessions.WithLabelValues(s.kind).Set(float64(n))
	for _, e := range expired {
		s.expire(e)
	}
	return len(expired)
}

// RunCleanup sweeps expired sessions every interval until ctx is done.
func (s *Store[T]) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
