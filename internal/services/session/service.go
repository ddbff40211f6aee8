// Package session is the in-process Session Guard: SSO-token login, opaque
// session tokens with expiry, and lifecycle events for observers.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vantage/internal/ports"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownSession     = errors.New("unknown session")
)

// DefaultRoles are granted to every SSO login.
var DefaultRoles = []string{"analyst"}

type session struct {
	user    ports.User
	expires time.Time
}

type Service struct {
	ssoToken string
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu        sync.Mutex
	sessions  map[string]session
	observers map[int]func(ports.SessionEvent)
	nextObs   int
}

var _ ports.SessionGuard = (*Service)(nil)

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// New creates a guard accepting SSO logins that present ssoToken.
func New(ssoToken string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		ssoToken:  ssoToken,
		ttl:       ttl,
		now:       time.Now,
		log:       zap.NewNop(),
		sessions:  map[string]session{},
		observers: map[int]func(ports.SessionEvent){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Login(_ context.Context, creds ports.Credentials) (ports.Session, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || s.ssoToken == "" || creds.Token != s.ssoToken {
		s.log.Info("login rejected", zap.String("email", email))
		return ports.Session{}, ErrInvalidCredentials
	}
	now := s.now()
	user := ports.User{Email: email, Roles: append([]string(nil), DefaultRoles...), CreatedAt: now.UTC()}
	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = session{user: user, expires: now.Add(s.ttl)}
	s.mu.Unlock()

	s.emit(ports.SessionEvent{Kind: ports.SessionLoggedIn, Token: token, User: user})
	return ports.Session{Token: token, User: user, ExpiresAt: now.Add(s.ttl)}, nil
}

func (s *Service) Logout(_ context.Context, token string) error {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}
	s.emit(ports.SessionEvent{Kind: ports.SessionLoggedOut, Token: token, User: sess.user})
	return nil
}

func (s *Service) IsAuthenticated(ctx context.Context, token string) bool {
	_, ok := s.CurrentUser(ctx, token)
	return ok
}

func (s *Service) CurrentUser(_ context.Context, token string) (ports.User, bool) {
	if token == "" {
		return ports.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || !s.now().Before(sess.expires) {
		return ports.User{}, false
	}
	return sess.user, true
}

// HasRole reports whether the session's user carries role.
func (s *Service) HasRole(ctx context.Context, token, role string) bool {
	user, ok := s.CurrentUser(ctx, token)
	if !ok {
		return false
	}
	for _, r := range user.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Service) Observe(fn func(ports.SessionEvent)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Sweep removes sessions that expired before now and notifies observers.
func (s *Service) Sweep(now time.Time) int {
	var expired []ports.SessionEvent
	s.mu.Lock()
	for token, sess := range s.sessions {
		if !now.Before(sess.expires) {
			delete(s.sessions, token)
			expired = append(expired, ports.SessionEvent{Kind: ports.SessionExpired, Token: token, User: sess.user})
		}
	}
	s.mu.Unlock()
	for _, ev := range expired {
		s.emit(ev)
	}
	return len(expired)
}

func (s *Service) emit(ev ports.SessionEvent) {
	s.mu.Lock()
	fns := make([]func(ports.SessionEvent), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
