package ports

import (
	"context"
	"time"
)

type User struct {
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Credentials are the SSO login inputs.
type Credentials struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type Session struct {
	Token     string    `json:"session_token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionEventKind string

const (
	SessionLoggedIn  SessionEventKind = "login"
	SessionLoggedOut SessionEventKind = "logout"
	SessionExpired   SessionEventKind = "expired"
)

type SessionEvent struct {
	Kind  SessionEventKind
	Token string
	User  User
}

// SessionGuard gates entry to protected views. The pipeline only asks whether
// a token is authenticated and who owns it; it never receives data from it.
type SessionGuard interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
	Logout(ctx context.Context, token string) error
	IsAuthenticated(ctx context.Context, token string) bool
	CurrentUser(ctx context.Context, token string) (User, bool)
	// Observe registers fn for session lifecycle events until cancel is called.
	Observe(fn func(SessionEvent)) (cancel func())
}
