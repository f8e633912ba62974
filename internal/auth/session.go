// Package auth talks to the authentication provider and persists the
// resulting session between runs.
package auth

import (
	"strings"
	"time"
)

// User is the provider's view of the signed-in account.
type User struct {
	ID        string         `json:"id" yaml:"id"`
	Email     string         `json:"email" yaml:"email"`
	Metadata  map[string]any `json:"user_metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
}

// DisplayName returns the metadata username, else the email local part,
// else "User".
func (u User) DisplayName() string {
	if name, ok := u.Metadata["username"].(string); ok && strings.TrimSpace(name) != "" {
		return name
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return "User"
}

// Session is an issued access token plus the user it belongs to.
type Session struct {
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	ExpiresAt    time.Time `yaml:"expires_at"`
	User         User      `yaml:"user"`
}

// Expired reports whether the access token expires within leeway of now.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.ExpiresAt)
}

// EventKind identifies an auth state change.
type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
	TokenRefreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case TokenRefreshed:
		return "token_refreshed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers on every auth state change.
// Session is nil for SignedOut.
type Event struct {
	Kind    EventKind
	Session *Session
}
