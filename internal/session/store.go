// Package session holds the signed-in identity for one client runtime.
//
// Access rules: only Subscription writes identity (Set, SetToken, Clear);
// the wallet top-up flow and the profile page write the balance
// (SetBalance); everything else reads.
package session

import (
	"sync"
	"time"
)

// TierPremium is the tier value that unlocks premium stories.
const TierPremium = "premium"

// User is the session's identity and derived profile.
type User struct {
	ID        string
	Username  string
	Email     string
	Tier      string
	HushCoins int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store holds at most one active session. The zero value is an empty store.
type Store struct {
	mu    sync.RWMutex
	user  *User
	token string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Current returns a copy of the session user, or nil when signed out.
func (s *Store) Current() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Set replaces the session. Any previous session is discarded.
func (s *Store) Set(u User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	s.token = token
}

// SetToken swaps the bearer token of the current session, keeping the
// user and balance. It reports false when no session exists for userID.
func (s *Store) SetToken(userID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != userID {
		return false
	}
	s.token = token
	return true
}

// Clear drops the session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
}

// Token returns the bearer token, or "" when signed out.
// It satisfies client.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetBalance updates the session balance. It is a no-op when signed out.
func (s *Store) SetBalance(coins int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		s.user.HushCoins = coins
	}
}

// Authenticated reports whether a session exists.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsPremium reports whether the session user is on the premium tier.
func (s *Store) IsPremium() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Tier == TierPremium
}
