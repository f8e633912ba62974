package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anikama/anikama-cli/internal/auth"
)

// defaultTier is assigned until the backend profile says otherwise.
const defaultTier = "free"

// Subscription feeds auth provider events into a Store.
type Subscription struct {
	provider auth.Provider
	store    *Store
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSubscription binds a provider to a store.
func NewSubscription(p auth.Provider, s *Store, logger *slog.Logger) *Subscription {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscription{provider: p, store: s, logger: logger}
}

// Start loads the initial session and then applies provider events until
// Stop is called or ctx is cancelled. Calling Start twice is an error.
func (sub *Subscription) Start(ctx context.Context) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.done != nil {
		return fmt.Errorf("start session subscription: already started")
	}

	events, unsubscribe := sub.provider.Subscribe()

	s, err := sub.provider.CurrentSession(ctx)
	if err != nil {
		unsubscribe()
		return fmt.Errorf("load session: %w", err)
	}
	sub.apply(auth.Event{Kind: auth.SignedIn, Session: s})

	ctx, cancel := context.WithCancel(ctx)
	sub.cancel = cancel
	sub.done = make(chan struct{})

	go func() {
		defer close(sub.done)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				sub.logger.Debug("auth event", "event", ev.Kind.String())
				sub.apply(ev)
			}
		}
	}()
	return nil
}

// Stop ends the subscription and waits for the event loop to exit.
func (sub *Subscription) Stop() {
	sub.mu.Lock()
	cancel, done := sub.cancel, sub.done
	sub.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// apply mirrors an auth event into the store. A token refresh for the
// signed-in user only swaps the token.
func (sub *Subscription) apply(ev auth.Event) {
	s := ev.Session
	if s == nil {
		sub.store.Clear()
		return
	}
	if ev.Kind == auth.TokenRefreshed && sub.store.SetToken(s.User.ID, s.AccessToken) {
		return
	}
	sub.store.Set(FromAuth(s.User), s.AccessToken)
}

// FromAuth maps a provider user to a session user.
func FromAuth(u auth.User) User {
	return User{
		ID:        u.ID,
		Username:  u.DisplayName(),
		Email:     u.Email,
		Tier:      defaultTier,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
