package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// Provider is the contract the session layer consumes.
type Provider interface {
	// CurrentSession returns the active session or nil when signed out.
	CurrentSession(ctx context.Context) (*Session, error)
	// Subscribe returns a channel of auth events and a func that ends the
	// subscription and closes the channel.
	Subscribe() (<-chan Event, func())
}

var (
	// ErrNotConfigured is returned when no provider URL or key is set.
	ErrNotConfigured = errors.New("auth provider not configured")
	// ErrConfirmationRequired is returned by SignUp when the provider
	// issued no session until the email address is confirmed.
	ErrConfirmationRequired = errors.New("check your email to confirm the account")
	// ErrAlreadyRegistered is returned by SignUp for a known email address.
	ErrAlreadyRegistered = errors.New("this email is already registered, try logging in")
)

// refreshLeeway is how close to expiry a token is refreshed on read.
const refreshLeeway = 30 * time.Second

// GoTrue is a Provider backed by the Supabase auth API.
type GoTrue struct {
	client     gotrue.Client
	configured bool
	httpClient *http.Client
	store      *FileStore
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	current *Session
	loaded  bool
	subs    map[int]chan Event
	nextSub int
}

// GoTrueOption configures a GoTrue provider.
type GoTrueOption func(*GoTrue)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) GoTrueOption {
	return func(g *GoTrue) { g.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GoTrueOption {
	return func(g *GoTrue) { g.logger = l }
}

// WithNow overrides the time source.
func WithNow(now func() time.Time) GoTrueOption {
	return func(g *GoTrue) { g.now = now }
}

// NewGoTrue creates a provider for the Supabase project at baseURL.
func NewGoTrue(baseURL, anonKey string, store *FileStore, opts ...GoTrueOption) *GoTrue {
	baseURL = strings.TrimRight(baseURL, "/")
	g := &GoTrue{
		configured: baseURL != "" && anonKey != "",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
		logger:     slog.Default(),
		now:        time.Now,
		subs:       make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.client = gotrue.New("", anonKey).
		WithCustomGoTrueURL(baseURL + "/auth/v1").
		WithClient(*g.httpClient)
	return g
}

// CurrentSession returns the stored session, refreshing it first when the
// access token is about to expire. A failed refresh signs the user out.
func (g *GoTrue) CurrentSession(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	if !g.loaded {
		s, err := g.store.Load()
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
		g.current = s
		g.loaded = true
	}
	s := g.current
	g.mu.Unlock()

	if s == nil || !s.Expired(g.now(), refreshLeeway) {
		return s, nil
	}
	if s.RefreshToken == "" {
		g.logger.Info("session expired", "user_id", s.User.ID)
		g.signOutLocal()
		return nil, nil
	}

	refreshed, err := g.Refresh(ctx)
	if err != nil {
		g.logger.Warn("session refresh failed", "error", err)
		g.signOutLocal()
		return nil, nil
	}
	return refreshed, nil
}

// Subscribe registers for auth events.
func (g *GoTrue) Subscribe() (<-chan Event, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextSub
	g.nextSub++
	ch := make(chan Event, 8)
	g.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.subs, id)
			close(ch)
		})
	}
}

// SignIn authenticates with email and password.
func (g *GoTrue) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if err := g.ready(ctx); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	resp, err := g.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", providerError(err))
	}
	s, err := g.session(resp.Session)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	g.setSession(s, SignedIn)
	return s, nil
}

// SignUp creates an account storing username in the user metadata.
// It returns ErrConfirmationRequired when the project requires email
// confirmation before issuing a session.
func (g *GoTrue) SignUp(ctx context.Context, email, password, username string) (*Session, error) {
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("username is required")
	}
	if err := g.ready(ctx); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	resp, err := g.client.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     map[string]interface{}{"username": username},
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", providerError(err))
	}
	// Without auto-confirm the provider answers with the bare user.
	if resp.AccessToken == "" {
		if resp.User.Identities != nil && len(resp.User.Identities) == 0 {
			return nil, ErrAlreadyRegistered
		}
		return nil, ErrConfirmationRequired
	}
	s, err := g.session(resp.Session)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	g.setSession(s, SignedIn)
	return s, nil
}

// Refresh exchanges the refresh token for a new access token.
func (g *GoTrue) Refresh(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	cur := g.current
	g.mu.Unlock()
	if cur == nil || cur.RefreshToken == "" {
		return nil, errors.New("refresh session: no refresh token")
	}
	if err := g.ready(ctx); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	resp, err := g.client.RefreshToken(cur.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", providerError(err))
	}
	s, err := g.session(resp.Session)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	g.setSession(s, TokenRefreshed)
	return s, nil
}

// SignOut revokes the session at the provider and clears it locally.
// The local session is cleared even if revocation fails.
func (g *GoTrue) SignOut(ctx context.Context) error {
	g.mu.Lock()
	if !g.loaded {
		if s, err := g.store.Load(); err == nil {
			g.current = s
		}
		g.loaded = true
	}
	cur := g.current
	g.mu.Unlock()

	if cur != nil && g.ready(ctx) == nil {
		if err := g.client.WithToken(cur.AccessToken).Logout(); err != nil {
			g.logger.Warn("remote sign out failed", "error", providerError(err))
		}
	}
	return g.signOutLocal()
}

func (g *GoTrue) signOutLocal() error {
	err := g.store.Clear()
	g.mu.Lock()
	g.current = nil
	g.loaded = true
	g.mu.Unlock()
	g.emit(Event{Kind: SignedOut})
	return err
}

func (g *GoTrue) setSession(s *Session, kind EventKind) {
	if err := g.store.Save(s); err != nil {
		g.logger.Warn("failed to persist session", "error", err)
	}
	g.mu.Lock()
	g.current = s
	g.loaded = true
	g.mu.Unlock()
	g.logger.Info("auth state changed", "event", kind.String(), "user_id", s.User.ID)
	g.emit(Event{Kind: kind, Session: s})
}

func (g *GoTrue) emit(ev Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, ch := range g.subs {
		select {
		case ch <- ev:
		default:
			g.logger.Warn("auth subscriber lagging, event dropped", "subscriber", id, "event", ev.Kind.String())
		}
	}
}

// ready reports why no provider request can be made.
// The SDK takes no context, so cancellation is only checked up front.
func (g *GoTrue) ready(ctx context.Context) error {
	if !g.configured {
		return ErrNotConfigured
	}
	return ctx.Err()
}

func (g *GoTrue) session(ps types.Session) (*Session, error) {
	if ps.AccessToken == "" {
		return nil, errors.New("provider returned no access token")
	}
	s := &Session{
		AccessToken:  ps.AccessToken,
		RefreshToken: ps.RefreshToken,
		User: User{
			ID:        ps.User.ID.String(),
			Email:     ps.User.Email,
			Metadata:  ps.User.UserMetadata,
			CreatedAt: ps.User.CreatedAt,
			UpdatedAt: ps.User.UpdatedAt,
		},
	}
	switch {
	case ps.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(ps.ExpiresAt, 0)
	case ps.ExpiresIn > 0:
		s.ExpiresAt = g.now().Add(time.Duration(ps.ExpiresIn) * time.Second)
	}
	return s, nil
}

// errorBody is the provider's error payload; field names vary by endpoint.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorBody) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// providerError reduces an SDK error that carries the raw response body,
// e.g. "response status code 400: {...}", to the provider's message.
func providerError(err error) error {
	msg := err.Error()
	i := strings.Index(msg, "{")
	if i < 0 {
		return err
	}
	var body errorBody
	if json.Unmarshal([]byte(msg[i:]), &body) != nil || body.text() == "" {
		return err
	}
	return errors.New(body.text())
}
