package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anikama/anikama-cli/internal/models"
)

// ApologyMessage is shown as the companion's turn when a send fails.
const ApologyMessage = "Sorry, I encountered an error. Please try again."

// localIDPrefix marks ids generated before the backend has seen a message.
const localIDPrefix = "local-"

var (
	// ErrEmptyMessage is returned for empty or whitespace-only input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrAuthRequired is returned when sending without a session.
	ErrAuthRequired = errors.New("sign in to chat")
)

// State is the conversation's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoadingHistory
	StateReady
	StateSending
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingHistory:
		return "loading-history"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Backend is the subset of the REST client a conversation needs.
type Backend interface {
	SendMessage(ctx context.Context, companionID, message string) (string, error)
	ChatHistory(ctx context.Context, companionID string) ([]models.HistoryMessage, error)
}

// Authenticator reports whether a session exists.
type Authenticator interface {
	Authenticated() bool
}

// Archive persists a companion's messages for offline reading.
type Archive interface {
	SaveMessages(ctx context.Context, companionID string, msgs []models.ChatMessage) error
}

// Conversation drives one companion's chat: history load and sends.
type Conversation struct {
	companionID string
	backend     Backend
	cache       *Cache
	auth        Authenticator
	archive     Archive
	logger      *slog.Logger
	now         func() time.Time

	// onAuthRequired is called when a send is refused for lack of a session.
	onAuthRequired func()

	mu      sync.Mutex
	state   State
	pending int
	loaded  bool
	lastErr error
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithArchive persists messages after every load and send.
func WithArchive(a Archive) Option {
	return func(c *Conversation) { c.archive = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conversation) { c.logger = l }
}

// WithAuthRequired sets the hook run when a send needs a session.
func WithAuthRequired(fn func()) Option {
	return func(c *Conversation) { c.onAuthRequired = fn }
}

// WithNow overrides the time source for message timestamps.
func WithNow(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// NewConversation creates an idle conversation with a companion.
func NewConversation(companionID string, backend Backend, cache *Cache, auth Authenticator, opts ...Option) *Conversation {
	c := &Conversation{
		companionID: companionID,
		backend:     backend,
		cache:       cache,
		auth:        auth,
		logger:      slog.Default(),
		now:         time.Now,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompanionID returns the companion this conversation is with.
func (c *Conversation) CompanionID() string {
	return c.companionID
}

// State returns the current state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Typing reports whether a reply is awaited.
func (c *Conversation) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}

// Err returns the error that put the conversation in StateError.
func (c *Conversation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Messages returns the companion's messages.
func (c *Conversation) Messages() []models.ChatMessage {
	return c.cache.Messages(c.companionID)
}

// Load fetches the history once and replaces the local list with it.
// It does nothing without a session or after a successful load; after a
// failure it may be called again.
func (c *Conversation) Load(ctx context.Context) error {
	if c.companionID == "" || !c.auth.Authenticated() {
		return nil
	}

	c.mu.Lock()
	if c.loaded || c.state == StateLoadingHistory {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLoadingHistory
	c.mu.Unlock()

	history, err := c.backend.ChatHistory(ctx, c.companionID)
	if err != nil {
		c.fail(err)
		return fmt.Errorf("load history: %w", err)
	}

	msgs := make([]models.ChatMessage, 0, len(history))
	for _, h := range history {
		m := h.ToChatMessage()
		if m.CompanionID == "" {
			m.CompanionID = c.companionID
		}
		msgs = append(msgs, m)
	}
	c.cache.Replace(c.companionID, msgs)

	c.mu.Lock()
	c.loaded = true
	c.lastErr = nil
	c.state = c.settledState()
	c.mu.Unlock()

	c.logger.Debug("chat history loaded", "companion_id", c.companionID, "messages", len(msgs))
	c.persist(ctx)
	return nil
}

// Send appends the user's message, asks the backend for a reply and appends
// it. On failure an apology is appended in the companion's place, so the list
// always grows by exactly two. Empty input and missing sessions are refused
// before anything is appended.
func (c *Conversation) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !c.auth.Authenticated() {
		if c.onAuthRequired != nil {
			c.onAuthRequired()
		}
		return ErrAuthRequired
	}

	c.cache.Append(c.companionID, c.message(models.SenderUser, text))

	c.mu.Lock()
	c.pending++
	c.state = StateSending
	c.mu.Unlock()

	reply, err := c.backend.SendMessage(ctx, c.companionID, text)

	if err != nil {
		c.cache.Append(c.companionID, c.message(models.SenderCompanion, ApologyMessage))
	} else {
		c.cache.Append(c.companionID, c.message(models.SenderCompanion, reply))
	}

	c.mu.Lock()
	c.pending--
	if err != nil {
		c.state = StateError
		c.lastErr = err
	} else if c.state != StateError || c.pending == 0 {
		c.lastErr = nil
		c.state = c.settledState()
	}
	c.mu.Unlock()

	c.persist(ctx)

	if err != nil {
		c.logger.Warn("send message failed", "companion_id", c.companionID, "error", err)
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// settledState is the state to rest in; callers hold c.mu.
func (c *Conversation) settledState() State {
	if c.pending > 0 {
		return StateSending
	}
	return StateReady
}

func (c *Conversation) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateError
	c.lastErr = err
	c.logger.Warn("chat history load failed", "companion_id", c.companionID, "error", err)
}

func (c *Conversation) message(sender models.Sender, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:          localIDPrefix + uuid.NewString(),
		Sender:      sender,
		Content:     content,
		Timestamp:   c.now(),
		CompanionID: c.companionID,
	}
}

func (c *Conversation) persist(ctx context.Context) {
	if c.archive == nil {
		return
	}
	if err := c.archive.SaveMessages(ctx, c.companionID, c.Messages()); err != nil {
		c.logger.Warn("archive chat failed", "companion_id", c.companionID, "error", err)
	}
}
