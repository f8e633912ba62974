// Package story implements the story viewer: timed auto-advance, pause,
// manual navigation and reactions, independent of how it is rendered.
//
// Resuming after a pause restarts the current story from zero. Every timer
// the viewer arms is cancelled on navigation, pause, dismissal and close.
package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/anikama/anikama-cli/internal/client"
	"github.com/anikama/anikama-cli/internal/models"
)

const (
	// ToastDuration is how long a toast stays visible.
	ToastDuration = 3 * time.Second
	// DefaultDuration is used for stories that declare no duration.
	DefaultDuration = 5 * time.Second
)

const (
	msgLoginToInteract = "Need to login to interact"
	msgInteractFailed  = "Failed to interact"
)

// Zone is the part of the viewport a tap landed on.
type Zone int

const (
	ZoneLeft Zone = iota
	ZoneRight
	ZoneBody
)

// Interactor records a reaction against a companion's story.
type Interactor interface {
	Interact(ctx context.Context, companionID, action, storyID string) (*models.InteractResult, error)
}

// Viewer steps through one companion's stories.
type Viewer struct {
	group      models.StoriesGrouped
	clock      clockwork.Clock
	interactor Interactor
	logger     *slog.Logger

	onClose  func()
	onChange func()
	onEffect func(action string)

	mu            sync.Mutex
	index         int
	paused        bool
	closed        bool
	started       bool
	mood          string
	toast         string
	reactionMedia string
	startedAt     time.Time
	frozen        float64

	advance    clockwork.Timer
	advanceGen uint64
	toastTimer clockwork.Timer
	toastGen   uint64
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithOnClose sets the callback run once when the viewer closes.
func WithOnClose(fn func()) Option {
	return func(v *Viewer) { v.onClose = fn }
}

// WithOnChange sets a callback run after timer-driven state changes.
func WithOnChange(fn func()) Option {
	return func(v *Viewer) { v.onChange = fn }
}

// WithEffect sets the callback for the immediate local reaction effect.
func WithEffect(fn func(action string)) Option {
	return func(v *Viewer) { v.onEffect = fn }
}

// WithMood sets the companion mood shown before any reaction.
func WithMood(mood string) Option {
	return func(v *Viewer) { v.mood = mood }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Viewer) { v.logger = l }
}

// NewViewer creates a viewer positioned at the first story. Call Start to
// begin the countdown.
func NewViewer(group models.StoriesGrouped, clock clockwork.Clock, interactor Interactor, opts ...Option) *Viewer {
	v := &Viewer{
		group:      group,
		clock:      clock,
		interactor: interactor,
		logger:     slog.Default(),
		mood:       models.MoodNeutral,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start arms the timer for the first story. A viewer with no stories closes.
func (v *Viewer) Start() {
	v.mu.Lock()
	if v.started || v.closed {
		v.mu.Unlock()
		return
	}
	v.started = true
	if len(v.group.Stories) == 0 {
		v.closeLocked()
		v.mu.Unlock()
		v.fireClose()
		return
	}
	v.armLocked()
	v.mu.Unlock()
}

// Group returns the story set being viewed.
func (v *Viewer) Group() models.StoriesGrouped {
	return v.group
}

// Index returns the current story position.
func (v *Viewer) Index() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index
}

// Current returns the current story.
func (v *Viewer) Current() (models.Story, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index >= len(v.group.Stories) {
		return models.Story{}, false
	}
	return v.group.Stories[v.index], true
}

// Paused reports whether the countdown is suspended.
func (v *Viewer) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

// Closed reports whether the viewer has closed.
func (v *Viewer) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Locked reports whether the current story is behind the paywall.
func (v *Viewer) Locked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lockedLocked()
}

// State describes the viewer as viewing[i], paused[i] or closed.
func (v *Viewer) State() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.closed:
		return "closed"
	case v.paused:
		return fmt.Sprintf("paused[%d]", v.index)
	default:
		return fmt.Sprintf("viewing[%d]", v.index)
	}
}

// Progress returns the current story's elapsed fraction in [0, 1].
// Locked stories report 0; paused stories report where they stopped.
func (v *Viewer) Progress() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.progressLocked()
}

// Mood returns the companion's current mood.
func (v *Viewer) Mood() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mood
}

// Toast returns the visible toast text, or "".
func (v *Viewer) Toast() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.toast
}

// ReactionMedia returns the reaction clip being shown, or "".
func (v *Viewer) ReactionMedia() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reactionMedia
}

// Next moves to the following story, or closes after the last.
func (v *Viewer) Next() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	closed := v.advanceLocked()
	v.mu.Unlock()
	if closed {
		v.fireClose()
	}
}

// Prev moves to the previous story. It does nothing on the first.
func (v *Viewer) Prev() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.index == 0 {
		return
	}
	v.index--
	v.armLocked()
}

// Tap handles a tap: left goes back, right goes forward, body toggles pause.
func (v *Viewer) Tap(z Zone) {
	switch z {
	case ZoneLeft:
		v.Prev()
	case ZoneRight:
		v.Next()
	case ZoneBody:
		v.TogglePause()
	}
}

// TogglePause suspends or resumes the countdown. While a reaction clip is
// showing it dismisses the clip instead.
func (v *Viewer) TogglePause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	if v.reactionMedia != "" {
		v.dismissLocked()
		return
	}
	if v.paused {
		v.paused = false
		v.armLocked()
		return
	}
	v.frozen = v.progressLocked()
	v.paused = true
	v.stopAdvanceLocked()
}

// DismissReaction hides the reaction clip and resumes the countdown.
func (v *Viewer) DismissReaction() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.reactionMedia == "" {
		return
	}
	v.dismissLocked()
}

// Close stops every timer and closes the viewer. It is safe to call twice.
func (v *Viewer) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closeLocked()
	v.mu.Unlock()
	v.fireClose()
}

// React sends a reaction for the current story. The local effect fires
// first; the outcome is shown as a toast. The returned error is for
// logging, the user-facing message is already in Toast.
func (v *Viewer) React(ctx context.Context, action string) (*models.InteractResult, error) {
	v.mu.Lock()
	if v.closed || v.index >= len(v.group.Stories) {
		v.mu.Unlock()
		return nil, errors.New("react: viewer closed")
	}
	storyID := v.group.Stories[v.index].ID
	v.mu.Unlock()

	if v.onEffect != nil {
		v.onEffect(action)
	}

	res, err := v.interactor.Interact(ctx, v.group.CompanionID, action, storyID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return res, err
	}

	if err != nil {
		v.logger.Warn("story reaction failed", "companion_id", v.group.CompanionID, "story_id", storyID, "error", err)
		v.showToastLocked(toastForError(err))
		return nil, err
	}

	if res.NewMood != "" {
		v.mood = res.NewMood
	}
	v.showToastLocked(res.ToastMessage)
	if res.ReactionVideoURL != "" {
		v.frozen = v.progressLocked()
		v.paused = true
		v.reactionMedia = res.ReactionVideoURL
		v.stopAdvanceLocked()
	}
	return res, nil
}

func toastForError(err error) string {
	if errors.Is(err, client.ErrUnauthenticated) {
		return msgLoginToInteract
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgInteractFailed
}

// MoodFilter names the visual treatment for a mood, or "" for none.
func MoodFilter(mood string) string {
	switch mood {
	case "jealous", "annoyed", "sad":
		return mood
	default:
		return ""
	}
}

func (v *Viewer) lockedLocked() bool {
	return v.index < len(v.group.Stories) && v.group.Stories[v.index].IsLocked
}

func (v *Viewer) progressLocked() float64 {
	if v.closed || v.lockedLocked() || v.index >= len(v.group.Stories) {
		return 0
	}
	if v.paused || !v.started {
		return v.frozen
	}
	d := v.durationLocked()
	p := float64(v.clock.Now().Sub(v.startedAt)) / float64(d)
	return min(max(p, 0), 1)
}

func (v *Viewer) durationLocked() time.Duration {
	d := v.group.Stories[v.index].DurationTime()
	if d <= 0 {
		return DefaultDuration
	}
	return d
}

// armLocked restarts the countdown for the current story.
func (v *Viewer) armLocked() {
	v.stopAdvanceLocked()
	v.frozen = 0
	if v.closed || v.paused || !v.started || v.lockedLocked() {
		return
	}
	v.startedAt = v.clock.Now()
	gen := v.advanceGen
	v.advance = v.clock.AfterFunc(v.durationLocked(), func() { v.expire(gen) })
}

func (v *Viewer) stopAdvanceLocked() {
	v.advanceGen++
	if v.advance != nil {
		v.advance.Stop()
		v.advance = nil
	}
}

func (v *Viewer) expire(gen uint64) {
	v.mu.Lock()
	if gen != v.advanceGen || v.closed || v.paused {
		v.mu.Unlock()
		return
	}
	v.advance = nil
	closed := v.advanceLocked()
	v.mu.Unlock()

	if closed {
		v.fireClose()
	}
	v.changed()
}

// advanceLocked moves forward and reports whether the viewer closed.
func (v *Viewer) advanceLocked() bool {
	if v.index < len(v.group.Stories)-1 {
		v.index++
		v.armLocked()
		return false
	}
	v.closeLocked()
	return true
}

func (v *Viewer) dismissLocked() {
	v.reactionMedia = ""
	v.paused = false
	v.armLocked()
}

func (v *Viewer) showToastLocked(msg string) {
	v.toastGen++
	if v.toastTimer != nil {
		v.toastTimer.Stop()
		v.toastTimer = nil
	}
	v.toast = msg
	if msg == "" {
		return
	}
	gen := v.toastGen
	v.toastTimer = v.clock.AfterFunc(ToastDuration, func() {
		v.mu.Lock()
		if gen != v.toastGen {
			v.mu.Unlock()
			return
		}
		v.toast = ""
		v.toastTimer = nil
		v.mu.Unlock()
		v.changed()
	})
}

func (v *Viewer) closeLocked() {
	v.closed = true
	v.stopAdvanceLocked()
	v.toastGen++
	if v.toastTimer != nil {
		v.toastTimer.Stop()
		v.toastTimer = nil
	}
	v.toast = ""
	v.reactionMedia = ""
}

func (v *Viewer) fireClose() {
	if v.onClose != nil {
		v.onClose()
	}
}

func (v *Viewer) changed() {
	if v.onChange != nil {
		v.onChange()
	}
}
