package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"

	"github.com/anikama/anikama-cli/internal/models"
	"github.com/anikama/anikama-cli/internal/story"
)

const (
	// frameInterval drives the progress bar.
	frameInterval = 100 * time.Millisecond
	// flashDuration is how long a sent reaction stays on screen.
	flashDuration = time.Second
)

// reactionEmoji maps number keys to reactions.
var reactionEmoji = map[string]string{
	"1": "❤️",
	"2": "🔥",
	"3": "😂",
	"4": "😡",
}

// reactionFlash shows the local effect of a reaction before the backend answers.
type reactionFlash struct {
	mu     sync.Mutex
	action string
	at     time.Time
}

func (f *reactionFlash) set(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.action = action
	f.at = time.Now()
}

func (f *reactionFlash) current(now time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.action == "" || now.Sub(f.at) > flashDuration {
		return ""
	}
	for _, emoji := range reactionEmoji {
		if models.ReactionAction(emoji) == f.action {
			return emoji
		}
	}
	return ""
}

// frameMsg re-renders the viewer.
type frameMsg time.Time

// reactedMsg reports a finished reaction; the outcome is in the viewer's toast.
type reactedMsg struct{ err error }

// affinityReader peeks at a cached relationship without fetching.
type affinityReader interface {
	Cached(companionID string) (models.RelationshipStatus, bool)
}

// storyModel is the bubbletea model for the story viewer.
type storyModel struct {
	ctx      context.Context
	viewer   *story.Viewer
	affinity affinityReader
	flash    *reactionFlash
	progress progress.Model
	theme    Theme
}

func newStoryModel(ctx context.Context, v *story.Viewer, affinity affinityReader, flash *reactionFlash) storyModel {
	return storyModel{
		ctx:      ctx,
		viewer:   v,
		affinity: affinity,
		flash:    flash,
		progress: progress.New(progress.WithDefaultBlend(), progress.WithWidth(40)),
		theme:    defaultTheme,
	}
}

// Init starts the countdown.
func (m storyModel) Init() tea.Cmd {
	m.viewer.Start()
	return tea.Batch(frameCmd(), m.progress.Init())
}

// Update handles messages and returns the updated model.
func (m storyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "q", "esc":
			m.viewer.Close()
			return m, tea.Quit
		case "left", "h":
			m.viewer.Tap(story.ZoneLeft)
		case "right", "l":
			m.viewer.Tap(story.ZoneRight)
		case "space", " ":
			m.viewer.Tap(story.ZoneBody)
		case "enter":
			m.viewer.DismissReaction()
		default:
			if emoji, ok := reactionEmoji[key]; ok {
				return m, m.react(models.ReactionAction(emoji))
			}
		}
		if m.viewer.Closed() {
			return m, tea.Quit
		}
		return m, nil

	case frameMsg:
		if m.viewer.Closed() {
			return m, tea.Quit
		}
		return m, frameCmd()

	case reactedMsg:
		return m, nil

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the viewer.
func (m storyModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m storyModel) renderContent() string {
	if m.viewer.Closed() {
		return ""
	}
	group := m.viewer.Group()
	cur, _ := m.viewer.Current()

	var b strings.Builder
	mood := m.viewer.Mood()
	header := fmt.Sprintf("%s  %d/%d", m.theme.titleStyle().Render(group.CompanionName),
		m.viewer.Index()+1, len(group.Stories))
	b.WriteString(header + "  " + m.theme.moodStyle(story.MoodFilter(mood)).Render("mood: "+mood) + "\n")
	if rel, ok := m.affinity.Cached(group.CompanionID); ok {
		b.WriteString(affinityBar(rel.AffinityScore) + "\n")
	}
	b.WriteString(m.progress.ViewAs(m.viewer.Progress()) + "\n\n")

	switch {
	case m.viewer.ReactionMedia() != "":
		b.WriteString(m.theme.companionStyle().Render("▶ "+m.viewer.ReactionMedia()) + "\n")
		b.WriteString(m.theme.hintStyle().Render("enter to dismiss") + "\n")
	case m.viewer.Locked():
		b.WriteString(m.theme.hintStyle().Render("🔒 Premium story. Upgrade to unlock.") + "\n")
	default:
		b.WriteString(fmt.Sprintf("[%s] %s\n", cur.MediaType, cur.MediaURL))
	}

	if m.viewer.Paused() && m.viewer.ReactionMedia() == "" {
		b.WriteString(m.theme.hintStyle().Render("⏸ paused") + "\n")
	}
	if emoji := m.flash.current(time.Now()); emoji != "" {
		b.WriteString(strings.Repeat(emoji+" ", 3) + "\n")
	}
	if toast := m.viewer.Toast(); toast != "" {
		b.WriteString("\n" + m.theme.successStyle().Render(toast) + "\n")
	}

	b.WriteString("\n" + m.theme.hintStyle().Render("←/→ navigate · space pause · 1-4 react · q close"))
	return b.String()
}

// react runs in a separate goroutine (command) to avoid blocking Update().
func (m storyModel) react(action string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.viewer.React(m.ctx, action)
		return reactedMsg{err: err}
	}
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
