package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/anikama/anikama-cli/internal/chat"
)

const (
	// refreshInterval re-renders the transcript while a reply is pending.
	refreshInterval = 150 * time.Millisecond
	// visibleMessages caps the transcript shown above the input.
	visibleMessages = 20
)

// chatLoadedMsg reports the history load.
type chatLoadedMsg struct{ err error }

// chatSentMsg reports one send.
type chatSentMsg struct{ err error }

// refreshMsg triggers a re-render.
type refreshMsg time.Time

// chatModel is the bubbletea model for a conversation.
type chatModel struct {
	ctx      context.Context
	conv     *chat.Conversation
	name     string
	input    textinput.Model
	theme    Theme
	notice   string
	quitting bool
}

func newChatModel(ctx context.Context, conv *chat.Conversation, name string) chatModel {
	in := textinput.New()
	in.Placeholder = "Message " + name + "..."
	in.CharLimit = 2000
	in.Focus()

	return chatModel{
		ctx:   ctx,
		conv:  conv,
		name:  name,
		input: in,
		theme: defaultTheme,
	}
}

// Init loads the history.
func (m chatModel) Init() tea.Cmd {
	return m.load()
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			m.notice = ""
			return m, tea.Batch(m.send(text), refreshCmd())
		}

	case chatLoadedMsg:
		if msg.err != nil {
			m.notice = "Could not load history: " + msg.err.Error()
		}
		return m, nil

	case chatSentMsg:
		m.notice = sendNotice(msg.err)
		return m, nil

	case refreshMsg:
		if m.conv.Typing() {
			return m, refreshCmd()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sendNotice is the inline notice shown after a send. Backend failures show
// the apology in the transcript instead.
func sendNotice(err error) string {
	if errors.Is(err, chat.ErrAuthRequired) {
		return "Log in with 'anikama login' to chat."
	}
	return ""
}

// View renders the conversation.
func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m chatModel) renderContent() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.titleStyle().Render("Chat with "+m.name) + "\n\n")

	msgs := m.conv.Messages()
	if len(msgs) > visibleMessages {
		msgs = msgs[len(msgs)-visibleMessages:]
	}
	if m.conv.State() == chat.StateLoadingHistory {
		b.WriteString(m.theme.hintStyle().Render("Loading history...") + "\n")
	} else {
		b.WriteString(renderMessages(m.theme, m.name, msgs, m.conv.Typing()))
	}

	if m.notice != "" {
		b.WriteString("\n" + m.theme.errorStyle().Render(m.notice) + "\n")
	}
	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(m.theme.hintStyle().Render("enter send · esc quit"))
	return b.String()
}

func (m chatModel) load() tea.Cmd {
	return func() tea.Msg {
		return chatLoadedMsg{err: m.conv.Load(m.ctx)}
	}
}

// send runs in a separate goroutine (command) to avoid blocking Update().
func (m chatModel) send(text string) tea.Cmd {
	return func() tea.Msg {
		return chatSentMsg{err: m.conv.Send(m.ctx, text)}
	}
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}
