package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/anikama/anikama-cli/internal/models"
)

// historyWindow is how many recent messages are shown to the model.
const historyWindow = 10

// SuggestOpener drafts the user's next message to a companion, in the tone
// of the conversation so far. The result is a draft; it is never sent.
func (m *Model) SuggestOpener(ctx context.Context, c models.Companion, history []models.ChatMessage) (string, error) {
	systemPrompt := fmt.Sprintf(`You help a user chat with %s, an anime character.
Character: %s from %s.
Traits: %s.
Write ONE short, friendly message the user could send next. Reply with the message text only.`,
		c.Name, c.Archetype, orUnknown(c.AnimeSource), orUnknown(strings.Join(c.PersonalityTraits, ", ")))

	userPrompt := "There is no conversation yet. Suggest an opening line."
	if len(history) > 0 {
		userPrompt = fmt.Sprintf("Conversation so far:\n%s\nSuggest the user's next message.",
			formatHistory(c.Name, history))
	}

	text, err := m.GenerateWithSystem(ctx, systemPrompt, userPrompt,
		llms.WithTemperature(0.9),
		llms.WithMaxTokens(1024),
		llms.WithTopK(40),
		llms.WithTopP(0.95),
	)
	if err != nil {
		return "", fmt.Errorf("suggest opener: %w", err)
	}
	return cleanSuggestion(text), nil
}

func formatHistory(companionName string, history []models.ChatMessage) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var b strings.Builder
	for _, msg := range history {
		speaker := "User"
		if msg.Sender == models.SenderCompanion {
			speaker = companionName
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, msg.Content)
	}
	return b.String()
}

// cleanSuggestion strips wrapping quotes and speaker labels models like to add.
func cleanSuggestion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "User:")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"“”`)
	return strings.TrimSpace(s)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
