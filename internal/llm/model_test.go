package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/anikama/anikama-cli/internal/config"
	"github.com/anikama/anikama-cli/internal/metrics"
	"github.com/anikama/anikama-cli/internal/models"
)

type fakeLLM struct {
	reply    string
	err      error
	messages []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

func promptText(m llms.MessageContent) string {
	var b strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(llms.TextContent); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

func TestIsFatalAPIError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"credit balance", errors.New("insufficient credit balance"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"quota exceeded", errors.New("quota exceeded for model"), true},
		{"billing issue", errors.New("billing account inactive"), true},
		{"invalid api key", errors.New("invalid api key"), true},
		{"gemini bad key", errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key."), true},
		{"unauthorized", errors.New("unauthorized request"), true},
		{"403 status", errors.New("HTTP 403: forbidden"), true},
		{"wrapped error", fmt.Errorf("generate: %w", errors.New("credit balance too low")), true},
		{"404 not fatal", errors.New("HTTP 404: not found"), false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, isFatalAPIError(tt.err))
		})
	}
}

func TestWrapFatalError(t *testing.T) {
	err := errors.New("invalid api key provided")
	assert.ErrorIs(t, wrapFatalError(err), ErrFatalAPI)
	assert.ErrorIs(t, wrapFatalError(err), err)

	plain := errors.New("network timeout")
	assert.Same(t, plain, wrapFatalError(plain))
	assert.NoError(t, wrapFatalError(nil))
}

func TestNewModel_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"googleai without key", config.Config{LLMProvider: config.ProviderGoogleAI}, "Gemini API key required"},
		{"openai without key", config.Config{LLMProvider: config.ProviderOpenAI}, "OpenAI API key required"},
		{"anthropic without key", config.Config{LLMProvider: config.ProviderAnthropic}, "Anthropic API key required"},
		{"unknown provider", config.Config{LLMProvider: "clippy"}, "unsupported LLM provider: clippy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerateWithSystem(t *testing.T) {
	fake := &fakeLLM{reply: "hello"}
	m := NewModelFrom(fake, "test-model").WithMetrics(metrics.NewCollector())

	got, err := m.GenerateWithSystem(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	require.Len(t, fake.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, "sys", promptText(fake.messages[0]))

	op := m.metrics.Get(metrics.OpLLMGenerate)
	require.NotNil(t, op)
	assert.Equal(t, int64(1), op.Count)
}

func TestGenerateWithSystem_FatalError(t *testing.T) {
	m := NewModelFrom(&fakeLLM{err: errors.New("quota exceeded")}, "test-model")
	_, err := m.GenerateWithSystem(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrFatalAPI)
}

func TestSuggestOpener(t *testing.T) {
	aiko := models.Companion{ID: "c1", Name: "Aiko", Archetype: "Tsundere", AnimeSource: "Original", PersonalityTraits: []string{"proud", "shy"}}

	t.Run("no history", func(t *testing.T) {
		fake := &fakeLLM{reply: `  "Hey Aiko, how was your day?"  `}
		m := NewModelFrom(fake, "test-model")

		got, err := m.SuggestOpener(context.Background(), aiko, nil)
		require.NoError(t, err)
		assert.Equal(t, "Hey Aiko, how was your day?", got)
		assert.Contains(t, promptText(fake.messages[0]), "Aiko")
		assert.Contains(t, promptText(fake.messages[0]), "proud, shy")
		assert.Contains(t, promptText(fake.messages[1]), "opening line")
	})

	t.Run("with history", func(t *testing.T) {
		fake := &fakeLLM{reply: "User: Sorry about earlier!"}
		m := NewModelFrom(fake, "test-model")
		history := []models.ChatMessage{
			{Sender: models.SenderUser, Content: "hi"},
			{Sender: models.SenderCompanion, Content: "Hmph."},
		}

		got, err := m.SuggestOpener(context.Background(), aiko, history)
		require.NoError(t, err)
		assert.Equal(t, "Sorry about earlier!", got)
		assert.Contains(t, promptText(fake.messages[1]), "User: hi\nAiko: Hmph.\n")
	})
}

func TestFormatHistory_Window(t *testing.T) {
	var history []models.ChatMessage
	for i := range 15 {
		history = append(history, models.ChatMessage{Sender: models.SenderUser, Content: fmt.Sprintf("m%d", i)})
	}
	out := formatHistory("Aiko", history)
	assert.NotContains(t, out, "m4\n")
	assert.Contains(t, out, "m5\n")
	assert.Contains(t, out, "m14\n")
}
