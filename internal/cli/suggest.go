package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anikama/anikama-cli/internal/llm"
)

var suggestSend bool

var suggestCmd = &cobra.Command{
	Use:   "suggest <companionId>",
	Short: "Draft your next message with the configured LLM",
	Long: `Draft a message to a companion from the conversation so far.

The provider is chosen with ANIKAMA_LLM_PROVIDER (googleai, openai,
anthropic, ollama, bedrock). The draft is printed, not sent, unless --send
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestSend, "send", false, "send the draft")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	detail, err := apiClient.GetCompanion(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get companion: %w", err)
	}

	conv := newConversation(ctx, detail.ID)
	if err := conv.Load(ctx); err != nil {
		logger.Warn("suggesting without history", "companion_id", detail.ID, "error", err)
	}
	history := conv.Messages()

	model, err := llm.NewModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}
	model.WithMetrics(collector)
	logger.Debug("drafting suggestion", "model", model.Model(), "companion_id", detail.ID, "history", len(history))

	draft, err := model.SuggestOpener(ctx, detail.Companion, history)
	if err != nil {
		return err
	}

	if !suggestSend {
		fmt.Fprintln(out, draft)
		return nil
	}
	if err := conv.Send(ctx, draft); err != nil {
		return fmt.Errorf("send suggestion: %w", err)
	}
	msgs := conv.Messages()
	fmt.Fprintln(out, renderMessage(defaultTheme, detail.Name, msgs[len(msgs)-2]))
	fmt.Fprintln(out, renderMessage(defaultTheme, detail.Name, msgs[len(msgs)-1]))
	return nil
}
