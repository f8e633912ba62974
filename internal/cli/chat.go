package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/anikama/anikama-cli/internal/chat"
	"github.com/anikama/anikama-cli/internal/models"
)

var (
	chatMessage    string
	historyOffline bool
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List your conversations",
	RunE:  runChats,
}

var chatCmd = &cobra.Command{
	Use:   "chat <companionId>",
	Short: "Chat with a companion",
	Long: `Open a conversation with a companion.

Without --message a full-screen chat opens. With --message one message is
sent and the reply is printed.

Examples:
  anikama chat 7f3c...
  anikama chat 7f3c... -m "Good morning!"`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationView: viewFullScreen},
	RunE:        runChat,
}

var historyCmd = &cobra.Command{
	Use:   "history <companionId>",
	Short: "Print the conversation with a companion",
	Long: `Print the conversation with a companion.

With --offline the copy in the chat archive (ANIKAMA_ARCHIVE_URL) is read
instead of the backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "send one message and print the reply")
	historyCmd.Flags().BoolVar(&historyOffline, "offline", false, "read the local chat archive")
}

func runChats(cmd *cobra.Command, args []string) error {
	if _, err := requireSession(); err != nil {
		return err
	}
	chats, err := apiClient.ListChats(cmd.Context())
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	if len(chats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No conversations yet. Try 'anikama companions'.")
		return nil
	}
	renderChatList(cmd.OutOrStdout(), defaultTheme, chats, time.Now())
	return nil
}

// companionName resolves a display name, falling back to the id.
func companionName(ctx context.Context, id string) string {
	detail, err := apiClient.GetCompanion(ctx, id)
	if err != nil {
		logger.Warn("companion lookup failed", "companion_id", id, "error", err)
		return id
	}
	return detail.Name
}

// newConversation wires a conversation, archiving it when an archive is configured.
func newConversation(ctx context.Context, companionID string) *chat.Conversation {
	opts := []chat.Option{chat.WithLogger(logger)}
	if u := sessions.Current(); u != nil {
		archive, err := getArchive(ctx)
		if err != nil {
			logger.Warn("chat archive disabled", "error", err)
		} else if archive != nil {
			opts = append(opts, chat.WithArchive(archive.Archive(u.ID)))
		}
	}
	return chat.NewConversation(companionID, apiClient, chat.NewCache(), sessions, opts...)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	companionID := args[0]
	name := companionName(ctx, companionID)
	conv := newConversation(ctx, companionID)

	if chatMessage == "" {
		p := tea.NewProgram(newChatModel(ctx, conv, name))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("chat UI error: %w", err)
		}
		return nil
	}

	if err := conv.Load(ctx); err != nil {
		return err
	}
	err := conv.Send(ctx, chatMessage)
	if errors.Is(err, chat.ErrAuthRequired) {
		return fmt.Errorf("%w: run 'anikama login' first", err)
	}
	if errors.Is(err, chat.ErrEmptyMessage) {
		return err
	}

	// Send always leaves the reply or the apology last.
	msgs := conv.Messages()
	fmt.Fprintln(cmd.OutOrStdout(), renderMessage(defaultTheme, name, msgs[len(msgs)-1]))
	return err
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	companionID := args[0]
	u, err := requireSession()
	if err != nil {
		return err
	}

	var msgs []models.ChatMessage
	if historyOffline {
		archive, err := getArchive(ctx)
		if err != nil {
			return err
		}
		if archive == nil {
			return errors.New("no chat archive configured (set ANIKAMA_ARCHIVE_URL)")
		}
		msgs, err = archive.Archive(u.ID).LoadMessages(ctx, companionID)
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
	} else {
		history, err := apiClient.ChatHistory(ctx, companionID)
		if err != nil {
			return fmt.Errorf("chat history: %w", err)
		}
		for _, h := range history {
			msgs = append(msgs, h.ToChatMessage())
		}
	}

	if len(msgs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No messages yet.")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), renderMessages(defaultTheme, companionName(ctx, companionID), msgs, false))
	return nil
}
