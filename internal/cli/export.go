package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anikama/anikama-cli/internal/models"
)

var (
	exportCompanion string
	exportOffline   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export conversations to Markdown files",
	Long: `Export your conversations to Markdown files, one per companion, with
the thread metadata in frontmatter.

Examples:
  anikama export ./chats
  anikama export ./chats --companion 7f3c...
  anikama export ./chats --offline`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportCompanion, "companion", "", "export only this companion")
	exportCmd.Flags().BoolVar(&exportOffline, "offline", false, "read the local chat archive")
}

// transcriptMeta is the frontmatter of an exported conversation.
type transcriptMeta struct {
	CompanionID   string    `yaml:"companion_id"`
	CompanionName string    `yaml:"companion_name"`
	Messages      int       `yaml:"messages"`
	ExportedAt    time.Time `yaml:"exported_at"`
}

// transcriptMarkdown renders one conversation as a Markdown document.
func transcriptMarkdown(companionID, name string, msgs []models.ChatMessage, exportedAt time.Time) ([]byte, error) {
	meta, err := yaml.Marshal(transcriptMeta{
		CompanionID:   companionID,
		CompanionName: name,
		Messages:      len(msgs),
		ExportedAt:    exportedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", name)
	for _, m := range msgs {
		speaker := "You"
		if m.Sender == models.SenderCompanion {
			speaker = name
		}
		fmt.Fprintf(&b, "**%s** _%s_\n\n%s\n\n", speaker, m.Timestamp.UTC().Format(time.DateTime), m.Content)
	}
	return b.Bytes(), nil
}

// exportFilename turns a companion name into a safe file name.
func exportFilename(name, id string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '_':
			return '-'
		default:
			return -1
		}
	}, name)
	if slug == "" {
		slug = id
	}
	return slug + ".md"
}

func runExport(cmd *cobra.Command, args []string) error {
	exportPath := args[0]
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	u, err := requireSession()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(exportPath, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	threads := map[string]string{} // companion id -> name
	if exportCompanion != "" {
		threads[exportCompanion] = companionName(ctx, exportCompanion)
	} else {
		chats, err := apiClient.ListChats(ctx)
		if err != nil {
			return fmt.Errorf("list chats: %w", err)
		}
		for _, c := range chats {
			threads[c.CompanionID] = c.CompanionName
		}
	}
	if len(threads) == 0 {
		fmt.Fprintln(out, "No conversations to export.")
		return nil
	}

	fmt.Fprintf(out, "Exporting %d conversations...\n", len(threads))
	now := time.Now()
	exported := 0
	for id, name := range threads {
		msgs, err := exportMessages(ctx, u.ID, id)
		if err != nil {
			fmt.Fprintf(out, "Warning: skipping %s: %v\n", name, err)
			continue
		}
		content, err := transcriptMarkdown(id, name, msgs, now)
		if err != nil {
			return err
		}
		filename := filepath.Join(exportPath, exportFilename(name, id))
		if err := os.WriteFile(filename, content, 0o644); err != nil {
			fmt.Fprintf(out, "Warning: failed to write %s: %v\n", filename, err)
			continue
		}
		exported++
		if verbose {
			fmt.Fprintf(out, "  Exported: %s\n", filename)
		}
	}

	fmt.Fprintf(out, "\nExported %d conversations to %s\n", exported, exportPath)
	return nil
}

func exportMessages(ctx context.Context, userID, companionID string) ([]models.ChatMessage, error) {
	if exportOffline {
		archive, err := getArchive(ctx)
		if err != nil {
			return nil, err
		}
		if archive == nil {
			return nil, fmt.Errorf("no chat archive configured (set ANIKAMA_ARCHIVE_URL)")
		}
		return archive.Archive(userID).LoadMessages(ctx, companionID)
	}

	history, err := apiClient.ChatHistory(ctx, companionID)
	if err != nil {
		return nil, err
	}
	msgs := make([]models.ChatMessage, 0, len(history))
	for _, h := range history {
		msgs = append(msgs, h.ToChatMessage())
	}
	return msgs, nil
}
