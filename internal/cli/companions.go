package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anikama/anikama-cli/internal/models"
)

var (
	companionsTag    string
	companionsSearch string
)

var companionsCmd = &cobra.Command{
	Use:   "companions",
	Short: "Browse companions",
	Long: `List companions as cards, optionally narrowed by tag or search text.

The search matches name, archetype and source, ignoring case.

Examples:
  anikama companions
  anikama companions --tag tsundere
  anikama companions --search "spy family"`,
	RunE: runCompanions,
}

var companionCmd = &cobra.Command{
	Use:   "companion <id>",
	Short: "Show one companion's profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompanion,
}

func init() {
	companionsCmd.Flags().StringVarP(&companionsTag, "tag", "t", "", "only companions with this tag")
	companionsCmd.Flags().StringVarP(&companionsSearch, "search", "s", "", "search name, archetype and source")
}

func runCompanions(cmd *cobra.Command, args []string) error {
	companions, err := apiClient.ListCompanions(cmd.Context())
	if err != nil {
		return fmt.Errorf("list companions: %w", err)
	}
	showDashboard(cmd.OutOrStdout(), defaultTheme, companions, companionsTag, companionsSearch)
	return nil
}

// showDashboard renders the companion grid: duplicates by name are dropped,
// then the tag and search filters apply.
func showDashboard(w io.Writer, t Theme, companions []models.Companion, tag, search string) {
	companions = models.DedupeByName(companions)
	renderTags(w, t, models.ExtractTags(companions), tag)
	fmt.Fprintln(w)

	filtered := models.FilterCompanions(companions, tag, search)
	if len(filtered) == 0 {
		fmt.Fprintln(w, "No companions found.")
		return
	}
	renderCompanionCards(w, t, filtered)
}

func runCompanion(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	detail, err := apiClient.GetCompanion(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get companion: %w", err)
	}

	fmt.Fprintln(out, renderCompanionCard(defaultTheme, detail.Companion))
	if detail.Affinity != nil {
		fmt.Fprintf(out, "XP %d · level %d\n", detail.Affinity.XP, detail.Affinity.Level)
	}
	if verbose && detail.SystemPrompt != "" {
		fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(detail.SystemPrompt))
	}

	if sessions.Authenticated() {
		rel, err := relationships.Get(ctx, detail.ID)
		if err != nil {
			logger.Warn("relationship unavailable", "companion_id", detail.ID, "error", err)
		} else {
			fmt.Fprintln(out)
			renderRelationship(out, defaultTheme, detail.Name, rel)
		}
	}

	fmt.Fprintln(out)
	hints := []string{"anikama chat " + detail.ID}
	if detail.HasStories {
		hints = append(hints, "anikama story "+detail.ID)
	}
	fmt.Fprintln(out, defaultTheme.hintStyle().Render(strings.Join(hints, "  |  ")))
	return nil
}
