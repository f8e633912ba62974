package cli

import (
	"context"
	"fmt"
	"sort"

	tea "charm.land/bubbletea/v2"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/anikama/anikama-cli/internal/models"
	"github.com/anikama/anikama-cli/internal/story"
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List companions with stories",
	RunE:  runStories,
}

var storyCmd = &cobra.Command{
	Use:   "story <companionId>",
	Short: "Watch a companion's stories",
	Long: `Watch a companion's stories full-screen. Stories advance on their own.

Keys:
  ←/h  →/l   previous / next story
  space      pause or resume (resuming restarts the story)
  1 2 3 4    react with ❤️ 🔥 😂 😡
  enter      dismiss a reaction clip
  q/esc      close`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationView: viewFullScreen},
	RunE:        runStory,
}

func runStories(cmd *cobra.Command, args []string) error {
	groups, err := apiClient.ListStories(cmd.Context())
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}
	if len(groups) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stories right now.")
		return nil
	}
	renderStoryGroups(cmd.OutOrStdout(), defaultTheme, groups)
	return nil
}

// findStoryGroup returns the companion's stories in play order.
func findStoryGroup(ctx context.Context, companionID string) (models.StoriesGrouped, error) {
	groups, err := apiClient.ListStories(ctx)
	if err != nil {
		return models.StoriesGrouped{}, fmt.Errorf("list stories: %w", err)
	}
	for _, g := range groups {
		if g.CompanionID != companionID {
			continue
		}
		if err := g.Validate(); err != nil {
			logger.Warn("stories out of order, sorting", "companion_id", companionID, "error", err)
			sort.SliceStable(g.Stories, func(i, j int) bool {
				return g.Stories[i].OrderIndex < g.Stories[j].OrderIndex
			})
		}
		return g, nil
	}
	return models.StoriesGrouped{}, fmt.Errorf("no stories for companion %s", companionID)
}

func runStory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	group, err := findStoryGroup(ctx, args[0])
	if err != nil {
		return err
	}

	// Prime the relationship so reactions bump it optimistically.
	mood := models.MoodNeutral
	if sessions.Authenticated() {
		if rel, err := relationships.Get(ctx, group.CompanionID); err == nil && rel.CurrentMood != "" {
			mood = rel.CurrentMood
		}
	}

	flash := &reactionFlash{}
	viewer := story.NewViewer(group, clockwork.NewRealClock(), relationships,
		story.WithMood(mood),
		story.WithLogger(logger),
		story.WithEffect(flash.set),
	)

	p := tea.NewProgram(newStoryModel(ctx, viewer, relationships, flash))
	if _, err := p.Run(); err != nil {
		viewer.Close()
		return fmt.Errorf("story UI error: %w", err)
	}
	return nil
}
