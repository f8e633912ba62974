package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/anikama/anikama-cli/internal/models"
)

// profileFetchLimit bounds concurrent relationship reads on the profile page.
const profileFetchLimit = 4

var relationshipCmd = &cobra.Command{
	Use:   "relationship <companionId>",
	Short: "Show your affinity with a companion",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelationship,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your balance and relationships",
	RunE:  runProfile,
}

func runRelationship(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rel, err := relationships.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get relationship: %w", err)
	}
	renderRelationship(cmd.OutOrStdout(), defaultTheme, companionName(ctx, args[0]), rel)
	return nil
}

// bond is one companion the user has positive affinity with.
type bond struct {
	companion models.Companion
	status    models.RelationshipStatus
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if _, err := requireSession(); err != nil {
		return err
	}

	profile, err := apiClient.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	sessions.SetBalance(profile.HushCoins)

	companions, err := apiClient.ListCompanions(ctx)
	if err != nil {
		return fmt.Errorf("list companions: %w", err)
	}
	bonds, err := loadBonds(ctx, models.DedupeByName(companions))
	if err != nil {
		return err
	}

	printProfile(out, profile, bonds)
	return nil
}

// loadBonds reads every relationship and keeps those with affinity above
// zero, strongest first.
func loadBonds(ctx context.Context, companions []models.Companion) ([]bond, error) {
	statuses := make([]models.RelationshipStatus, len(companions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(profileFetchLimit)
	for i, c := range companions {
		g.Go(func() error {
			rel, err := relationships.Get(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("relationship %s: %w", c.Name, err)
			}
			statuses[i] = rel
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var bonds []bond
	for i, c := range companions {
		if statuses[i].AffinityScore > 0 {
			bonds = append(bonds, bond{companion: c, status: statuses[i]})
		}
	}
	sort.SliceStable(bonds, func(i, j int) bool {
		return bonds[i].status.AffinityScore > bonds[j].status.AffinityScore
	})
	return bonds, nil
}

func printProfile(w io.Writer, u *models.User, bonds []bond) {
	t := defaultTheme
	fmt.Fprintln(w, t.titleStyle().Render(u.Username))
	fmt.Fprintf(w, "  Tier:  %s\n", u.Tier)
	fmt.Fprintf(w, "  Coins: %d\n", u.HushCoins)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(w, "  Since: %s\n", u.CreatedAt.Local().Format("Jan 2006"))
	}

	fmt.Fprintln(w)
	if len(bonds) == 0 {
		fmt.Fprintln(w, t.hintStyle().Render("No relationships yet. Start a chat!"))
		return
	}
	fmt.Fprintln(w, t.titleStyle().Render("Relationships"))
	for _, b := range bonds {
		fmt.Fprintf(w, "  %-16s %s\n", b.companion.Name, affinityBar(b.status.AffinityScore))
	}
}
