package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/anikama/anikama-cli/internal/models"
	"github.com/anikama/anikama-cli/internal/story"
)

const affinityBarWidth = 20

// affinityBar draws the relationship meter, e.g. "[██████░░░░] 55% Friend".
func affinityBar(score int) string {
	pct := models.AffinityPercent(score)
	filled := int(pct / 100 * affinityBarWidth)
	tier := models.TierFor(score)
	return fmt.Sprintf("[%s%s] %.0f%% Lv.%d %s",
		strings.Repeat("█", filled), strings.Repeat("░", affinityBarWidth-filled),
		pct, tier.Level, tier.Label)
}

// renderCompanionCard renders one dashboard card.
func renderCompanionCard(t Theme, c models.Companion) string {
	var b strings.Builder
	b.WriteString(t.titleStyle().Render(c.Name))
	if c.HasStories {
		b.WriteString(" " + t.companionStyle().Render("● stories"))
	}
	b.WriteString("\n")

	sub := c.Archetype
	if c.AnimeSource != "" {
		sub += " · " + c.AnimeSource
	}
	b.WriteString(t.hintStyle().Render(sub))

	if len(c.PersonalityTraits) > 0 {
		b.WriteString("\n" + strings.Join(c.PersonalityTraits, ", "))
	}
	if len(c.Tags) > 0 {
		b.WriteString("\n#" + strings.Join(c.Tags, " #"))
	}
	if c.Relationship != nil {
		mood := c.Relationship.CurrentMood
		b.WriteString("\n" + affinityBar(c.Relationship.AffinityScore))
		if mood != "" {
			b.WriteString("\nmood: " + t.moodStyle(story.MoodFilter(mood)).Render(mood))
		}
	}
	b.WriteString("\n" + t.hintStyle().Render("id: "+c.ID))
	return t.cardStyle().Render(b.String())
}

// renderCompanionCards writes one card per companion, two per row.
func renderCompanionCards(w io.Writer, t Theme, companions []models.Companion) {
	for i := 0; i < len(companions); i += 2 {
		row := []string{renderCompanionCard(t, companions[i])}
		if i+1 < len(companions) {
			row = append(row, renderCompanionCard(t, companions[i+1]))
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
}

// renderTags writes the tag filter bar, marking the active tag.
func renderTags(w io.Writer, t Theme, tags []string, active string) {
	if active == "" {
		active = models.AllTag
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == active {
			parts = append(parts, t.titleStyle().Render("["+tag+"]"))
			continue
		}
		parts = append(parts, t.hintStyle().Render(tag))
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

// renderMessage renders one chat bubble line.
func renderMessage(t Theme, companionName string, m models.ChatMessage) string {
	stamp := t.hintStyle().Render(m.Timestamp.Local().Format("15:04"))
	if m.Sender == models.SenderCompanion {
		return fmt.Sprintf("%s %s %s", stamp, t.companionStyle().Render(companionName+":"), m.Content)
	}
	return fmt.Sprintf("%s %s %s", stamp, t.userStyle().Render("You:"), m.Content)
}

// renderMessages renders a transcript, with a typing line while a reply is pending.
func renderMessages(t Theme, companionName string, msgs []models.ChatMessage, typing bool) string {
	var b strings.Builder
	if len(msgs) == 0 {
		b.WriteString(t.hintStyle().Render("No messages yet. Say hi!") + "\n")
	}
	for _, m := range msgs {
		b.WriteString(renderMessage(t, companionName, m) + "\n")
	}
	if typing {
		b.WriteString(t.hintStyle().Render(companionName+" is typing...") + "\n")
	}
	return b.String()
}

// renderChatList writes the chat threads, newest activity first as served.
func renderChatList(w io.Writer, t Theme, chats []models.ChatListItem, now time.Time) {
	for _, c := range chats {
		fmt.Fprintf(w, "- %s %s\n", t.titleStyle().Render(c.CompanionName), t.hintStyle().Render(ago(now, c.LastMessageAt)))
		if c.LastMessage != "" {
			fmt.Fprintf(w, "  %s\n", truncate(c.LastMessage, 60))
		}
		fmt.Fprintf(w, "  %s\n", t.hintStyle().Render("anikama chat "+c.CompanionID))
	}
}

// renderRelationship writes the affinity block for one companion.
func renderRelationship(w io.Writer, t Theme, name string, r models.RelationshipStatus) {
	fmt.Fprintln(w, t.titleStyle().Render(name))
	if !r.Found {
		fmt.Fprintln(w, t.hintStyle().Render("No relationship yet."))
	}
	fmt.Fprintln(w, affinityBar(r.AffinityScore))
	mood := r.CurrentMood
	if mood == "" {
		mood = models.MoodNeutral
	}
	fmt.Fprintf(w, "Mood: %s\n", t.moodStyle(story.MoodFilter(mood)).Render(mood))
	if r.LastInteractionAt != nil {
		fmt.Fprintf(w, "Last interaction: %s\n", r.LastInteractionAt.Local().Format(time.DateTime))
	}
}

// renderStoryGroups writes the story ring list.
func renderStoryGroups(w io.Writer, t Theme, groups []models.StoriesGrouped) {
	for _, g := range groups {
		locked := 0
		for _, s := range g.Stories {
			if s.IsLocked {
				locked++
			}
		}
		line := fmt.Sprintf("- %s  %d stories", t.titleStyle().Render(g.CompanionName), len(g.Stories))
		if locked > 0 {
			line += t.hintStyle().Render(fmt.Sprintf(" (%d premium)", locked))
		}
		fmt.Fprintln(w, line)
		fmt.Fprintf(w, "  %s\n", t.hintStyle().Render("anikama story "+g.CompanionID))
	}
}

func ago(now, then time.Time) string {
	if then.IsZero() {
		return ""
	}
	d := now.Sub(then)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
