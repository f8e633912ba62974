package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anikama/anikama-cli/internal/models"
)

func TestShowDashboard_OneCardPerCompanion(t *testing.T) {
	var buf bytes.Buffer
	showDashboard(&buf, defaultTheme, []models.Companion{
		{ID: "c1", Name: "Aiko", Archetype: "Tsundere", AnimeSource: "Original", Tags: []string{"tsundere"}},
	}, "", "")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "╭"), "one card")
	assert.Contains(t, out, "Aiko")
	assert.Contains(t, out, "Tsundere · Original")
	assert.Contains(t, out, "[All]")
}

func TestShowDashboard_DedupesAndFilters(t *testing.T) {
	companions := []models.Companion{
		{ID: "c1", Name: "Aiko", Archetype: "Tsundere", Tags: []string{"tsundere"}},
		{ID: "c2", Name: "Aiko", Archetype: "Duplicate"},
		{ID: "c3", Name: "Rei", Archetype: "Kuudere", AnimeSource: "Evangelion", Tags: []string{"kuudere"}},
	}

	var all bytes.Buffer
	showDashboard(&all, defaultTheme, companions, "", "")
	assert.Equal(t, 2, strings.Count(all.String(), "╭"))
	assert.NotContains(t, all.String(), "Duplicate")

	var byTag bytes.Buffer
	showDashboard(&byTag, defaultTheme, companions, "kuudere", "")
	assert.Equal(t, 1, strings.Count(byTag.String(), "╭"))
	assert.Contains(t, byTag.String(), "Rei")

	var bySearch bytes.Buffer
	showDashboard(&bySearch, defaultTheme, companions, "", "EVANGELION")
	assert.Contains(t, bySearch.String(), "Rei")
	assert.NotContains(t, bySearch.String(), "id: c1")

	var none bytes.Buffer
	showDashboard(&none, defaultTheme, companions, "", "nobody")
	assert.Contains(t, none.String(), "No companions found.")
}

func TestAffinityBar(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{-100, "0% Lv.1 Acquaintance"},
		{10, "55% Lv.1 Acquaintance"},
		{30, "65% Lv.2 Friend"},
		{60, "80% Lv.3 Close Friend"},
		{100, "100% Lv.4 Partner"},
		{250, "100% Lv.4 Partner"},
	}
	for _, tt := range tests {
		bar := affinityBar(tt.score)
		assert.True(t, strings.HasSuffix(bar, tt.want), "score %d: %s", tt.score, bar)
		assert.Equal(t, affinityBarWidth, strings.Count(bar, "█")+strings.Count(bar, "░"))
	}
}

func TestRenderMessages(t *testing.T) {
	assert.Contains(t, renderMessages(defaultTheme, "Aiko", nil, false), "No messages yet")

	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)
	out := renderMessages(defaultTheme, "Aiko", []models.ChatMessage{
		{Sender: models.SenderUser, Content: "hello", Timestamp: at},
		{Sender: models.SenderCompanion, Content: "Hi there!", Timestamp: at},
	}, true)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if assert.Len(t, lines, 3) {
		assert.Contains(t, lines[0], "You: hello")
		assert.Contains(t, lines[1], "Aiko: Hi there!")
		assert.Contains(t, lines[2], "Aiko is typing...")
	}
	assert.Contains(t, lines[0], "09:30")
}

func TestRenderRelationship(t *testing.T) {
	var buf bytes.Buffer
	renderRelationship(&buf, defaultTheme, "Aiko", models.DefaultRelationship())
	out := buf.String()
	assert.Contains(t, out, "No relationship yet.")
	assert.Contains(t, out, "50% Lv.1 Acquaintance")
	assert.Contains(t, out, "Mood: neutral")
}

func TestRenderStoryGroups(t *testing.T) {
	var buf bytes.Buffer
	renderStoryGroups(&buf, defaultTheme, []models.StoriesGrouped{{
		CompanionID:   "c1",
		CompanionName: "Aiko",
		Stories:       []models.Story{{ID: "s1"}, {ID: "s2", IsLocked: true}},
	}})
	assert.Contains(t, buf.String(), "2 stories")
	assert.Contains(t, buf.String(), "(1 premium)")
	assert.Contains(t, buf.String(), "anikama story c1")
}

func TestAgo(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		then time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-50 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ago(now, tt.then))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
