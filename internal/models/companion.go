// Package models defines the data structures exchanged with the anikama backend.
package models

import (
	"sort"
	"strings"
	"time"
)

// Companion represents a chat-able character profile.
type Companion struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	AnimeSource       string        `json:"anime_source"`
	Archetype         string        `json:"archetype"`
	AvatarURL         string        `json:"avatar_url"`
	PersonalityTraits []string      `json:"personality_traits"`
	Tags              []string      `json:"tags"`
	SystemPrompt      string        `json:"system_prompt,omitempty"`
	Mood              string        `json:"mood"`
	PersonalityType   string        `json:"personality_type,omitempty"`
	HasStories        bool          `json:"has_stories"`
	CreatedAt         time.Time     `json:"created_at"`
	Relationship      *Relationship `json:"relationship,omitempty"`
}

// AllTag is the pseudo-tag that disables tag filtering.
const AllTag = "All"

// maxTags caps the number of distinct tags offered for filtering.
const maxTags = 5

// DedupeByName keeps the first companion for every distinct name, preserving order.
func DedupeByName(companions []Companion) []Companion {
	seen := make(map[string]struct{}, len(companions))
	out := make([]Companion, 0, len(companions))
	for _, c := range companions {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ExtractTags returns AllTag followed by the alphabetically first distinct tags.
func ExtractTags(companions []Companion) []string {
	set := make(map[string]struct{})
	for _, c := range companions {
		for _, t := range c.Tags {
			set[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return append([]string{AllTag}, tags...)
}

// FilterCompanions narrows companions by tag and a case-insensitive search
// over name, archetype and source. An empty tag or AllTag matches everything.
func FilterCompanions(companions []Companion, tag, query string) []Companion {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Companion, 0, len(companions))
	for _, c := range companions {
		if tag != "" && tag != AllTag && !hasTag(c, tag) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Archetype), q) &&
			!strings.Contains(strings.ToLower(c.AnimeSource), q) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasTag(c Companion, tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// UserAffinity is the legacy XP-based affinity attached to a companion detail.
type UserAffinity struct {
	UserID          string    `json:"user_id"`
	CompanionID     string    `json:"companion_id"`
	XP              int       `json:"xp"`
	Level           int       `json:"level"`
	LastInteraction time.Time `json:"last_interaction"`
	CreatedAt       time.Time `json:"created_at"`
}

// CompanionDetail is a single companion plus the caller's affinity, if any.
type CompanionDetail struct {
	Companion
	Affinity *UserAffinity `json:"affinity,omitempty"`
}
