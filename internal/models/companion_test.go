package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCompanions() []Companion {
	return []Companion{
		{ID: "c1", Name: "Aiko", Archetype: "Tsundere", AnimeSource: "Original", Tags: []string{"school", "romance"}},
		{ID: "c2", Name: "Gojo", Archetype: "Ore-sama", AnimeSource: "Jujutsu Kaisen", Tags: []string{"action"}},
		{ID: "c3", Name: "Aiko", Archetype: "Deredere", AnimeSource: "Duplicate", Tags: []string{"zzz"}},
		{ID: "c4", Name: "Frieren", Archetype: "Kuudere", AnimeSource: "Sousou no Frieren", Tags: []string{"fantasy", "magic", "romance"}},
	}
}

func TestDedupeByName(t *testing.T) {
	got := DedupeByName(sampleCompanions())
	require.Len(t, got, 3)
	assert.Equal(t, "c1", got[0].ID, "first occurrence wins")
	assert.Equal(t, "c2", got[1].ID)
	assert.Equal(t, "c4", got[2].ID)
}

func TestExtractTags(t *testing.T) {
	tags := ExtractTags(DedupeByName(sampleCompanions()))
	assert.Equal(t, []string{AllTag, "action", "fantasy", "magic", "romance", "school"}, tags)

	assert.Equal(t, []string{AllTag}, ExtractTags(nil))
}

func TestFilterCompanions(t *testing.T) {
	companions := DedupeByName(sampleCompanions())

	tests := []struct {
		name  string
		tag   string
		query string
		want  []string
	}{
		{"no filter", "", "", []string{"c1", "c2", "c4"}},
		{"all tag", AllTag, "", []string{"c1", "c2", "c4"}},
		{"by tag", "romance", "", []string{"c1", "c4"}},
		{"by name", "", "gOjO", []string{"c2"}},
		{"by archetype", "", "kuudere", []string{"c4"}},
		{"by source", "", "jujutsu", []string{"c2"}},
		{"tag and query", "romance", "frieren", []string{"c4"}},
		{"no match", "action", "aiko", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterCompanions(companions, tt.tag, tt.query)
			ids := make([]string, 0, len(got))
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
