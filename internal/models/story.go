package models

import (
	"fmt"
	"time"
)

// Media kinds a story can carry.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Story is one timed media item in a companion's story set.
type Story struct {
	ID          string    `json:"id"`
	CompanionID string    `json:"companion_id"`
	MediaURL    string    `json:"media_url"`
	MediaType   string    `json:"media_type"`
	Duration    int       `json:"duration"` // seconds
	OrderIndex  int       `json:"order_index"`
	Mood        string    `json:"mood,omitempty"`
	IsPremium   bool      `json:"is_premium,omitempty"`
	IsLocked    bool      `json:"is_locked,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DurationTime returns the story's display duration.
func (s Story) DurationTime() time.Duration {
	return time.Duration(s.Duration) * time.Second
}

// StoriesGrouped is the ordered story set of one companion.
type StoriesGrouped struct {
	CompanionID   string  `json:"companion_id"`
	CompanionName string  `json:"companion_name"`
	AvatarURL     string  `json:"avatar_url"`
	Stories       []Story `json:"stories"`
}

// Validate checks that order indexes are strictly increasing.
func (g StoriesGrouped) Validate() error {
	for i := 1; i < len(g.Stories); i++ {
		if g.Stories[i].OrderIndex <= g.Stories[i-1].OrderIndex {
			return fmt.Errorf("story %s: order index %d not after %d",
				g.Stories[i].ID, g.Stories[i].OrderIndex, g.Stories[i-1].OrderIndex)
		}
	}
	return nil
}
