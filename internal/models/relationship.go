package models

import "time"

// Affinity score bounds enforced by the backend.
const (
	MinAffinity = -100
	MaxAffinity = 100
)

// MoodNeutral is the mood reported when no relationship exists yet.
const MoodNeutral = "neutral"

// Relationship is the affinity state between the session user and a companion.
type Relationship struct {
	UserID            string    `json:"user_id"`
	CompanionID       string    `json:"companion_id"`
	AffinityScore     int       `json:"affinity_score"`
	CurrentMood       string    `json:"current_mood"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
}

// RelationshipStatus is the payload of GET /relationship/{companionId}.
type RelationshipStatus struct {
	Found             bool       `json:"found"`
	AffinityScore     int        `json:"affinity_score"`
	CurrentMood       string     `json:"current_mood"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
}

// DefaultRelationship is reported for callers without a session.
func DefaultRelationship() RelationshipStatus {
	return RelationshipStatus{Found: false, AffinityScore: 0, CurrentMood: MoodNeutral}
}

// ClampScore bounds an affinity score to [MinAffinity, MaxAffinity].
func ClampScore(score int) int {
	if score > MaxAffinity {
		return MaxAffinity
	}
	if score < MinAffinity {
		return MinAffinity
	}
	return score
}

// AffinityPercent maps a score onto a 0..100 progress fill.
func AffinityPercent(score int) float64 {
	pct := float64(ClampScore(score)+100) / 2
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// AffinityTier describes the relationship level shown next to the bar.
type AffinityTier struct {
	Level int
	Label string
}

// TierFor returns the level and label for a score.
func TierFor(score int) AffinityTier {
	switch s := ClampScore(score); {
	case s > 80:
		return AffinityTier{Level: 4, Label: "Partner"}
	case s > 50:
		return AffinityTier{Level: 3, Label: "Close Friend"}
	case s > 20:
		return AffinityTier{Level: 2, Label: "Friend"}
	default:
		return AffinityTier{Level: 1, Label: "Acquaintance"}
	}
}

// Reaction actions accepted by POST /interact.
const (
	ActionHeart = "reaction_heart"
	ActionFire  = "reaction_fire"
	ActionLaugh = "reaction_laugh"
	ActionAngry = "reaction_angry"
)

// ReactionAction maps a reaction emoji to its interaction action.
// Unknown emoji fall back to a heart.
func ReactionAction(emoji string) string {
	switch emoji {
	case "🔥":
		return ActionFire
	case "😂":
		return ActionLaugh
	case "😡":
		return ActionAngry
	default:
		return ActionHeart
	}
}

// InteractRequest is the body of POST /interact.
type InteractRequest struct {
	CompanionID string `json:"companion_id"`
	Action      string `json:"action"`
	StoryID     string `json:"story_id,omitempty"`
}

// InteractResult is the response of POST /interact.
type InteractResult struct {
	NewScore         int    `json:"new_score"`
	Delta            int    `json:"delta"`
	NewMood          string `json:"new_mood"`
	ToastMessage     string `json:"toast_message"`
	ReactionVideoURL string `json:"reaction_video_url,omitempty"`
}
