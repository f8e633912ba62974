package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoriesGroupedValidate(t *testing.T) {
	ok := StoriesGrouped{Stories: []Story{{ID: "a", OrderIndex: 0}, {ID: "b", OrderIndex: 1}, {ID: "c", OrderIndex: 5}}}
	assert.NoError(t, ok.Validate())

	dup := StoriesGrouped{Stories: []Story{{ID: "a", OrderIndex: 1}, {ID: "b", OrderIndex: 1}}}
	assert.Error(t, dup.Validate())

	assert.NoError(t, StoriesGrouped{}.Validate())
}

func TestHistoryMessageToChatMessage(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assistant := HistoryMessage{ID: "m1", CompanionID: "c1", Role: "assistant", Content: "hi", CreatedAt: at}.ToChatMessage()
	assert.Equal(t, SenderCompanion, assistant.Sender)
	assert.Equal(t, "c1", assistant.CompanionID)
	assert.Equal(t, at, assistant.Timestamp)

	user := HistoryMessage{ID: "m2", Role: "user", Content: "hello"}.ToChatMessage()
	assert.Equal(t, SenderUser, user.Sender)
	assert.Equal(t, "hello", user.Content)
}

func TestStoryDurationTime(t *testing.T) {
	assert.Equal(t, 5*time.Second, Story{Duration: 5}.DurationTime())
}
