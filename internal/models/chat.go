package models

import "time"

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderCompanion Sender = "companion"
)

// ChatMessage is one turn of a conversation as held in the local cache.
type ChatMessage struct {
	ID          string    `json:"id"`
	Sender      Sender    `json:"sender"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	CompanionID string    `json:"companion_id"`
}

// HistoryMessage is a persisted message as returned by the history endpoint.
type HistoryMessage struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CompanionID string    `json:"companion_id"`
	Role        string    `json:"role"` // "user" or "assistant"
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToChatMessage converts a server message into the local representation.
func (m HistoryMessage) ToChatMessage() ChatMessage {
	sender := SenderUser
	if m.Role == "assistant" {
		sender = SenderCompanion
	}
	return ChatMessage{
		ID:          m.ID,
		Sender:      sender,
		Content:     m.Content,
		Timestamp:   m.CreatedAt,
		CompanionID: m.CompanionID,
	}
}

// ChatListItem summarizes one chat thread of the session user.
type ChatListItem struct {
	ID            string    `json:"id"`
	CompanionID   string    `json:"companion_id"`
	CompanionName string    `json:"companion_name"`
	AvatarURL     string    `json:"avatar_url"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// User is the backend profile of the session user.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Tier      string    `json:"tier"`
	HushCoins int       `json:"hush_coins"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
