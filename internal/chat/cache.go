// Package chat holds per-companion message lists and the conversation
// state machine that feeds them.
package chat

import (
	"sync"

	"github.com/anikama/anikama-cli/internal/models"
)

// Cache owns the ordered message list of every companion.
// Messages are only ever appended, or replaced in bulk on history load.
type Cache struct {
	mu    sync.RWMutex
	lists map[string][]models.ChatMessage
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{lists: make(map[string][]models.ChatMessage)}
}

// Append adds messages to the end of a companion's list.
func (c *Cache) Append(companionID string, msgs ...models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[companionID] = append(c.lists[companionID], msgs...)
}

// Replace swaps a companion's list for msgs.
func (c *Cache) Replace(companionID string, msgs []models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[companionID] = append([]models.ChatMessage(nil), msgs...)
}

// Messages returns a copy of a companion's list.
func (c *Cache) Messages(companionID string) []models.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.ChatMessage{}, c.lists[companionID]...)
}

// Len returns the number of messages held for a companion.
func (c *Cache) Len(companionID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lists[companionID])
}

// Clear drops a companion's list.
func (c *Cache) Clear(companionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, companionID)
}
