package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anikama/anikama-cli/internal/models"
)

// =============================================================================
// COMPANIONS
// =============================================================================

// ListCompanions returns all companions. When a session exists, each companion
// carries the caller's relationship.
func (c *Client) ListCompanions(ctx context.Context) ([]models.Companion, error) {
	var result struct {
		Companions []models.Companion `json:"companions"`
	}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		route:    "/api/v1/companions",
		path:     "/api/v1/companions",
		auth:     authOptional,
		fallback: "Failed to fetch companions",
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Companions == nil {
		return []models.Companion{}, nil
	}
	return result.Companions, nil
}

// GetCompanion returns one companion with the caller's affinity if available.
func (c *Client) GetCompanion(ctx context.Context, id string) (*models.CompanionDetail, error) {
	var result models.CompanionDetail
	err := c.do(ctx, call{
		method:   http.MethodGet,
		route:    "/api/v1/companions/{id}",
		path:     "/api/v1/companions/" + url.PathEscape(id),
		auth:     authOptional,
		fallback: "Failed to fetch companion",
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// CHAT
// =============================================================================

// ListChats returns the session user's chat threads, most recent first.
func (c *Client) ListChats(ctx context.Context) ([]models.ChatListItem, error) {
	var result struct {
		Chats []models.ChatListItem `json:"chats"`
	}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		route:    "/api/v1/chats",
		path:     "/api/v1/chats",
		auth:     authRequired,
		fallback: "Failed to fetch chats",
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Chats == nil {
		return []models.ChatListItem{}, nil
	}
	return result.Chats, nil
}

// sendMessageRequest is the body of POST /chat.
type sendMessageRequest struct {
	CompanionID string `json:"companion_id"`
	Message     string `json:"message"`
}

// SendMessage sends a user message and returns the companion's reply.
func (c *Client) SendMessage(ctx context.Context, companionID, message string) (string, error) {
	// Older backends answer with "message" instead of "response".
	var result struct {
		Response string `json:"response"`
		Message  string `json:"message"`
	}
	err := c.do(ctx, call{
		method:   http.MethodPost,
		route:    "/api/v1/chat",
		path:     "/api/v1/chat",
		auth:     authRequired,
		body:     sendMessageRequest{CompanionID: companionID, Message: message},
		fallback: "Failed to send message",
	}, &result)
	if err != nil {
		return "", err
	}
	if result.Response != "" {
		return result.Response, nil
	}
	return result.Message, nil
}

// ChatHistory returns the full message history with a companion.
func (c *Client) ChatHistory(ctx context.Context, companionID string) ([]models.HistoryMessage, error) {
	var result struct {
		Messages []models.HistoryMessage `json:"messages"`
	}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		route:    "/api/v1/chat/{companionId}/history",
		path:     "/api/v1/chat/" + url.PathEscape(companionID) + "/history",
		auth:     authRequired,
		fallback: "Failed to fetch chat history",
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Messages == nil {
		return []models.HistoryMessage{}, nil
	}
	return result.Messages, nil
}

// =============================================================================
// RELATIONSHIPS
// =============================================================================

// GetRelationship returns the caller's relationship with a companion.
// Without a session it returns the default "no relationship" state and sends nothing.
func (c *Client) GetRelationship(ctx context.Context, companionID string) (models.RelationshipStatus, error) {
	if c.token() == "" {
		return models.DefaultRelationship(), nil
	}

	var result models.RelationshipStatus
	err := c.do(ctx, call{
		method:   http.MethodGet,
		route:    "/api/v1/relationship/{companionId}",
		path:     "/api/v1/relationship/" + url.PathEscape(companionID),
		auth:     authRequired,
		fallback: "Failed to fetch relationship",
	}, &result)
	if err != nil {
		return models.RelationshipStatus{}, err
	}
	result.AffinityScore = models.ClampScore(result.AffinityScore)
	return result, nil
}

// Interact reports a reaction against a companion's story.
func (c *Client) Interact(ctx context.Context, req models.InteractRequest) (*models.InteractResult, error) {
	var result models.InteractResult
	err := c.do(ctx, call{
		method:   http.MethodPost,
		route:    "/api/v1/interact",
		path:     "/api/v1/interact",
		auth:     authRequired,
		body:     req,
		fallback: "Interaction failed",
	}, &result)
	if err != nil {
		return nil, err
	}
	result.NewScore = models.ClampScore(result.NewScore)
	return &result, nil
}

// =============================================================================
// STORIES
// =============================================================================

// ListStories returns all stories grouped by companion.
func (c *Client) ListStories(ctx context.Context) ([]models.StoriesGrouped, error) {
	var result struct {
		Stories []models.StoriesGrouped `json:"stories"`
		Count   int                     `json:"count"`
	}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		route:    "/api/v1/stories",
		path:     "/api/v1/stories",
		auth:     authNone,
		fallback: "Failed to fetch stories",
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Stories == nil {
		return []models.StoriesGrouped{}, nil
	}
	return result.Stories, nil
}

// CompanionStories returns one companion's stories in order. The bearer token
// is attached when present so the backend can compute lock state.
func (c *Client) CompanionStories(ctx context.Context, companionID string) ([]models.Story, error) {
	if companionID == "" {
		return []models.Story{}, nil
	}
	var result struct {
		Stories []models.Story `json:"stories"`
		Count   int            `json:"count"`
	}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		route:    "/api/v1/story/{companionId}",
		path:     "/api/v1/story/" + url.PathEscape(companionID),
		auth:     authOptional,
		fallback: "Failed to fetch stories",
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Stories == nil {
		return []models.Story{}, nil
	}
	return result.Stories, nil
}

// =============================================================================
// ECONOMY & USER
// =============================================================================

// Deposit reports an on-chain transfer so the backend can credit the balance.
func (c *Client) Deposit(ctx context.Context, txHash string, amount float64) (*models.DepositResult, error) {
	var result models.DepositResult
	err := c.do(ctx, call{
		method:   http.MethodPost,
		route:    "/api/v1/economy/deposit",
		path:     "/api/v1/economy/deposit",
		auth:     authOptional,
		body:     models.DepositRequest{TxHash: txHash, Amount: amount},
		fallback: "Failed to process deposit",
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CurrentUser returns the backend profile of the session user.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var result struct {
		User *models.User `json:"user"`
	}
	err := c.do(ctx, call{
		method:   http.MethodGet,
		route:    "/api/v1/user/me",
		path:     "/api/v1/user/me",
		auth:     authRequired,
		fallback: "Failed to fetch user",
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "user not found"}
	}
	return result.User, nil
}
