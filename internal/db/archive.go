package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/anikama/anikama-cli/internal/metrics"
	"github.com/anikama/anikama-cli/internal/models"
)

// Archive is the chat archive of one user.
type Archive struct {
	client *Client
	userID string
}

// Archive returns the archive scoped to userID.
func (c *Client) Archive(userID string) *Archive {
	return &Archive{client: c, userID: userID}
}

// archivedMessage is a chat_message row.
type archivedMessage struct {
	MsgID       string    `json:"msg_id"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	CompanionID string    `json:"companion_id"`
	Seq         int       `json:"seq"`
}

func toRows(userID, companionID string, msgs []models.ChatMessage) []map[string]any {
	rows := make([]map[string]any, 0, len(msgs))
	for i, m := range msgs {
		rows = append(rows, map[string]any{
			"user_id":      userID,
			"companion_id": companionID,
			"seq":          i,
			"msg_id":       m.ID,
			"sender":       string(m.Sender),
			"content":      m.Content,
			"timestamp":    m.Timestamp.UTC(),
		})
	}
	return rows
}

// SaveMessages replaces the archived history with a companion by msgs.
func (a *Archive) SaveMessages(ctx context.Context, companionID string, msgs []models.ChatMessage) error {
	start := time.Now()

	sql := `
		BEGIN TRANSACTION;
		DELETE chat_message WHERE user_id = $uid AND companion_id = $cid;
		IF array::len($rows) > 0 { INSERT INTO chat_message $rows };
		COMMIT TRANSACTION;
	`
	_, err := surrealdb.Query[any](ctx, a.client.db, sql, map[string]any{
		"uid":  a.userID,
		"cid":  companionID,
		"rows": toRows(a.userID, companionID, msgs),
	})
	a.client.metrics.RecordResult(metrics.OpArchive, time.Since(start), err != nil)
	if err != nil {
		return fmt.Errorf("save messages: %w", wrapQueryError(err))
	}
	return nil
}

// LoadMessages returns the archived history with a companion in order.
func (a *Archive) LoadMessages(ctx context.Context, companionID string) ([]models.ChatMessage, error) {
	start := time.Now()

	results, err := surrealdb.Query[[]archivedMessage](ctx, a.client.db, `
		SELECT msg_id, sender, content, timestamp, companion_id, seq
		FROM chat_message
		WHERE user_id = $uid AND companion_id = $cid
		ORDER BY seq
	`, map[string]any{"uid": a.userID, "cid": companionID})
	a.client.metrics.RecordResult(metrics.OpArchive, time.Since(start), err != nil)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.ChatMessage{}, nil
	}
	rows := (*results)[0].Result
	msgs := make([]models.ChatMessage, 0, len(rows))
	for _, r := range rows {
		msgs = append(msgs, models.ChatMessage{
			ID:          r.MsgID,
			Sender:      models.Sender(r.Sender),
			Content:     r.Content,
			Timestamp:   r.Timestamp,
			CompanionID: r.CompanionID,
		})
	}
	return msgs, nil
}
