package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikama/anikama-cli/internal/metrics"
	"github.com/anikama/anikama-cli/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.HandlerFunc, token string) (*Client, *metrics.Collector) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := metrics.NewCollector()
	c := New(srv.URL,
		WithTokenSource(func() string { return token }),
		WithLogger(quietLogger()),
		WithMetrics(m),
	)
	return c, m
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("ANIKAMA_API_URL", "")
	c := New("")
	assert.Equal(t, "http://localhost:8080", c.BaseURL())

	t.Setenv("ANIKAMA_API_URL", "http://api.example.com/")
	c = New("")
	assert.Equal(t, "http://api.example.com", c.BaseURL())
}

func TestListCompanions(t *testing.T) {
	var gotAuth string
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/v1/companions", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"companions": []map[string]any{
				{"id": "c1", "name": "Aiko", "archetype": "Tsundere"},
			},
			"count": 1,
		})
	}, "tok")

	got, err := c.ListCompanions(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Aiko", got[0].Name)
	assert.Equal(t, "Bearer tok", gotAuth)

	op := m.Get(metrics.OpAPIPrefix + "GET /api/v1/companions")
	require.NotNil(t, op)
	assert.Equal(t, int64(1), op.Count)
}

func TestListCompanions_AnonymousSendsNoAuthHeader(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, map[string]any{"companions": nil})
	}, "")

	got, err := c.ListCompanions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Empty(t, gotAuth)
}

func TestProtectedCalls_WithoutToken(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, "")
	ctx := context.Background()

	_, err := c.ListChats(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = c.SendMessage(ctx, "c1", "hi")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = c.ChatHistory(ctx, "c1")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = c.Interact(ctx, models.InteractRequest{CompanionID: "c1", Action: models.ActionHeart})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = c.CurrentUser(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	assert.Equal(t, int32(0), hits.Load(), "no request should reach the server")
}

func TestGetRelationship_NoSessionReturnsDefault(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, "")

	got, err := c.GetRelationship(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRelationship(), got)
	assert.Equal(t, int32(0), hits.Load())
}

func TestGetRelationship_ClampsScore(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/relationship/c1", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"found": true, "affinity_score": 140, "current_mood": "happy",
		})
	}, "tok")

	got, err := c.GetRelationship(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, got.Found)
	assert.Equal(t, models.MaxAffinity, got.AffinityScore)
	assert.Equal(t, "happy", got.CurrentMood)
}

func TestSendMessage_ReplyField(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{"response field", map[string]any{"response": "Hello!"}, "Hello!"},
		{"message field", map[string]any{"companion_id": "c1", "message": "Hi there", "is_limited": false}, "Hi there"},
		{"response wins", map[string]any{"response": "A", "message": "B"}, "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var req sendMessageRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "c1", req.CompanionID)
				assert.Equal(t, "hello", req.Message)
				writeJSON(t, w, http.StatusOK, tt.body)
			}, "tok")

			got, err := c.SendMessage(context.Background(), "c1", "hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantAuth bool
	}{
		{"backend message", http.StatusConflict, `{"error":"Transaction already processed"}`, "Transaction already processed", false},
		{"fallback message", http.StatusInternalServerError, `oops`, "Failed to process deposit", false},
		{"unauthorized", http.StatusUnauthorized, `{"error":"Invalid token"}`, "Invalid token", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "tok")

			_, err := c.Deposit(context.Background(), "0xabc", 0.01)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Equal(t, tt.wantAuth, errors.Is(err, ErrUnauthenticated))
		})
	}
}

func TestDeposit(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req models.DepositRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0xabc", req.TxHash)
		assert.InDelta(t, 0.01, req.Amount, 1e-9)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"new_balance": 1100, "coins_added": 100, "message": "ok",
		})
	}, "")

	got, err := c.Deposit(context.Background(), "0xabc", 0.01)
	require.NoError(t, err)
	assert.Equal(t, 1100, got.NewBalance)
	assert.Equal(t, 100, got.CoinsAdded)
}

func TestCompanionStories(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/story/c1", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{
			"stories": []map[string]any{
				{"id": "s1", "order_index": 0, "duration": 5},
				{"id": "s2", "order_index": 1, "duration": 5, "is_locked": true},
			},
			"count": 2,
		})
	}, "")

	got, err := c.CompanionStories(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].IsLocked)

	empty, err := c.CompanionStories(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCurrentUser(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": "u1", "username": "neo", "hush_coins": 250},
		})
	}, "tok")

	got, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "neo", got.Username)
	assert.Equal(t, 250, got.HushCoins)
}
