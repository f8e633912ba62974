//go:build integration

package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/anikama/anikama-cli/internal/models"
)

var testDB *Client

// TestMain starts a SurrealDB container shared by the archive tests.
func TestMain(m *testing.M) {
	// ryuk can fail to start in rootless environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, port.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func msg(id string, sender models.Sender, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        id,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestArchive_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))
	archive := testDB.Archive("u1")

	first := []models.ChatMessage{
		msg("m1", models.SenderUser, "hello"),
		msg("m2", models.SenderCompanion, "Hi there!"),
	}
	require.NoError(t, archive.SaveMessages(ctx, "c1", first))

	got, err := archive.LoadMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, models.SenderCompanion, got[1].Sender)
	assert.Equal(t, "Hi there!", got[1].Content)
	assert.True(t, got[0].Timestamp.Equal(first[0].Timestamp))
}

func TestArchive_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))
	archive := testDB.Archive("u1")

	require.NoError(t, archive.SaveMessages(ctx, "c1", []models.ChatMessage{
		msg("m1", models.SenderUser, "one"),
		msg("m2", models.SenderCompanion, "two"),
		msg("m3", models.SenderUser, "three"),
	}))
	require.NoError(t, archive.SaveMessages(ctx, "c1", []models.ChatMessage{
		msg("n1", models.SenderUser, "fresh"),
	}))

	got, err := archive.LoadMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Content)

	require.NoError(t, archive.SaveMessages(ctx, "c1", nil))
	got, err = archive.LoadMessages(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestArchive_ScopedByUserAndCompanion(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.WipeData(ctx))

	require.NoError(t, testDB.Archive("u1").SaveMessages(ctx, "c1", []models.ChatMessage{msg("a", models.SenderUser, "u1c1")}))
	require.NoError(t, testDB.Archive("u1").SaveMessages(ctx, "c2", []models.ChatMessage{msg("b", models.SenderUser, "u1c2")}))
	require.NoError(t, testDB.Archive("u2").SaveMessages(ctx, "c1", []models.ChatMessage{msg("c", models.SenderUser, "u2c1")}))

	got, err := testDB.Archive("u1").LoadMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1c1", got[0].Content)

	got, err = testDB.Archive("u3").LoadMessages(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
