package affinity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anikama/anikama-cli/internal/client"
	"github.com/anikama/anikama-cli/internal/models"
)

type fakeBackend struct {
	mu     sync.Mutex
	scores map[string]int
	gets   int

	// interactErr fails Interact; onInteract observes the cache mid-request.
	interactErr error
	onInteract  func()
	result      *models.InteractResult
}

func (f *fakeBackend) GetRelationship(_ context.Context, id string) (models.RelationshipStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	score, ok := f.scores[id]
	if !ok {
		return models.DefaultRelationship(), nil
	}
	return models.RelationshipStatus{Found: true, AffinityScore: score, CurrentMood: "happy"}, nil
}

func (f *fakeBackend) Interact(_ context.Context, req models.InteractRequest) (*models.InteractResult, error) {
	if f.onInteract != nil {
		f.onInteract()
	}
	if f.interactErr != nil {
		return nil, f.interactErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result != nil {
		f.scores[req.CompanionID] = f.result.NewScore
	}
	return f.result, nil
}

func TestInteract_SettlesOnServerScore(t *testing.T) {
	backend := &fakeBackend{
		scores: map[string]int{"c1": 50},
		result: &models.InteractResult{NewScore: 55, NewMood: "happy", ToastMessage: "+5 affinity!"},
	}
	svc := NewService(backend, time.Minute, nil)
	ctx := context.Background()

	rel, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 50, rel.AffinityScore)

	var midFlight int
	backend.onInteract = func() {
		r, ok := svc.Cached("c1")
		require.True(t, ok)
		midFlight = r.AffinityScore
	}

	res, err := svc.Interact(ctx, "c1", models.ActionHeart, "s1")
	require.NoError(t, err)
	assert.Equal(t, "+5 affinity!", res.ToastMessage)
	assert.Equal(t, 55, midFlight, "bumped before the request is sent")

	rel, ok := svc.Cached("c1")
	require.True(t, ok)
	assert.Equal(t, 55, rel.AffinityScore)
	assert.Equal(t, 2, backend.gets, "refetched after settling")
}

func TestInteract_FailureRevertsExactly(t *testing.T) {
	backend := &fakeBackend{
		scores:      map[string]int{"c1": 50},
		interactErr: client.ErrUnauthenticated,
	}
	svc := NewService(backend, time.Minute, nil)
	ctx := context.Background()
	_, err := svc.Get(ctx, "c1")
	require.NoError(t, err)

	var midFlight int
	backend.onInteract = func() {
		r, _ := svc.Cached("c1")
		midFlight = r.AffinityScore
	}

	_, err = svc.Interact(ctx, "c1", models.ActionHeart, "s1")
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Equal(t, 55, midFlight)

	rel, ok := svc.Cached("c1")
	require.True(t, ok)
	assert.Equal(t, 50, rel.AffinityScore)
}

func TestInteract_ClampsOptimisticBump(t *testing.T) {
	backend := &fakeBackend{
		scores:      map[string]int{"c1": 98},
		interactErr: errors.New("down"),
	}
	svc := NewService(backend, time.Minute, nil)
	ctx := context.Background()
	_, err := svc.Get(ctx, "c1")
	require.NoError(t, err)

	backend.onInteract = func() {
		r, _ := svc.Cached("c1")
		assert.Equal(t, models.MaxAffinity, r.AffinityScore)
	}
	_, err = svc.Interact(ctx, "c1", models.ActionFire, "")
	assert.Error(t, err)
}

func TestInteract_NoCachedEntrySkipsBump(t *testing.T) {
	backend := &fakeBackend{
		scores: map[string]int{},
		result: &models.InteractResult{NewScore: 5},
	}
	svc := NewService(backend, time.Minute, nil)

	backend.onInteract = func() {
		_, ok := svc.Cached("c1")
		assert.False(t, ok)
	}
	_, err := svc.Interact(context.Background(), "c1", models.ActionHeart, "")
	require.NoError(t, err)

	rel, ok := svc.Cached("c1")
	require.True(t, ok)
	assert.Equal(t, 5, rel.AffinityScore)
}

func TestInteract_CompanionsIndependent(t *testing.T) {
	backend := &fakeBackend{
		scores:      map[string]int{"c1": 10, "c2": 20},
		interactErr: errors.New("down"),
	}
	svc := NewService(backend, time.Minute, nil)
	ctx := context.Background()
	_, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	_, err = svc.Get(ctx, "c2")
	require.NoError(t, err)

	_, err = svc.Interact(ctx, "c1", models.ActionAngry, "")
	assert.Error(t, err)

	c2, ok := svc.Cached("c2")
	require.True(t, ok)
	assert.Equal(t, 20, c2.AffinityScore)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "relationship/c1", Key("c1"))
}
