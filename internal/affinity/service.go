// Package affinity keeps the relationship cache: the single source of truth
// for affinity scores on this client.
package affinity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anikama/anikama-cli/internal/models"
	"github.com/anikama/anikama-cli/internal/query"
)

// OptimisticDelta is the local bump applied before the backend answers.
const OptimisticDelta = 5

// cacheSize bounds the number of companions kept in the cache.
const cacheSize = 256

// Backend is the subset of the REST client the service needs.
type Backend interface {
	GetRelationship(ctx context.Context, companionID string) (models.RelationshipStatus, error)
	Interact(ctx context.Context, req models.InteractRequest) (*models.InteractResult, error)
}

// Service reads relationships through the cache and applies interactions
// with an optimistic bump.
type Service struct {
	backend Backend
	cache   *query.Cache[models.RelationshipStatus]
	logger  *slog.Logger
}

// NewService creates a service whose entries go stale after staleAfter.
func NewService(backend Backend, staleAfter time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend: backend,
		cache:   query.New[models.RelationshipStatus](cacheSize, staleAfter),
		logger:  logger,
	}
}

// Key returns the cache key for a companion's relationship.
func Key(companionID string) string {
	return "relationship/" + companionID
}

// Get returns the relationship with a companion, fetching it if not cached.
func (s *Service) Get(ctx context.Context, companionID string) (models.RelationshipStatus, error) {
	rel, err := s.cache.Fetch(ctx, Key(companionID), func(ctx context.Context) (models.RelationshipStatus, error) {
		return s.backend.GetRelationship(ctx, companionID)
	})
	if err != nil {
		return models.RelationshipStatus{}, fmt.Errorf("get relationship: %w", err)
	}
	return rel, nil
}

// Cached returns the cached relationship without fetching.
func (s *Service) Cached(companionID string) (models.RelationshipStatus, bool) {
	return s.cache.Get(Key(companionID))
}

// Interact sends a reaction. The cached score is bumped before the request
// and reverted if it fails; either way the entry is refetched afterwards so
// the backend's score wins. The refetch failing is logged, not returned.
func (s *Service) Interact(ctx context.Context, companionID, action, storyID string) (*models.InteractResult, error) {
	key := Key(companionID)

	op := query.Begin(s.cache, key)
	op.Apply(func(r models.RelationshipStatus) models.RelationshipStatus {
		r.AffinityScore = models.ClampScore(r.AffinityScore + OptimisticDelta)
		return r
	})

	result, err := s.backend.Interact(ctx, models.InteractRequest{
		CompanionID: companionID,
		Action:      action,
		StoryID:     storyID,
	})
	if err != nil {
		op.Revert()
	} else {
		op.Commit()
	}

	s.cache.Invalidate(key)
	if _, ferr := s.Get(ctx, companionID); ferr != nil {
		s.logger.Warn("relationship refetch failed", "companion_id", companionID, "error", ferr)
	}

	if err != nil {
		return nil, fmt.Errorf("interact: %w", err)
	}
	return result, nil
}
