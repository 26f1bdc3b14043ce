package repository

import (
	"context"
	"sync"
	"time"

	"harborbook/internal/models"
)

// MemoryFlowRepository keeps flow states in process memory. Used as the
// failover fallback and in tests.
type MemoryFlowRepository struct {
	flows      sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryFlowRepository(ttl time.Duration) *MemoryFlowRepository {
	return &MemoryFlowRepository{
		ttl: ttl,
	}
}

func (r *MemoryFlowRepository) GetFlow(ctx context.Context, userID int64) (*models.FlowState, error) {
	val, ok := r.flows.Load(userID)
	if !ok {
		return nil, nil
	}
	return val.(*models.FlowState), nil
}

func (r *MemoryFlowRepository) SetFlow(ctx context.Context, state *models.FlowState) error {
	r.flows.Store(state.UserID, state)
	return nil
}

func (r *MemoryFlowRepository) ClearFlow(ctx context.Context, userID int64) error {
	r.flows.Delete(userID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryFlowRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(userID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(userID, entry)
	return entry.count <= limit, nil
}
