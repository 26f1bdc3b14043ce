package repository

import (
	"context"
	"sync/atomic"
	"time"

	"harborbook/internal/domain"
	"harborbook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverFlowRepository prefers the primary (Redis) and falls back to the
// in-memory repository when it errors, probing the primary again after a
// minute.
type FailoverFlowRepository struct {
	primary   domain.FlowRepository
	fallback  domain.FlowRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverFlowRepository(primary, fallback domain.FlowRepository, logger *zerolog.Logger) *FailoverFlowRepository {
	return &FailoverFlowRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverFlowRepository) GetFlow(ctx context.Context, userID int64) (*models.FlowState, error) {
	if !r.isDown.Load() {
		state, err := r.primary.GetFlow(ctx, userID)
		if err == nil {
			return state, nil
		}
		r.logger.Error().Err(err).Msg("Primary flow repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		state, err := r.primary.GetFlow(ctx, userID)
		if err == nil {
			r.isDown.Store(false)
			return state, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetFlow(ctx, userID)
}

func (r *FailoverFlowRepository) SetFlow(ctx context.Context, state *models.FlowState) error {
	if !r.isDown.Load() {
		err := r.primary.SetFlow(ctx, state)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary flow repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetFlow(ctx, state)
}

func (r *FailoverFlowRepository) ClearFlow(ctx context.Context, userID int64) error {
	if !r.isDown.Load() {
		err := r.primary.ClearFlow(ctx, userID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary flow repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearFlow(ctx, userID)
}

func (r *FailoverFlowRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary flow repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
