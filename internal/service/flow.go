package service

import (
	"context"
	"time"

	"harborbook/internal/domain"
	"harborbook/internal/metrics"
	"harborbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FlowService owns the per-user booking flow: one active flow per user, the
// draft accumulating monotonically as steps contribute.
type FlowService struct {
	flowRepo       domain.FlowRepository
	maxWindowHours int
	logger         *zerolog.Logger
}

func NewFlowService(flowRepo domain.FlowRepository, maxWindowHours int, logger *zerolog.Logger) *FlowService {
	if maxWindowHours <= 0 {
		maxWindowHours = 72
	}
	return &FlowService{
		flowRepo:       flowRepo,
		maxWindowHours: maxWindowHours,
		logger:         logger,
	}
}

func (s *FlowService) GetFlow(ctx context.Context, userID int64) (*models.FlowState, error) {
	state, err := s.flowRepo.GetFlow(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get flow state")
		return nil, err
	}
	return state, nil
}

// BeginFlow replaces any previous flow of the user with a fresh one.
func (s *FlowService) BeginFlow(ctx context.Context, userID, chatID int64) (*models.FlowState, error) {
	state := &models.FlowState{
		UserID: userID,
		ChatID: chatID,
		Step:   models.StepSelectBoatyard,
		Draft: models.BookingDraft{
			FlowID:    uuid.NewString(),
			CreatedAt: time.Now(),
		},
		UpdatedAt: time.Now(),
	}
	if err := s.flowRepo.SetFlow(ctx, state); err != nil {
		return nil, err
	}
	metrics.IncFlowStarted()
	return state, nil
}

// Contribute merges a step's selections into the draft and advances the step.
// Fields the step did not touch survive the merge.
func (s *FlowService) Contribute(ctx context.Context, userID int64, step string, contribution models.BookingDraft) (*models.FlowState, error) {
	state, err := s.flowRepo.GetFlow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNoActiveFlow
	}

	state.Draft = state.Draft.Merge(contribution)
	state.Step = step
	state.UpdatedAt = time.Now()

	if err := s.flowRepo.SetFlow(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *FlowService) SetStep(ctx context.Context, userID int64, step string) error {
	state, err := s.flowRepo.GetFlow(ctx, userID)
	if err != nil {
		return err
	}
	if state == nil {
		return ErrNoActiveFlow
	}
	state.Step = step
	state.UpdatedAt = time.Now()
	return s.flowRepo.SetFlow(ctx, state)
}

func (s *FlowService) SetBooking(ctx context.Context, userID int64, bookingID string) error {
	state, err := s.flowRepo.GetFlow(ctx, userID)
	if err != nil {
		return err
	}
	if state == nil {
		return ErrNoActiveFlow
	}
	state.BookingID = bookingID
	state.UpdatedAt = time.Now()
	return s.flowRepo.SetFlow(ctx, state)
}

func (s *FlowService) ClearFlow(ctx context.Context, userID int64) error {
	return s.flowRepo.ClearFlow(ctx, userID)
}

func (s *FlowService) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return s.flowRepo.CheckRateLimit(ctx, userID, limit, window)
}

// ValidateDraft gates the confirm screen: nothing reaches POST /bookings
// until every required selection is present and the time window is sane.
func (s *FlowService) ValidateDraft(draft models.BookingDraft) error {
	return validateDraft(draft, s.maxWindowHours)
}

func validateDraft(draft models.BookingDraft, maxWindowHours int) error {
	if draft.BoatyardID == "" {
		return &ValidationError{Field: "boatyard", Reason: "not selected"}
	}
	if len(draft.Services) == 0 {
		return &ValidationError{Field: "services", Reason: "at least one service required"}
	}
	if draft.Slot == nil {
		return &ValidationError{Field: "dock_slot", Reason: "not selected"}
	}
	if draft.Ship == nil {
		return &ValidationError{Field: "ship", Reason: "not selected"}
	}
	if draft.StartTime.IsZero() || draft.EndTime.IsZero() {
		return &ValidationError{Field: "time_window", Reason: "not selected"}
	}
	if !draft.EndTime.After(draft.StartTime) {
		return &ValidationError{Field: "time_window", Reason: "end must be after start"}
	}
	if draft.EndTime.Sub(draft.StartTime) > time.Duration(maxWindowHours)*time.Hour {
		return &ValidationError{Field: "time_window", Reason: "window too long"}
	}
	if !draft.Slot.AssignedFrom.IsZero() && draft.StartTime.Before(draft.Slot.AssignedFrom) {
		return &ValidationError{Field: "time_window", Reason: "starts before slot availability"}
	}
	if !draft.Slot.AssignedUntil.IsZero() && draft.EndTime.After(draft.Slot.AssignedUntil) {
		return &ValidationError{Field: "time_window", Reason: "ends after slot availability"}
	}
	return nil
}
