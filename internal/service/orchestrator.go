package service

import (
	"context"
	"errors"
	"sync"

	"harborbook/internal/domain"
	"harborbook/internal/events"
	"harborbook/internal/gateway"
	"harborbook/internal/metrics"
	"harborbook/internal/models"

	"github.com/rs/zerolog"
)

// OrchestratorService turns a validated draft into a server-side booking.
// One draft produces at most one POST /bookings: concurrent submits of the
// same user are rejected while the first is on the wire, and a flow that
// already produced a booking returns that booking instead of posting again.
type OrchestratorService struct {
	gateway        domain.MarketplaceGateway
	eventBus       domain.EventPublisher
	maxWindowHours int
	logger         *zerolog.Logger

	mu        sync.Mutex
	inFlight  map[int64]bool
	submitted map[string]*models.Booking // flow id -> created booking
}

func NewOrchestratorService(gw domain.MarketplaceGateway, eventBus domain.EventPublisher, maxWindowHours int, logger *zerolog.Logger) *OrchestratorService {
	if maxWindowHours <= 0 {
		maxWindowHours = 72
	}
	return &OrchestratorService{
		gateway:        gw,
		eventBus:       eventBus,
		maxWindowHours: maxWindowHours,
		logger:         logger,
		inFlight:       make(map[int64]bool),
		submitted:      make(map[string]*models.Booking),
	}
}

func (s *OrchestratorService) Submit(ctx context.Context, token string, userID int64, draft models.BookingDraft) (*models.Booking, error) {
	if err := validateDraft(draft, s.maxWindowHours); err != nil {
		metrics.IncSubmission("invalid")
		return nil, err
	}

	s.mu.Lock()
	if booking, ok := s.submitted[draft.FlowID]; ok {
		s.mu.Unlock()
		return booking, nil
	}
	if s.inFlight[userID] {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	s.inFlight[userID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, userID)
		s.mu.Unlock()
	}()

	req := gateway.CreateBookingRequest{
		ShipID:     draft.Ship.ID,
		DockSlotID: draft.Slot.ID,
		StartTime:  draft.StartTime,
		EndTime:    draft.EndTime,
		Type:       models.BookingTypeDockService,
		Services:   draft.ServiceIDs(),
	}

	booking, err := s.gateway.CreateBooking(ctx, token, req)
	if err != nil {
		// The draft stays intact in the flow state; the user corrects and
		// resubmits from the same confirm screen.
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			metrics.IncSubmission("rejected")
			s.logger.Warn().Int64("user_id", userID).Int("status", apiErr.StatusCode).
				Str("message", apiErr.Message).Msg("booking rejected by marketplace")
		} else {
			metrics.IncSubmission("error")
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("booking submission failed")
		}
		return nil, err
	}

	s.mu.Lock()
	s.submitted[draft.FlowID] = booking
	s.mu.Unlock()

	metrics.IncSubmission("ok")
	s.publishCreated(userID, booking)

	return booking, nil
}

func (s *OrchestratorService) publishCreated(userID int64, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:    booking.ID,
		UserID:       userID,
		BoatyardName: booking.BoatyardName,
		ShipName:     booking.ShipName,
		Status:       booking.Status,
		TotalAmount:  booking.TotalAmount,
		StartTime:    booking.StartTime,
		EndTime:      booking.EndTime,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("publish event error")
	}
}
