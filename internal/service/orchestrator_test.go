package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"harborbook/internal/events"
	"harborbook/internal/gateway"
	"harborbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSubmit_HappyPath(t *testing.T) {
	gw := new(mockGateway)
	bus := &recordingBus{}
	logger := zerolog.Nop()
	svc := NewOrchestratorService(gw, bus, 72, &logger)

	draft := validDraft()
	booking := &models.Booking{
		ID:           "BK-1",
		Status:       models.BookingPending,
		TotalAmount:  1500000,
		BoatyardName: "Cảng Sài Gòn",
		ShipName:     "Hải Âu",
	}

	gw.On("CreateBooking", mock.Anything, "tok", mock.MatchedBy(func(req gateway.CreateBookingRequest) bool {
		return req.ShipID == "SH1" &&
			req.DockSlotID == "S1" &&
			req.Type == models.BookingTypeDockService &&
			len(req.Services) == 1 && req.Services[0] == "SVC1" &&
			req.StartTime.Equal(draft.StartTime) &&
			req.EndTime.Equal(draft.EndTime)
	})).Return(booking, nil).Once()

	got, err := svc.Submit(context.Background(), "tok", 1, draft)
	require.NoError(t, err)
	assert.Equal(t, "BK-1", got.ID)
	assert.Equal(t, models.BookingPending, got.Status)

	captured := bus.captured()
	require.Len(t, captured, 1)
	assert.Equal(t, events.EventBookingCreated, captured[0].Type)

	gw.AssertExpectations(t)
}

func TestSubmit_InvalidDraftNeverPosts(t *testing.T) {
	gw := new(mockGateway)
	logger := zerolog.Nop()
	svc := NewOrchestratorService(gw, nil, 72, &logger)

	draft := validDraft()
	draft.Slot = nil

	_, err := svc.Submit(context.Background(), "tok", 1, draft)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	gw.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_DoubleTapSinglePost(t *testing.T) {
	gw := new(mockGateway)
	logger := zerolog.Nop()
	svc := NewOrchestratorService(gw, nil, 72, &logger)

	draft := validDraft()
	booking := &models.Booking{ID: "BK-1", Status: models.BookingPending}

	release := make(chan struct{})
	gw.On("CreateBooking", mock.Anything, "tok", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(booking, nil).Once()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Submit(context.Background(), "tok", 1, draft)
		}(i)
	}

	// Let both goroutines reach the guard before the gateway responds
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	var ok, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrSubmitInFlight):
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	gw.AssertNumberOfCalls(t, "CreateBooking", 1)
}

func TestSubmit_ResubmitReturnsExistingBooking(t *testing.T) {
	gw := new(mockGateway)
	logger := zerolog.Nop()
	svc := NewOrchestratorService(gw, nil, 72, &logger)

	draft := validDraft()
	booking := &models.Booking{ID: "BK-1", Status: models.BookingPending}
	gw.On("CreateBooking", mock.Anything, "tok", mock.Anything).Return(booking, nil).Once()

	first, err := svc.Submit(context.Background(), "tok", 1, draft)
	require.NoError(t, err)

	// A stale confirm tap after success must not post again
	second, err := svc.Submit(context.Background(), "tok", 1, draft)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	gw.AssertNumberOfCalls(t, "CreateBooking", 1)
}

func TestSubmit_RejectionSurfacesServerMessage(t *testing.T) {
	gw := new(mockGateway)
	bus := &recordingBus{}
	logger := zerolog.Nop()
	svc := NewOrchestratorService(gw, bus, 72, &logger)

	apiErr := &gateway.APIError{StatusCode: 409, Message: "Bến đã được đặt trong khung giờ này"}
	gw.On("CreateBooking", mock.Anything, "tok", mock.Anything).Return(nil, apiErr).Once()

	_, err := svc.Submit(context.Background(), "tok", 1, validDraft())
	var got *gateway.APIError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 409, got.StatusCode)
	assert.Contains(t, got.Message, "Bến đã được đặt")

	// No event for a failed submission, and the next attempt posts again
	assert.Empty(t, bus.captured())

	booking := &models.Booking{ID: "BK-2", Status: models.BookingPending}
	gw.On("CreateBooking", mock.Anything, "tok", mock.Anything).Return(booking, nil).Once()
	got2, err := svc.Submit(context.Background(), "tok", 1, validDraft())
	require.NoError(t, err)
	assert.Equal(t, "BK-2", got2.ID)
}
