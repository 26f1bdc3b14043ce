package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"harborbook/internal/domain"
	"harborbook/internal/events"
	"harborbook/internal/gateway"
	"harborbook/internal/models"
	"harborbook/internal/payment"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPaymentService(gw domain.MarketplaceGateway, bus domain.EventPublisher) *PaymentService {
	logger := zerolog.Nop()
	return NewPaymentService(gw, payment.NewRegistry(), payment.DefaultMarkerRules(), bus, &logger)
}

func paymentParams() domain.CreatePaymentParams {
	return domain.CreatePaymentParams{
		UserID:     1,
		ChatID:     10,
		TargetID:   "BK-1",
		TargetType: models.TargetBoatyard,
		Address:    "12 Nguyễn Huệ, Quận 1",
		Amount:     1500000,
	}
}

func paymentDetails() *gateway.PaymentDetails {
	return &gateway.PaymentDetails{
		QRCode:        "000201010212...",
		Bin:           "970436",
		AccountNumber: "0123456789",
		Amount:        1500000,
		Description:   "HBK BK-1",
		CheckoutURL:   "https://pay.example.com/checkout/abc",
	}
}

func TestCreateSession(t *testing.T) {
	gw := new(mockGateway)
	svc := newPaymentService(gw, nil)

	gw.On("CreatePayment", mock.Anything, "tok", mock.MatchedBy(func(req gateway.CreatePaymentRequest) bool {
		return req.ID == "BK-1" && req.Type == models.TargetBoatyard
	})).Return(paymentDetails(), nil).Once()

	snap, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentReady, snap.State)
	assert.Equal(t, "970436", snap.Bin)
	assert.Equal(t, "HBK BK-1", snap.Description)
	assert.NotEmpty(t, snap.CheckoutURL)

	// Re-entering the payment screen reuses the live attempt
	again, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)
	assert.Equal(t, snap.ID, again.ID)
	gw.AssertNumberOfCalls(t, "CreatePayment", 1)

	active, ok := svc.ActiveSession(1)
	assert.True(t, ok)
	assert.Equal(t, snap.ID, active.ID)
}

func TestCreateSession_DoubleTapSinglePost(t *testing.T) {
	gw := new(mockGateway)
	svc := newPaymentService(gw, nil)

	release := make(chan struct{})
	gw.On("CreatePayment", mock.Anything, "tok", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(paymentDetails(), nil).Once()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.CreateSession(context.Background(), "tok", paymentParams())
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
		case assert.ErrorIs(t, err, ErrPaymentInFlight):
			rejected++
		}
	}
	assert.Equal(t, 1, ok, "exactly one tap creates the payment")
	assert.Equal(t, 1, rejected, "the other tap is told an attempt is in flight")
	gw.AssertNumberOfCalls(t, "CreatePayment", 1)

	snap, active := svc.ActiveSession(1)
	require.True(t, active)
	assert.Equal(t, models.PaymentReady, snap.State)
}

func TestCreateSession_GatewayFailureLeavesNoAttempt(t *testing.T) {
	gw := new(mockGateway)
	svc := newPaymentService(gw, nil)

	gw.On("CreatePayment", mock.Anything, "tok", mock.Anything).
		Return(nil, &gateway.APIError{StatusCode: 502, Message: "upstream"}).Once()

	_, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.Error(t, err)

	_, ok := svc.ActiveSession(1)
	assert.False(t, ok)

	// Retry posts again
	gw.On("CreatePayment", mock.Anything, "tok", mock.Anything).Return(paymentDetails(), nil).Once()
	snap, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentReady, snap.State)
}

func TestHandleNavigation_SuccessExactlyOnce(t *testing.T) {
	gw := new(mockGateway)
	bus := &recordingBus{}
	svc := newPaymentService(gw, bus)

	gw.On("CreatePayment", mock.Anything, "tok", mock.Anything).Return(paymentDetails(), nil).Once()
	snap, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)

	returnURL := "https://bot.example.com/payment/return?id=" + snap.ID + "&status=paid"

	outcome, ok := svc.HandleNavigation(returnURL)
	require.True(t, ok)
	assert.Equal(t, models.OutcomeSuccess, outcome.Result)
	assert.Equal(t, "BK-1", outcome.BookingID)
	assert.Equal(t, int64(1500000), outcome.Amount)

	// The page reloading the return URL must not produce a second outcome
	_, ok = svc.HandleNavigation(returnURL)
	assert.False(t, ok)

	captured := bus.captured()
	require.Len(t, captured, 1)
	assert.Equal(t, events.EventPaymentSucceeded, captured[0].Type)

	var payload events.PaymentEventPayload
	require.NoError(t, json.Unmarshal(captured[0].Payload, &payload))
	assert.Equal(t, int64(1), payload.UserID)
	assert.Equal(t, int64(10), payload.ChatID)
	assert.Equal(t, "BK-1", payload.BookingID)

	// Settled attempt is gone
	_, active := svc.ActiveSession(1)
	assert.False(t, active)
}

func TestHandleNavigation_CancelURL(t *testing.T) {
	gw := new(mockGateway)
	bus := &recordingBus{}
	svc := newPaymentService(gw, bus)

	gw.On("CreatePayment", mock.Anything, "tok", mock.Anything).Return(paymentDetails(), nil).Once()
	snap, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)

	outcome, ok := svc.HandleNavigation("https://bot.example.com/payment/return?id=" + snap.ID + "&cancel=true&status=cancelled")
	require.True(t, ok)
	assert.Equal(t, models.OutcomeFailure, outcome.Result)
	assert.Contains(t, outcome.Message, "hủy")

	captured := bus.captured()
	require.Len(t, captured, 1)
	assert.Equal(t, events.EventPaymentFailed, captured[0].Type)
}

func TestHandleNavigation_NeutralAndUnknownURLs(t *testing.T) {
	gw := new(mockGateway)
	svc := newPaymentService(gw, nil)

	gw.On("CreatePayment", mock.Anything, "tok", mock.Anything).Return(paymentDetails(), nil).Once()
	snap, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)

	// Known attempt, neutral URL: no outcome, attempt stays live
	_, ok := svc.HandleNavigation("https://bot.example.com/payment/return?id=" + snap.ID + "&step=form")
	assert.False(t, ok)
	_, active := svc.ActiveSession(1)
	assert.True(t, active)

	// Unknown attempt
	_, ok = svc.HandleNavigation("https://bot.example.com/payment/return?id=nope&status=paid")
	assert.False(t, ok)
}

func TestDeclareManualPaid(t *testing.T) {
	gw := new(mockGateway)
	bus := &recordingBus{}
	svc := newPaymentService(gw, bus)

	gw.On("CreatePayment", mock.Anything, "tok", mock.Anything).Return(paymentDetails(), nil).Once()
	_, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)

	outcome, err := svc.DeclareManualPaid(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePendingVerify, outcome.Result)

	captured := bus.captured()
	require.Len(t, captured, 1)
	assert.Equal(t, events.EventPaymentPending, captured[0].Type)

	// A late return URL for the settled attempt is inert
	_, ok := svc.HandleNavigation("https://bot.example.com/payment/return?bookingId=BK-1&status=paid")
	assert.False(t, ok)

	_, err = svc.DeclareManualPaid(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAbandonThenFreshSession(t *testing.T) {
	gw := new(mockGateway)
	bus := &recordingBus{}
	svc := newPaymentService(gw, bus)

	gw.On("CreatePayment", mock.Anything, "tok", mock.Anything).Return(paymentDetails(), nil).Twice()

	first, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)

	require.NoError(t, svc.Abandon(context.Background(), 1))
	_, active := svc.ActiveSession(1)
	assert.False(t, active)

	captured := bus.captured()
	require.Len(t, captured, 1)
	assert.Equal(t, events.EventPaymentAbandoned, captured[0].Type)

	// Re-entering payment starts a brand-new session
	second, err := svc.CreateSession(context.Background(), "tok", paymentParams())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.PaymentReady, second.State)

	assert.ErrorIs(t, svc.Abandon(context.Background(), 99), ErrNoActiveSession)
}
