package service

import (
	"context"
	"net/url"
	"sync"

	"harborbook/internal/domain"
	"harborbook/internal/events"
	"harborbook/internal/gateway"
	"harborbook/internal/metrics"
	"harborbook/internal/models"
	"harborbook/internal/payment"

	"github.com/rs/zerolog"
)

// navigationKeyParams are the query parameters a checkout return URL may
// carry to identify the payment attempt.
var navigationKeyParams = []string{"id", "sessionId", "session_id", "bookingId", "booking_id", "orderCode", "description"}

type paymentAttempt struct {
	session    *payment.Session
	reconciler *payment.Reconciler
	userID     int64
	chatID     int64
	keys       []string
}

// PaymentService owns payment attempts: creation against POST /payments,
// reconciliation of checkout return URLs, manual transfer declarations and
// abandonment. Terminal outcomes leave through the event bus exactly once.
type PaymentService struct {
	gateway  domain.MarketplaceGateway
	registry *payment.Registry
	rules    payment.MarkerRules
	eventBus domain.EventPublisher
	logger   *zerolog.Logger

	mu     sync.Mutex
	byUser map[int64]*paymentAttempt
}

func NewPaymentService(gw domain.MarketplaceGateway, registry *payment.Registry, rules payment.MarkerRules, eventBus domain.EventPublisher, logger *zerolog.Logger) *PaymentService {
	return &PaymentService{
		gateway:  gw,
		registry: registry,
		rules:    rules.Normalize(),
		eventBus: eventBus,
		logger:   logger,
		byUser:   make(map[int64]*paymentAttempt),
	}
}

// CreateSession opens a payment attempt for the user's booking. Re-entering
// the payment screen while an attempt is live returns the existing bundle;
// a settled attempt is replaced by a fresh session.
func (s *PaymentService) CreateSession(ctx context.Context, token string, params domain.CreatePaymentParams) (models.PaymentSession, error) {
	session := payment.NewSession(params.TargetID, params.TargetType, params.Address)
	attempt := &paymentAttempt{
		session: session,
		userID:  params.UserID,
		chatID:  params.ChatID,
	}

	// The attempt must be visible in byUser before the gateway call, while
	// still in Creating: that is what makes the in-flight guard hold against
	// a concurrent CreateSession for the same user.
	s.mu.Lock()
	if prev, ok := s.byUser[params.UserID]; ok {
		switch prev.session.State() {
		case models.PaymentCreating:
			s.mu.Unlock()
			return models.PaymentSession{}, ErrPaymentInFlight
		case models.PaymentReady:
			snap := prev.session.Snapshot()
			s.mu.Unlock()
			return snap, nil
		default:
			// Terminal attempt: unbind and start over.
			s.registry.Remove(prev.keys...)
			delete(s.byUser, params.UserID)
		}
	}
	if err := session.BeginCreate(); err != nil {
		s.mu.Unlock()
		return models.PaymentSession{}, err
	}
	s.byUser[params.UserID] = attempt
	s.mu.Unlock()

	req := gateway.CreatePaymentRequest{
		ID:      params.TargetID,
		Type:    params.TargetType,
		Address: params.Address,
	}
	details, err := s.gateway.CreatePayment(ctx, token, req)
	if err != nil {
		session.FailCreate()
		s.dropAttempt(attempt)
		s.logger.Error().Err(err).Str("target_id", params.TargetID).Msg("payment creation failed")
		return models.PaymentSession{}, err
	}

	if err := session.MarkReady(payment.Bundle{
		QRCode:        details.QRCode,
		Bin:           details.Bin,
		AccountNumber: details.AccountNumber,
		Amount:        details.Amount,
		Description:   details.Description,
		CheckoutURL:   details.CheckoutURL,
	}); err != nil {
		s.dropAttempt(attempt)
		return models.PaymentSession{}, err
	}

	snap := session.Snapshot()
	attempt.reconciler = payment.NewReconciler(
		s.rules, session, params.TargetID, details.Amount,
		func(outcome models.PaymentOutcome) { s.settle(attempt, outcome) },
		nil, s.logger,
	)

	s.mu.Lock()
	attempt.keys = []string{snap.ID, params.TargetID, details.Description}
	s.mu.Unlock()
	s.registry.Register(attempt.reconciler, attempt.keys...)

	s.logger.Info().Str("session_id", snap.ID).Str("target_id", params.TargetID).
		Int64("amount", details.Amount).Msg("payment session ready")
	return snap, nil
}

// dropAttempt unbinds an attempt that never reached Ready.
func (s *PaymentService) dropAttempt(attempt *paymentAttempt) {
	s.mu.Lock()
	if cur, ok := s.byUser[attempt.userID]; ok && cur == attempt {
		delete(s.byUser, attempt.userID)
	}
	s.mu.Unlock()
}

// ActiveSession returns the user's live payment attempt, if any.
func (s *PaymentService) ActiveSession(userID int64) (models.PaymentSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.byUser[userID]
	if !ok {
		return models.PaymentSession{}, false
	}
	return attempt.session.Snapshot(), true
}

// HandleNavigation routes a checkout return URL to the reconciler watching
// it. Neutral URLs and URLs for settled attempts report no outcome.
func (s *PaymentService) HandleNavigation(rawURL string) (models.PaymentOutcome, bool) {
	rec, ok := s.registry.Lookup(navigationKeys(rawURL)...)
	if !ok {
		return models.PaymentOutcome{}, false
	}
	return rec.Observe(rawURL)
}

// DeclareManualPaid records the user's bank transfer self-report. The
// outcome is pending verification, not success.
func (s *PaymentService) DeclareManualPaid(ctx context.Context, userID int64) (models.PaymentOutcome, error) {
	s.mu.Lock()
	attempt, ok := s.byUser[userID]
	s.mu.Unlock()
	if !ok {
		return models.PaymentOutcome{}, ErrNoActiveSession
	}

	if err := attempt.session.DeclareManualPaid(); err != nil {
		return models.PaymentOutcome{}, err
	}
	attempt.reconciler.Cancel()

	snap := attempt.session.Snapshot()
	outcome := models.PaymentOutcome{
		Result:    models.OutcomePendingVerify,
		BookingID: snap.TargetID,
		Amount:    snap.Amount,
		Message:   "Đang chờ xác minh chuyển khoản",
	}
	s.settle(attempt, outcome)
	return outcome, nil
}

// Abandon records the user closing the payment screen without settling.
// The booking stays Pending; a later attempt starts a fresh session.
func (s *PaymentService) Abandon(ctx context.Context, userID int64) error {
	s.mu.Lock()
	attempt, ok := s.byUser[userID]
	s.mu.Unlock()
	if !ok {
		return ErrNoActiveSession
	}

	if err := attempt.session.Abandon(); err != nil {
		return err
	}
	attempt.reconciler.Cancel()

	s.mu.Lock()
	delete(s.byUser, userID)
	s.mu.Unlock()
	s.registry.Remove(attempt.keys...)

	metrics.IncPaymentOutcome("abandoned")
	snap := attempt.session.Snapshot()
	s.publish(events.EventPaymentAbandoned, attempt, models.PaymentOutcome{
		BookingID: snap.TargetID,
		Amount:    snap.Amount,
		Result:    "abandoned",
	})
	s.logger.Info().Int64("user_id", userID).Str("booking_id", snap.TargetID).Msg("payment abandoned")
	return nil
}

func (s *PaymentService) settle(attempt *paymentAttempt, outcome models.PaymentOutcome) {
	s.mu.Lock()
	if cur, ok := s.byUser[attempt.userID]; ok && cur == attempt {
		delete(s.byUser, attempt.userID)
	}
	s.mu.Unlock()
	s.registry.Remove(attempt.keys...)

	metrics.IncPaymentOutcome(string(outcome.Result))

	var eventType string
	switch outcome.Result {
	case models.OutcomeSuccess:
		eventType = events.EventPaymentSucceeded
	case models.OutcomeFailure:
		eventType = events.EventPaymentFailed
	case models.OutcomePendingVerify:
		eventType = events.EventPaymentPending
	default:
		return
	}
	s.publish(eventType, attempt, outcome)
}

func (s *PaymentService) publish(eventType string, attempt *paymentAttempt, outcome models.PaymentOutcome) {
	if s.eventBus == nil {
		return
	}
	payload := events.PaymentEventPayload{
		UserID:    attempt.userID,
		ChatID:    attempt.chatID,
		BookingID: outcome.BookingID,
		Amount:    outcome.Amount,
		Result:    string(outcome.Result),
		Message:   outcome.Message,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", outcome.BookingID).Msg("publish event error")
	}
}

func navigationKeys(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	q := u.Query()
	var keys []string
	for _, p := range navigationKeyParams {
		if v := q.Get(p); v != "" {
			keys = append(keys, v)
		}
	}
	return keys
}
