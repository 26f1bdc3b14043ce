package payment

import (
	"sync"

	"harborbook/internal/models"

	"github.com/rs/zerolog"
)

// Reconciler translates navigation events from the hosted checkout page into
// exactly one PaymentOutcome. The page is an opaque third party; the URLs it
// redirects to are its only observable signal.
type Reconciler struct {
	rules     MarkerRules
	session   *Session
	bookingID string
	amount    int64
	onOutcome func(models.PaymentOutcome)
	closeUI   func()
	logger    *zerolog.Logger

	mu   sync.Mutex
	done bool
}

func NewReconciler(rules MarkerRules, session *Session, bookingID string, amount int64, onOutcome func(models.PaymentOutcome), closeUI func(), logger *zerolog.Logger) *Reconciler {
	return &Reconciler{
		rules:     rules.Normalize(),
		session:   session,
		bookingID: bookingID,
		amount:    amount,
		onOutcome: onOutcome,
		closeUI:   closeUI,
		logger:    logger,
	}
}

// BookingID identifies the booking this reconciler watches.
func (r *Reconciler) BookingID() string { return r.bookingID }

// Observe feeds one navigation event. Neutral URLs are inert. The first
// terminal URL resolves the session, emits the outcome and tears down the
// payment UI; every later event (page reloads included) is ignored.
func (r *Reconciler) Observe(rawURL string) (models.PaymentOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return models.PaymentOutcome{}, false
	}

	verdict, ok := r.rules.Classify(rawURL)
	if !ok {
		return models.PaymentOutcome{}, false
	}

	if _, err := r.session.Resolve(verdict); err != nil {
		// Session settled through another path (manual declaration,
		// abandonment). Stop watching.
		r.done = true
		if r.logger != nil {
			r.logger.Warn().Err(err).Str("booking_id", r.bookingID).Msg("navigation event after session settled")
		}
		return models.PaymentOutcome{}, false
	}

	outcome := models.PaymentOutcome{
		BookingID: r.bookingID,
		Amount:    r.amount,
	}
	switch verdict {
	case VerdictSuccess:
		outcome.Result = models.OutcomeSuccess
		outcome.Message = "Thanh toán thành công"
	case VerdictFailure:
		outcome.Result = models.OutcomeFailure
		outcome.Message = "Thanh toán đã bị hủy"
	}

	r.done = true
	if r.logger != nil {
		r.logger.Info().Str("booking_id", r.bookingID).Str("verdict", verdict.String()).Msg("payment reconciled")
	}
	if r.closeUI != nil {
		r.closeUI()
	}
	if r.onOutcome != nil {
		r.onOutcome(outcome)
	}
	return outcome, true
}

// Cancel stops observation without resolving the session. Used when the user
// abandons the payment UI; the booking and any server-side session survive.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true
}

// Done reports whether the reconciler has stopped observing.
func (r *Reconciler) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
