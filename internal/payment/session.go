package payment

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"harborbook/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrSessionTerminal means the session already reached a terminal state;
	// a new payment attempt needs a new session.
	ErrSessionTerminal = errors.New("payment session is terminal")

	// ErrNotReady means the requested transition needs the Ready state.
	ErrNotReady = errors.New("payment session is not ready")

	// ErrAmbiguous marks an attempt abandoned without a terminal URL. Not a
	// hard failure: the booking stays Pending and payment can be reopened.
	ErrAmbiguous = errors.New("payment attempt unconfirmed")
)

// Bundle is the server-issued payment material applied on Creating -> Ready.
type Bundle struct {
	QRCode        string
	Bin           string
	AccountNumber string
	Amount        int64
	Description   string
	CheckoutURL   string
}

// Session is one payment attempt against a booking or order.
//
//	Uninitiated -> Creating -> Ready -> {Succeeded | Failed | Abandoned | PendingVerification}
//
// Terminal states are immutable; superseding an attempt means constructing a
// fresh Session against the same target.
type Session struct {
	mu   sync.Mutex
	data models.PaymentSession
}

func NewSession(targetID, targetType, address string) *Session {
	return &Session{data: models.PaymentSession{
		ID:         uuid.NewString(),
		TargetID:   targetID,
		TargetType: targetType,
		Address:    address,
		State:      models.PaymentUninitiated,
		CreatedAt:  time.Now(),
	}}
}

// BeginCreate moves Uninitiated -> Creating. It is the mutual-exclusion
// point for payment creation: a second call fails until the first settles.
func (s *Session) BeginCreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State.Terminal() {
		return ErrSessionTerminal
	}
	if s.data.State != models.PaymentUninitiated {
		return fmt.Errorf("cannot create payment from state %q", s.data.State)
	}
	s.data.State = models.PaymentCreating
	return nil
}

// MarkReady applies the server-issued bundle, Creating -> Ready. Ready is
// display-only; no further calls happen until the user acts.
func (s *Session) MarkReady(b Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State != models.PaymentCreating {
		return fmt.Errorf("cannot mark ready from state %q", s.data.State)
	}
	s.data.QRCode = b.QRCode
	s.data.Bin = b.Bin
	s.data.AccountNumber = b.AccountNumber
	s.data.Amount = b.Amount
	s.data.Description = b.Description
	s.data.CheckoutURL = b.CheckoutURL
	s.data.State = models.PaymentReady
	return nil
}

// FailCreate returns the session to Uninitiated after a failed POST
// /payments, so the user can retry creation against the same target.
func (s *Session) FailCreate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State == models.PaymentCreating {
		s.data.State = models.PaymentUninitiated
	}
}

// Resolve applies a reconciler verdict, Ready -> Succeeded/Failed.
func (s *Session) Resolve(v Verdict) (models.PaymentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State.Terminal() {
		return s.data.State, ErrSessionTerminal
	}
	if s.data.State != models.PaymentReady {
		return s.data.State, ErrNotReady
	}
	switch v {
	case VerdictSuccess:
		s.data.State = models.PaymentSucceeded
	case VerdictFailure:
		s.data.State = models.PaymentFailed
	default:
		return s.data.State, fmt.Errorf("verdict %q resolves nothing", v)
	}
	return s.data.State, nil
}

// Abandon records the user closing the payment UI without a terminal URL.
// Valid exit: the booking stays Pending server-side.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State.Terminal() {
		return ErrSessionTerminal
	}
	if s.data.State != models.PaymentReady {
		return ErrNotReady
	}
	s.data.State = models.PaymentAbandoned
	return nil
}

// DeclareManualPaid records the user's self-report for a bank transfer.
// Distinct from Succeeded: verification happens asynchronously out-of-band.
func (s *Session) DeclareManualPaid() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State.Terminal() {
		return ErrSessionTerminal
	}
	if s.data.State != models.PaymentReady {
		return ErrNotReady
	}
	s.data.State = models.PaymentPendingVerify
	return nil
}

// State returns the current lifecycle position.
func (s *Session) State() models.PaymentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.State
}

// Snapshot returns a copy of the session data for display.
func (s *Session) Snapshot() models.PaymentSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}
