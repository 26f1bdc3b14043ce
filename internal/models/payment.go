package models

import "time"

// PaymentState is the lifecycle position of one payment attempt.
type PaymentState string

const (
	PaymentUninitiated   PaymentState = "uninitiated"
	PaymentCreating      PaymentState = "creating"
	PaymentReady         PaymentState = "ready"
	PaymentSucceeded     PaymentState = "succeeded"
	PaymentFailed        PaymentState = "failed"
	PaymentAbandoned     PaymentState = "abandoned"
	PaymentPendingVerify PaymentState = "pending_verification"
)

// Terminal reports whether the state admits no further transitions.
// Abandoned is terminal for this session; the booking itself stays Pending
// and a new session can be opened against it later.
func (s PaymentState) Terminal() bool {
	switch s {
	case PaymentSucceeded, PaymentFailed, PaymentAbandoned, PaymentPendingVerify:
		return true
	}
	return false
}

// PaymentSession is one payment attempt against a booking or order. The
// server-issued fields arrive from POST /payments; a missing CheckoutURL
// means manual bank transfer is the only path.
type PaymentSession struct {
	ID            string       `json:"id"`
	TargetID      string       `json:"targetId"` // booking or order id
	TargetType    string       `json:"targetType"`
	Address       string       `json:"address"`
	State         PaymentState `json:"state"`
	QRCode        string       `json:"qrCode"`
	Bin           string       `json:"bin"`
	AccountNumber string       `json:"accountNumber"`
	Amount        int64        `json:"amount"`
	Description   string       `json:"description"`
	CheckoutURL   string       `json:"checkoutUrl"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// OutcomeResult is the terminal classification of a payment attempt.
type OutcomeResult string

const (
	OutcomeSuccess       OutcomeResult = "success"
	OutcomeFailure       OutcomeResult = "failure"
	OutcomePendingVerify OutcomeResult = "pending_verification"
)

// PaymentOutcome is the only payload the terminal screens need. Immutable
// once produced.
type PaymentOutcome struct {
	Result    OutcomeResult `json:"result"`
	BookingID string        `json:"booking_id"`
	Amount    int64         `json:"amount,omitempty"`
	Message   string        `json:"message"`
}

// OutcomeRecord is a journaled outcome row in the local store.
type OutcomeRecord struct {
	ID        int64         `json:"id"`
	BookingID string        `json:"booking_id"`
	Result    OutcomeResult `json:"result"`
	Amount    int64         `json:"amount"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
}
