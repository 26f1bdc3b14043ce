package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveFlow means the user has no booking flow in progress.
	ErrNoActiveFlow = errors.New("no active booking flow")

	// ErrSubmitInFlight rejects a second submit while the first POST is
	// still on the wire.
	ErrSubmitInFlight = errors.New("booking submission already in progress")

	// ErrPaymentInFlight rejects a second payment creation while the first
	// POST /payments has not settled.
	ErrPaymentInFlight = errors.New("payment creation already in progress")

	// ErrNoActiveSession means the user has no live payment attempt.
	ErrNoActiveSession = errors.New("no active payment session")
)

// ValidationError names the draft field that blocks submission.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid draft: %s %s", e.Field, e.Reason)
}
