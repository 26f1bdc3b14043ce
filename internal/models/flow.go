package models

import "time"

// FlowState is the per-user position in the booking flow, persisted between
// updates. One user has at most one active flow; the draft travels inside the
// state rather than in any ambient global.
type FlowState struct {
	UserID           int64        `json:"user_id"`
	ChatID           int64        `json:"chat_id"`
	Step             string       `json:"step"`
	Draft            BookingDraft `json:"draft"`
	BookingID        string       `json:"booking_id,omitempty"`
	PaymentSessionID string       `json:"payment_session_id,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// UserSession is the persisted marketplace login of a Telegram user.
type UserSession struct {
	TelegramID int64     `json:"telegram_id"`
	Token      string    `json:"token"`
	Role       string    `json:"role"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SyncTask is a queued mirror job for the Sheets worker.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	OutcomeID   int64      `json:"outcome_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
