package domain

import (
	"context"
	"time"

	"harborbook/internal/gateway"
	"harborbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MarketplaceGateway is the authenticated request surface of the remote
// marketplace REST API.
type MarketplaceGateway interface {
	Login(ctx context.Context, email, password string) (*gateway.LoginResult, error)
	ListBoatyards(ctx context.Context, token string) ([]models.Boatyard, error)
	ListServices(ctx context.Context, token, boatyardID string) ([]models.MarineService, error)
	ListDockSlots(ctx context.Context, token, boatyardID string) ([]models.DockSlot, error)
	ListShips(ctx context.Context, token string) ([]models.Ship, error)
	RegisterShip(ctx context.Context, token string, req gateway.RegisterShipRequest) (*models.Ship, error)
	CreateBooking(ctx context.Context, token string, req gateway.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, token, id string) (*models.Booking, error)
	CreatePayment(ctx context.Context, token string, req gateway.CreatePaymentRequest) (*gateway.PaymentDetails, error)
}

// FlowRepository persists the per-user flow state between updates.
type FlowRepository interface {
	GetFlow(ctx context.Context, userID int64) (*models.FlowState, error)
	SetFlow(ctx context.Context, state *models.FlowState) error
	ClearFlow(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// SessionStore persists marketplace logins of Telegram users.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.UserSession) error
	GetSession(ctx context.Context, telegramID int64) (*models.UserSession, error)
	ClearSession(ctx context.Context, telegramID int64) error
}

// OutcomeJournal records terminal payment outcomes locally.
type OutcomeJournal interface {
	AppendOutcome(ctx context.Context, record *models.OutcomeRecord) error
	ListOutcomes(ctx context.Context, since time.Time) ([]models.OutcomeRecord, error)
}

// FlowManager is the booking-flow service consumed by the bot.
type FlowManager interface {
	GetFlow(ctx context.Context, userID int64) (*models.FlowState, error)
	BeginFlow(ctx context.Context, userID, chatID int64) (*models.FlowState, error)
	Contribute(ctx context.Context, userID int64, step string, contribution models.BookingDraft) (*models.FlowState, error)
	SetStep(ctx context.Context, userID int64, step string) error
	SetBooking(ctx context.Context, userID int64, bookingID string) error
	ClearFlow(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
	ValidateDraft(draft models.BookingDraft) error
}

// BookingOrchestrator turns a validated draft into a server-side booking.
type BookingOrchestrator interface {
	Submit(ctx context.Context, token string, userID int64, draft models.BookingDraft) (*models.Booking, error)
}

// PaymentManager owns payment sessions and their reconciliation.
type PaymentManager interface {
	CreateSession(ctx context.Context, token string, params CreatePaymentParams) (models.PaymentSession, error)
	ActiveSession(userID int64) (models.PaymentSession, bool)
	HandleNavigation(rawURL string) (models.PaymentOutcome, bool)
	DeclareManualPaid(ctx context.Context, userID int64) (models.PaymentOutcome, error)
	Abandon(ctx context.Context, userID int64) error
}

// CreatePaymentParams seeds one payment attempt.
type CreatePaymentParams struct {
	UserID     int64
	ChatID     int64
	TargetID   string // booking or order id
	TargetType string // Boatyard | Supplier
	Address    string
	Amount     int64
}

// UserService answers role questions about Telegram users.
type UserService interface {
	IsManager(userID int64) bool
	IsBlacklisted(userID int64) bool
}

// SyncWorker schedules outcome mirror jobs.
type SyncWorker interface {
	EnqueueOutcome(ctx context.Context, record models.OutcomeRecord) error
}

// SheetsWriter mirrors outcome records to a spreadsheet.
type SheetsWriter interface {
	AppendOutcome(ctx context.Context, record models.OutcomeRecord) error
	ReplaceOutcomes(ctx context.Context, records []models.OutcomeRecord) error
	TestConnection(ctx context.Context) error
}

// EventPublisher publishes in-process domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// TelegramSender is the raw Telegram Bot API surface the service layer
// consumes; *tgbotapi.BotAPI satisfies it.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// TelegramService wraps the Telegram Bot API for the bot layer.
type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendMarkdown(chatID int64, text string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
