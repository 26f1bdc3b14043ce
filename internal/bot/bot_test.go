package bot

import (
	"context"
	"sync"
	"time"

	"harborbook/internal/gateway"
	"harborbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeTelegramService records everything the bot sends.
type fakeTelegramService struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	callbacks []string
}

func (f *fakeTelegramService) record(c tgbotapi.Chattable) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
}

func (f *fakeTelegramService) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.record(c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegramService) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.record(c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegramService) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	return f.Send(tgbotapi.NewMessage(chatID, text))
}

func (f *fakeTelegramService) SendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeMarkdown
	return f.Send(msg)
}

func (f *fakeTelegramService) SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	return f.Send(msg)
}

func (f *fakeTelegramService) EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	if keyboard != nil {
		return f.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *keyboard))
	}
	return f.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (f *fakeTelegramService) AnswerCallback(callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, text)
	return nil
}

func (f *fakeTelegramService) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return nil
}

func (f *fakeTelegramService) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "harborbook_bot"}
}

func (f *fakeTelegramService) StopReceivingUpdates() {}

func (f *fakeTelegramService) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// fakeFlowManager is a minimal in-memory FlowManager for bot tests.
type fakeFlowManager struct {
	mu          sync.Mutex
	states      map[int64]*models.FlowState
	cleared     []int64
	validateErr error
}

func newFakeFlowManager() *fakeFlowManager {
	return &fakeFlowManager{states: make(map[int64]*models.FlowState)}
}

func (f *fakeFlowManager) GetFlow(ctx context.Context, userID int64) (*models.FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[userID], nil
}

func (f *fakeFlowManager) BeginFlow(ctx context.Context, userID, chatID int64) (*models.FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := &models.FlowState{UserID: userID, ChatID: chatID, Step: models.StepSelectBoatyard}
	f.states[userID] = state
	return state, nil
}

func (f *fakeFlowManager) Contribute(ctx context.Context, userID int64, step string, contribution models.BookingDraft) (*models.FlowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[userID]
	if !ok {
		state = &models.FlowState{UserID: userID}
		f.states[userID] = state
	}
	state.Draft = state.Draft.Merge(contribution)
	state.Step = step
	return state, nil
}

func (f *fakeFlowManager) SetStep(ctx context.Context, userID int64, step string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state, ok := f.states[userID]; ok {
		state.Step = step
	}
	return nil
}

func (f *fakeFlowManager) SetBooking(ctx context.Context, userID int64, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if state, ok := f.states[userID]; ok {
		state.BookingID = bookingID
	}
	return nil
}

func (f *fakeFlowManager) ClearFlow(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, userID)
	f.cleared = append(f.cleared, userID)
	return nil
}

func (f *fakeFlowManager) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeFlowManager) ValidateDraft(draft models.BookingDraft) error {
	return f.validateErr
}

// fakeSessionStore serves one canned marketplace login.
type fakeSessionStore struct {
	session *models.UserSession
}

func (f *fakeSessionStore) SaveSession(ctx context.Context, session *models.UserSession) error {
	f.session = session
	return nil
}

func (f *fakeSessionStore) GetSession(ctx context.Context, telegramID int64) (*models.UserSession, error) {
	return f.session, nil
}

func (f *fakeSessionStore) ClearSession(ctx context.Context, telegramID int64) error {
	f.session = nil
	return nil
}

// fakeGateway serves canned catalog data; the write paths are unused in
// these tests.
type fakeGateway struct {
	ships []models.Ship
}

func (f *fakeGateway) Login(ctx context.Context, email, password string) (*gateway.LoginResult, error) {
	return &gateway.LoginResult{Token: "tok"}, nil
}

func (f *fakeGateway) ListBoatyards(ctx context.Context, token string) ([]models.Boatyard, error) {
	return nil, nil
}

func (f *fakeGateway) ListServices(ctx context.Context, token, boatyardID string) ([]models.MarineService, error) {
	return nil, nil
}

func (f *fakeGateway) ListDockSlots(ctx context.Context, token, boatyardID string) ([]models.DockSlot, error) {
	return nil, nil
}

func (f *fakeGateway) ListShips(ctx context.Context, token string) ([]models.Ship, error) {
	return f.ships, nil
}

func (f *fakeGateway) RegisterShip(ctx context.Context, token string, req gateway.RegisterShipRequest) (*models.Ship, error) {
	return nil, nil
}

func (f *fakeGateway) CreateBooking(ctx context.Context, token string, req gateway.CreateBookingRequest) (*models.Booking, error) {
	return nil, nil
}

func (f *fakeGateway) GetBooking(ctx context.Context, token, id string) (*models.Booking, error) {
	return nil, nil
}

func (f *fakeGateway) CreatePayment(ctx context.Context, token string, req gateway.CreatePaymentRequest) (*gateway.PaymentDetails, error) {
	return nil, nil
}

// fakeJournal serves canned outcome records.
type fakeJournal struct {
	records []models.OutcomeRecord
}

func (f *fakeJournal) AppendOutcome(ctx context.Context, record *models.OutcomeRecord) error {
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeJournal) ListOutcomes(ctx context.Context, since time.Time) ([]models.OutcomeRecord, error) {
	return f.records, nil
}
