package bot

import (
	"context"
	"sync"
	"time"

	"harborbook/internal/config"
	"harborbook/internal/domain"
	"harborbook/internal/events"
	"harborbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Bot drives the Telegram side of the booking flow. All marketplace calls go
// through the gateway; the bot itself only renders screens and moves the
// per-user flow state between steps.
type Bot struct {
	tgService    domain.TelegramService
	config       *config.Config
	flows        domain.FlowManager
	orchestrator domain.BookingOrchestrator
	payments     domain.PaymentManager
	gateway      domain.MarketplaceGateway
	sessions     domain.SessionStore
	journal      domain.OutcomeJournal
	users        domain.UserService
	eventBus     *events.EventBus
	logger       *zerolog.Logger

	mu     sync.Mutex
	logins map[int64]*loginState
}

// loginState is the transient /login dialogue position. It never leaves the
// process: a restart simply restarts the dialogue.
type loginState struct {
	step  string // "email" | "password"
	email string
}

func NewBot(
	tgService domain.TelegramService,
	cfg *config.Config,
	flows domain.FlowManager,
	orchestrator domain.BookingOrchestrator,
	payments domain.PaymentManager,
	gw domain.MarketplaceGateway,
	sessions domain.SessionStore,
	journal domain.OutcomeJournal,
	users domain.UserService,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) *Bot {
	if eventBus == nil {
		eventBus = events.NewEventBus()
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}

	return &Bot{
		tgService:    tgService,
		config:       cfg,
		flows:        flows,
		orchestrator: orchestrator,
		payments:     payments,
		gateway:      gw,
		sessions:     sessions,
		journal:      journal,
		users:        users,
		eventBus:     eventBus,
		logger:       logger,
		logins:       make(map[int64]*loginState),
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.tgService.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update)
			return
		}

		if update.Message == nil {
			return
		}

		userID := update.Message.From.ID
		if b.users.IsBlacklisted(userID) {
			return
		}

		if !b.users.IsManager(userID) && !b.allowMessage(updateCtx, userID) {
			b.sendMessage(update.Message.Chat.ID, "⏳ Bạn thao tác quá nhanh. Vui lòng chờ một chút rồi thử lại.")
			return
		}

		b.handleMessage(updateCtx, update)
	})
}

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

func (b *Bot) allowMessage(ctx context.Context, userID int64) bool {
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	allowed, err := b.flows.CheckRateLimit(ctx, userID, b.config.Bot.RateLimitMessages, window)
	if err != nil {
		// Rate limiting is best-effort; a broken limiter must not block users.
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("rate limit check failed")
		return true
	}
	return allowed
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message error")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	if _, err := b.tgService.SendMarkdown(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message error")
	}
}

func (b *Bot) sendMarkdownKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeMarkdown
	msg.ReplyMarkup = keyboard
	if _, err := b.tgService.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message error")
	}
}

func (b *Bot) loginStateFor(userID int64) (*loginState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.logins[userID]
	return st, ok
}

func (b *Bot) setLoginState(userID int64, st *loginState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st == nil {
		delete(b.logins, userID)
		return
	}
	b.logins[userID] = st
}
