package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"harborbook/internal/api"
	"harborbook/internal/bot"
	"harborbook/internal/config"
	"harborbook/internal/database"
	"harborbook/internal/events"
	"harborbook/internal/gateway"
	"harborbook/internal/google"
	"harborbook/internal/logging"
	"harborbook/internal/models"
	"harborbook/internal/payment"
	"harborbook/internal/repository"
	"harborbook/internal/service"
	"harborbook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, markerRules, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("database init error")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, flowService := initFlowService(ctx, cfg, &logger)

	marketplace := gateway.NewClient(cfg.Marketplace, &logger)
	if redisClient != nil {
		marketplace.UseRedisCache(redisClient, time.Duration(cfg.Marketplace.CacheTTLSeconds)*time.Second)
	}

	sheetsService := initGoogleSheets(ctx, cfg, &logger)

	var sheetsWorker *worker.SheetsWorker
	if sheetsService != nil {
		retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
		sheetsWorker = worker.NewSheetsWorker(db, sheetsService, redisClient, retryPolicy, &logger)
		go sheetsWorker.Start(ctx)
	}

	eventBus := events.NewEventBus()
	subscribePaymentEvents(ctx, eventBus, db, sheetsWorker, &logger)

	orchestrator := service.NewOrchestratorService(marketplace, eventBus, cfg.Bot.MaxWindowHours, &logger)
	paymentService := service.NewPaymentService(marketplace, payment.NewRegistry(), markerRules, eventBus, &logger)
	userService := service.NewUserService(cfg, &logger)

	if cfg.Listener.Enabled {
		apiServer := api.NewHTTPServer(cfg.Listener, paymentService, db, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("HTTP listener error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	return startBot(ctx, cfg, flowService, orchestrator, paymentService, marketplace, db, userService, eventBus, &logger)
}

func loadConfigAndLogger() (*config.Config, payment.MarkerRules, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, payment.MarkerRules{}, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, payment.MarkerRules{}, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	rules := loadMarkerRules(&logger)

	return cfg, rules, logger, closer, nil
}

// loadMarkerRules reads configs/markers.yaml; a missing or empty file falls
// back to the built-in PayOS-style markers.
func loadMarkerRules(logger *zerolog.Logger) payment.MarkerRules {
	markersPath := os.Getenv("MARKERS_PATH")
	if markersPath == "" {
		markersPath = "configs/markers.yaml"
	}

	data, err := os.ReadFile(markersPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", markersPath).Msg("markers file not readable, using defaults")
		return payment.DefaultMarkerRules()
	}

	var rules payment.MarkerRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		logger.Error().Err(err).Str("path", markersPath).Msg("markers file parse error, using defaults")
		return payment.DefaultMarkerRules()
	}

	rules = rules.Normalize()
	if len(rules.Success) == 0 && len(rules.Cancel) == 0 {
		logger.Warn().Str("path", markersPath).Msg("markers file empty, using defaults")
		return payment.DefaultMarkerRules()
	}
	return rules
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("database directory error")
		return err
	}
	if cfg.Exports.Path != "" {
		if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
			logger.Error().Err(err).Msg("exports directory error")
			return err
		}
	}
	return nil
}

func initFlowService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.FlowService) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	ttl := time.Duration(models.DefaultRedisTTL) * time.Second
	primaryRepo := repository.NewRedisFlowRepository(redisClient, ttl)
	fallbackRepo := repository.NewMemoryFlowRepository(ttl)
	flowRepo := repository.NewFailoverFlowRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewFlowService(flowRepo, cfg.Bot.MaxWindowHours, logger)
}

// initGoogleSheets is optional wiring: without credentials the journal stays
// local and the mirror worker never starts.
func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.OutcomesSpreadsheet == "" {
		logger.Info().Msg("Google Sheets not configured, outcome mirroring disabled")
		return nil
	}

	sheetsSvc, err := google.NewSheetsService(cfg.Google.CredentialsFile, cfg.Google.OutcomesSpreadsheet)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return nil
	}

	if err := sheetsSvc.TestConnection(ctx); err != nil {
		logger.Error().Err(err).Msg("Google Sheets connection test failed")
		return nil
	}

	logger.Info().Msg("Google Sheets service initialized successfully")
	return sheetsSvc
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	flowService *service.FlowService,
	orchestrator *service.OrchestratorService,
	paymentService *service.PaymentService,
	marketplace *gateway.Client,
	db *database.DB,
	userService *service.UserService,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("BotAPI init error")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	botWrapper := bot.NewBotWrapper(botAPI)
	tgService := service.NewTelegramService(botWrapper)

	telegramBot := bot.NewBot(
		tgService, cfg, flowService, orchestrator, paymentService,
		marketplace, db, db, userService, eventBus, logger,
	)

	// Terminal payment screens render off the bus so an outcome reaches the
	// user exactly once no matter where the verdict came from.
	eventBus.Subscribe(events.EventPaymentSucceeded, telegramBot.NotifyPaymentOutcome)
	eventBus.Subscribe(events.EventPaymentFailed, telegramBot.NotifyPaymentOutcome)
	eventBus.Subscribe(events.EventPaymentPending, telegramBot.NotifyPaymentOutcome)

	logger.Info().Msg("Bot starting...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

// subscribePaymentEvents journals every settled outcome locally and queues
// the spreadsheet mirror.
func subscribePaymentEvents(
	ctx context.Context,
	bus *events.EventBus,
	db *database.DB,
	sheetsWorker *worker.SheetsWorker,
	logger *zerolog.Logger,
) {
	handler := func(ev *events.Event) error {
		var payload events.PaymentEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}

		record := models.OutcomeRecord{
			BookingID: payload.BookingID,
			Result:    models.OutcomeResult(payload.Result),
			Amount:    payload.Amount,
			Message:   payload.Message,
		}
		if err := db.AppendOutcome(ctx, &record); err != nil {
			logger.Error().Err(err).Str("booking_id", payload.BookingID).Msg("event bus: journal outcome")
			return nil
		}

		if sheetsWorker != nil {
			if err := sheetsWorker.EnqueueOutcome(ctx, record); err != nil {
				logger.Error().Err(err).Int64("outcome_id", record.ID).Msg("event bus: enqueue mirror")
			}
		}
		return nil
	}

	bus.Subscribe(events.EventPaymentSucceeded, handler)
	bus.Subscribe(events.EventPaymentFailed, handler)
	bus.Subscribe(events.EventPaymentPending, handler)
}
