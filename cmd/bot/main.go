package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gunther-tgbot-go/internal/config"
	"github.com/gunther-tgbot-go/internal/handlers"
	"github.com/gunther-tgbot-go/internal/i18n"
	"github.com/gunther-tgbot-go/internal/middleware"
	"github.com/gunther-tgbot-go/internal/services/cache"
	"github.com/gunther-tgbot-go/internal/services/quiz"
	"github.com/gunther-tgbot-go/internal/services/quota"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/gunther-tgbot-go/internal/services/translator"
	"github.com/gunther-tgbot-go/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting translation bot...")

	// Initialize bot
	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}

	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	store, err := storage.NewStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer store.Close()

	limits, err := store.GetSystemLimits(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to load system limits")
	}

	// Initialize shared cache
	cacheService, err := cache.NewService(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize cache")
	}

	// Initialize rate limiter and quota manager
	maxBan := time.Duration(limits.UserBanTimeMins) * time.Minute
	rateLimiter := middleware.NewRateLimiter(cfg, maxBan, log)
	quotaManager := quota.NewManager(store, rateLimiter, log)

	// Initialize translation providers
	providers := translator.NewRegistry(cfg.Provider.Default)
	providers.Register("gapi", translator.NewGoogleProvider(&cfg.Provider.Google, log))

	// Initialize metrics
	metrics := middleware.NewMetrics()

	// Start metrics server if enabled
	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Initialize services
	resolver := translator.NewResolver(store, cacheService, quotaManager, providers, metrics, log)
	scheduler := quiz.NewScheduler(store, metrics, log)

	// Initialize i18n
	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Initialize handlers
	locks := middleware.NewUserLocks()
	quizHandler := handlers.NewQuizHandler(cfg, bot, store, scheduler, locks, metrics, localizer, log)
	commandHandler := handlers.NewCommandHandler(bot, cfg, store, scheduler, quizHandler, rateLimiter, locks, localizer, log)
	messageHandler := handlers.NewMessageHandler(cfg, bot, store, resolver, scheduler, quizHandler, rateLimiter, locks, metrics, localizer, log)

	// Setup update channel
	var updates tgbotapi.UpdatesChannel

	if cfg.Bot.Webhook.Enabled {
		webhookURL := fmt.Sprintf("%s/%s", cfg.Bot.Webhook.URL, bot.Token)
		webhook, err := tgbotapi.NewWebhook(webhookURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to create webhook")
		}

		if _, err := bot.Request(webhook); err != nil {
			log.WithError(err).Fatal("Failed to set webhook")
		}

		updates = bot.ListenForWebhook("/" + bot.Token)
		log.WithField("url", webhookURL).Info("Webhook set")
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = cfg.Bot.UpdateTimeout

		updates = bot.GetUpdatesChan(u)
		log.Info("Using long polling")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Main bot loop. Each update is dispatched on its own goroutine so
	// a slow remote call for one user never stalls the others; the
	// per-user locks inside the handlers serialize same-user work.
	go func() {
		for update := range updates {
			update := update
			go func() {
				// Quiz poll votes
				if update.PollAnswer != nil {
					if err := quizHandler.HandlePollAnswer(ctx, update.PollAnswer); err != nil {
						log.WithError(err).Error("Failed to handle poll answer")
					}
					return
				}

				// Inline keyboard callbacks
				if update.CallbackQuery != nil {
					if err := commandHandler.HandleCallbackQuery(ctx, update.CallbackQuery); err != nil {
						log.WithError(err).Error("Failed to handle callback query")
					}
					return
				}

				if update.Message == nil {
					return
				}

				metrics.RecordMessageReceived()

				// Handle commands
				if update.Message.IsCommand() {
					metrics.RecordCommandExecuted(update.Message.Command())

					if err := commandHandler.HandleCommand(ctx, update.Message); err != nil {
						log.WithError(err).Error("Failed to handle command")
					}
					return
				}

				// Handle regular messages
				if err := messageHandler.HandleMessage(ctx, &update); err != nil {
					log.WithError(err).Error("Failed to handle message")
				}
			}()
		}
	}()

	// Start the daily quiz offer loop
	go quizHandler.RunOfferLoop(ctx)

	// Wait for shutdown signal
	<-sigChan
	log.Info("Shutdown signal received")

	// Cleanup
	if cfg.Bot.Webhook.Enabled {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.WithError(err).Error("Failed to delete webhook")
		}
	}

	cancel()

	// Give goroutines time to finish
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}
