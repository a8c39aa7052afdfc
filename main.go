package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-gatekeeper/adminapi"
	"quiz-gatekeeper/config"
	"quiz-gatekeeper/database"
	"quiz-gatekeeper/handlers"
	"quiz-gatekeeper/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var (
	bot        *tgbotapi.BotAPI
	botHandler *handlers.BotHandler
)

func main() {
	// Loading configuration
	cfg := config.Load()

	logger.Init(cfg.Debug)
	defer logger.Log.Sync()

	// Connecting to MongoDB
	mongoDB, err := database.Connect(cfg.MongoURI, cfg.MongoDBName, cfg.DefaultAttempts)
	if err != nil {
		logger.Log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoDB.Disconnect()

	// Bot initialization
	bot, err = tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Log.Fatal("Failed to create bot", zap.Error(err))
	}

	bot.Debug = cfg.Debug
	logger.Log.Info("Authorized", zap.String("account", bot.Self.UserName))

	// Initialize the handler
	botHandler = handlers.NewBotHandler(bot, mongoDB, cfg)

	// Installing commands
	setupCommands()

	// Admin API for the web UI
	api := adminapi.New(mongoDB, cfg)
	go func() {
		if err := api.Run(cfg.AdminAPIAddr); err != nil {
			logger.Log.Error("Admin API stopped", zap.Error(err))
		}
	}()

	// Setting up polling (long polling)
	go setupPolling()

	// Waiting for completion signal
	waitForShutdown()
}

func setupCommands() {
	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{
			Command:     "start",
			Description: "Start verification",
		},
		tgbotapi.BotCommand{
			Command:     "admin",
			Description: "Open the admin panel",
		},
		tgbotapi.BotCommand{
			Command:     "addadmin",
			Description: "Appoint a group admin",
		},
	)

	if _, err := bot.Request(commands); err != nil {
		logger.Log.Error("Failed to set commands", zap.Error(err))
	}
}

func setupPolling() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	// chat_member updates are not delivered unless asked for.
	u.AllowedUpdates = []string{"message", "callback_query", "chat_member"}

	updates := bot.GetUpdatesChan(u)

	logger.Log.Info("Bot started polling for updates")

	// Processing updates
	for update := range updates {
		go botHandler.HandleUpdate(update)
	}
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	logger.Log.Info("Bot is running. Press Ctrl+C to stop.")

	// Waiting for the completion signal
	<-sigChan

	logger.Log.Info("Shutting down bot...")

	// We give time to complete operations
	time.Sleep(2 * time.Second)

	logger.Log.Info("Bot shutdown complete")
}
