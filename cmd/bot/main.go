// Package main contains the entrypoint for the event discovery bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whatwhere/eventbot/internal/bot"
	"github.com/whatwhere/eventbot/internal/config"
	"github.com/whatwhere/eventbot/internal/database"
	"github.com/whatwhere/eventbot/internal/geo"
	"github.com/whatwhere/eventbot/internal/intent"
	"github.com/whatwhere/eventbot/internal/logger"
	"github.com/whatwhere/eventbot/internal/search"
	"github.com/whatwhere/eventbot/internal/vk"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all application components, starts the bot, and returns an
// exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	// The poll client gets no transport timeout; long-poll requests block for
	// the configured wait and set per-request context deadlines instead.
	apiHTTPClient := &http.Client{Timeout: cfg.VK.RequestTimeout}
	pollHTTPClient := &http.Client{}

	vkCfg := vk.Config{
		Token:          cfg.VK.Token,
		APIVersion:     cfg.VK.APIVersion,
		PollWait:       cfg.VK.PollWait,
		PollMode:       cfg.VK.PollMode,
		RequestTimeout: cfg.VK.RequestTimeout,
	}
	vkAPI := vk.NewClient(apiHTTPClient, vkCfg, log)
	vkFeed := vk.NewClient(pollHTTPClient, vkCfg, log)

	intentSvc, err := newIntentService(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize intent provider", "provider", cfg.Intent.Provider, "error", err)
		return 1
	}

	geocoder := geo.NewClient(&http.Client{Timeout: cfg.Geocoder.Timeout}, geo.Config{
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   cfg.Geocoder.Timeout,
	}, log)

	index, err := search.NewIndex(search.IndexConfig{
		Addresses: cfg.Search.Addresses,
		Index:     cfg.Search.Index,
		Username:  cfg.Search.Username,
		Password:  cfg.Search.Password,
		Timeout:   cfg.Search.Timeout,
	}, nil, log)
	if err != nil {
		log.Error("Failed to create search index client", "error", err)
		return 1
	}

	normalizer := search.NewNormalizer(geocoder, cfg.Bot.ResultWindow, cfg.Bot.NextResultWindow, log)
	renderer := bot.NewRenderer(vkAPI, index, apiHTTPClient, cfg.Bot.Messages, log)
	pipeline := bot.NewPipeline(intentSvc, normalizer, index, renderer, store, cfg.Intent.Timeout, log)
	pollLoop := bot.NewPollLoop(vkFeed, pipeline, cfg.Bot.BackoffInitial, cfg.Bot.BackoffMax, log)

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, bot.RegisterTasks(store, cfg.Database.Retention, log))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.New(log, pollLoop, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}

func newIntentService(ctx context.Context, cfg *config.Config, log *slog.Logger) (intent.Service, error) {
	switch cfg.Intent.Provider {
	case "gemini":
		return intent.NewGeminiClient(ctx, intent.GeminiConfig{
			APIKey:      cfg.Intent.GeminiAPIKey,
			Model:       cfg.Intent.GeminiModel,
			Temperature: cfg.Intent.GeminiTemperature,
			MaxRetries:  cfg.Intent.GeminiMaxRetries,
			RetryDelay:  cfg.Intent.GeminiRetryDelay,
		}, log)
	default:
		return intent.NewAPIAIClient(&http.Client{Timeout: cfg.Intent.Timeout}, intent.APIAIConfig{
			Token:   cfg.Intent.APIAIToken,
			BaseURL: cfg.Intent.APIAIBaseURL,
			Lang:    cfg.Intent.APIAILang,
			Timeout: cfg.Intent.Timeout,
		}, log), nil
	}
}
