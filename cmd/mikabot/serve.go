package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mikabot/internal/bot"
	"mikabot/internal/card"
	"mikabot/internal/config"
	"mikabot/internal/dialogue"
	"mikabot/internal/health"
	"mikabot/internal/llm"
	"mikabot/internal/scraper"
	"mikabot/internal/storage"
)

const cacheGCInterval = 10 * time.Minute

// platformBot is a chat platform adapter; Start blocks until ctx is cancelled.
type platformBot interface {
	Start(ctx context.Context) error
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the chat platform and start previewing links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configDir(cmd))
		},
	}
}

func runServe(parent context.Context, dir string) error {
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("Invalid configuration")
		return err
	}
	log.WithFields(logrus.Fields{
		"platform":      cfg.Platform,
		"history_file":  cfg.HistoryFile,
		"preview_cache": cfg.PreviewCachePath,
		"model":         cfg.GeminiModel,
	}).Info("Configuration loaded successfully")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	history := storage.NewHistoryStore(cfg.HistoryFile, cfg.MaxHistoryTurns, log)
	loaded := history.Load()
	log.WithField("channels", len(loaded)).Info("Conversation history loaded")
	defer func() {
		log.Info("Flushing conversation history...")
		if err := history.Close(); err != nil {
			log.WithError(err).Error("Error closing history store")
		}
	}()

	cache, err := storage.NewBadgerPreviewCache(cfg.PreviewCachePath, log)
	if err != nil {
		return fmt.Errorf("open preview cache: %w", err)
	}
	defer func() {
		log.Info("Closing preview cache...")
		if err := cache.Close(); err != nil {
			log.WithError(err).Error("Error closing preview cache")
		}
	}()
	go cache.RunGC(ctx, cacheGCInterval)

	// --- Pipeline ---
	prober := scraper.NewHTTPProber(cfg.ProbeTimeout, log)
	extractor := scraper.NewCachedExtractor(scraper.NewHTTPExtractor(cfg.FetchTimeout, prober, log), cache, cfg.PreviewCacheTTL, log)
	composer := card.NewComposer(cfg.FillerPhrases)

	backend, err := llm.NewGeminiBackend(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, log)
	if err != nil {
		return fmt.Errorf("create model backend: %w", err)
	}
	orchestrator := dialogue.NewOrchestrator(backend, history, cfg.BackendTimeout, log)
	handler := bot.NewHandler(extractor, composer, orchestrator, log)

	platform, err := newPlatformBot(cfg, handler, log)
	if err != nil {
		return err
	}

	// --- Run ---
	log.Info("Starting Mika...")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return health.NewServer(cfg.Port, log).Run(gctx) })
	g.Go(func() error { return platform.Start(gctx) })

	err = g.Wait()
	if err != nil {
		log.WithError(err).Error("Mika stopped with an error")
		return err
	}
	log.Info("Mika shut down gracefully.")
	return nil
}

func newPlatformBot(cfg config.Config, handler *bot.Handler, log logrus.FieldLogger) (platformBot, error) {
	switch cfg.Platform {
	case config.PlatformTelegram:
		b, err := bot.NewTelegramBot(cfg.TelegramBotToken, handler, log)
		if err != nil {
			return nil, fmt.Errorf("initialize telegram bot: %w", err)
		}
		return b, nil
	default:
		b, err := bot.NewDiscordBot(cfg.DiscordToken, handler, log)
		if err != nil {
			return nil, fmt.Errorf("initialize discord bot: %w", err)
		}
		return b, nil
	}
}
