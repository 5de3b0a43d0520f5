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

	"github.com/lmittmann/tint"

	"sketchspy/internal/app"
	"sketchspy/internal/config"
	"sketchspy/internal/domain"
	"sketchspy/internal/storage"
	"sketchspy/internal/storage/migrations"
	httpTransport "sketchspy/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting sketchspy server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	if cfg.Session.GeneratedSecret {
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	clock := app.RealClock()
	deck := app.NewPromptDeck(app.DefaultPromptPairs)

	var archive app.RoundArchive = storage.NewMemoryArchive()
	if cfg.Storage.DatabaseURL != "" {
		store, err := openPostgres(cfg.Storage, deck, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		archive = store
	}

	artifacts, err := storage.NewArtifactStore(cfg.Storage.UploadDir, "/static", storage.DefaultMaxArtifactBytes)
	if err != nil {
		logger.Error("failed to prepare upload directory", "dir", cfg.Storage.UploadDir, "error", err)
		os.Exit(1)
	}

	hub := app.NewGameHub(app.HubConfig{
		Limits: domain.Limits{
			MinPlayers:  cfg.Game.MinPlayers,
			MaxPlayers:  cfg.Game.MaxPlayers,
			Countdown:   time.Duration(cfg.Game.CountdownSeconds) * time.Second,
			DrawSeconds: cfg.Game.DrawSeconds,
			VoteSeconds: cfg.Game.VoteSeconds,
		},
		RoomCodeLength:   cfg.Game.RoomCodeLength,
		MaxRoundAge:      cfg.Game.MaxRoundAge,
		StaleRoomTimeout: cfg.Game.StaleRoomTimeout,
		CleanupInterval:  cfg.Game.CleanupInterval,
	}, app.HubDeps{
		Sessions: app.NewSessionStore([]byte(cfg.Session.Secret), cfg.Session.TTL, clock),
		Deck:     deck,
		Archive:  archive,
		Clock:    clock,
		Logger:   logger,
	})
	defer hub.Close()

	server := httpTransport.NewServer(cfg, hub, artifacts, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// openPostgres migrates the schema, applies the optional prompt seed file
// and loads the prompt deck from the database
func openPostgres(cfg config.StorageConfig, deck *app.PromptDeck, logger *slog.Logger) (*storage.PostgresStore, error) {
	if err := migrations.Migrate(cfg.DatabaseURL); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.PromptSeedFile != "" {
		seed, err := storage.ReadPromptPairs(cfg.PromptSeedFile)
		if err != nil {
			store.Close()
			return nil, err
		}
		added, err := store.SeedPromptPairs(ctx, seed)
		if err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("seeded prompt pairs", "file", cfg.PromptSeedFile, "added", added)
	}

	pairs, err := store.PromptPairs(ctx)
	switch {
	case err != nil:
		logger.Warn("failed to load prompt pairs, using built-in deck", "error", err)
	case len(pairs) == 0:
		logger.Warn("prompt_pairs table is empty, using built-in deck")
	default:
		deck.Replace(pairs)
	}
	logger.Info("prompt deck ready", "pairs", deck.Len())

	return store, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := parseLogLevel(cfg.Level)
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
