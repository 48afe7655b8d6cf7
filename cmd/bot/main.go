// Package main is the entry point for the Poker Club bot.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"poker-club-bot/internal/bot"
	"poker-club-bot/internal/config"
	"poker-club-bot/internal/game/dice"
	"poker-club-bot/internal/pkg/db"
	"poker-club-bot/internal/pkg/lock"
	"poker-club-bot/internal/repository"
	"poker-club-bot/internal/service"
	"poker-club-bot/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.Log.Level).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("store_backend", cfg.Store.Backend).
		Int("admin_count", len(cfg.Admin.IDs)).
		Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open user store backend")
	}
	defer closeBackend()

	userStore, err := store.Open(ctx, backend)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load users")
	}

	userLock := lock.NewUserLock()
	diceGame := dice.New(&dice.Config{Bet: cfg.Games.Dice.Bet})

	deps := &bot.Dependencies{
		Config:         cfg,
		AccountService: service.NewAccountService(userStore, cfg.Account.StartingChips),
		GameService:    service.NewGameService(userStore, diceGame, userLock),
		AdminService:   service.NewAdminService(userStore, cfg, userLock),
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// openBackend builds the configured store backend and its cleanup function.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, pool.Pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewUserRepository(pool.Pool), pool.Close, nil

	case config.BackendMemory:
		log.Warn().Msg("Using in-memory store; balances are lost on exit")
		return store.NewMemoryBackend(), func() {}, nil

	default:
		backend := store.NewFileBackend(cfg.Store.Path)
		log.Info().Str("path", backend.Path()).Msg("Using JSON file store")
		return backend, func() {}, nil
	}
}
