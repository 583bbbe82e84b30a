package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"fibtrivia/internal/app"
	"fibtrivia/internal/config"
	"fibtrivia/internal/store"
	httpTransport "fibtrivia/internal/transport/http"
)

const releaseVersion = "1.0.0"

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	v := config.NewViper()

	cmd := &cobra.Command{
		Use:           "fibtrivia",
		Short:         "Multiplayer bluffing trivia game server.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cobra.CheckErr(config.BindFlags(cmd.Flags(), v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("fibtrivia v{{.Version}}\n")

	return cmd
}

func run(cfg *config.Config) error {
	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting fibtrivia server",
		"version", releaseVersion,
		"env", cfg.Server.Env,
		"addr", cfg.GetAddr(),
		"questionStore", cfg.Questions.Store,
	)

	bank, closeBank, err := openQuestionBank(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBank()

	// Create game hub
	hub := app.NewGameHub(settingsFromConfig(cfg), bank, logger)
	defer hub.Close()

	// Create HTTP server
	server := httpTransport.NewServer(cfg, hub, logger)

	errs := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// openQuestionBank builds the configured question source. The redis bank is
// seeded from the built-in questions when seeding is enabled.
func openQuestionBank(cfg *config.Config, logger *slog.Logger) (app.QuestionBank, func(), error) {
	questions, err := store.EmbeddedQuestions()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Questions.Store != config.StoreRedis {
		logger.Info("serving built-in questions", "count", len(questions))
		return store.NewMemoryBank(questions), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Questions.RedisAddr,
		Password: cfg.Questions.RedisPassword,
		DB:       cfg.Questions.RedisDB,
	})
	bank := store.NewRedisBank(client, cfg.Questions.RedisPrefix)
	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bank.Ping(ctx); err != nil {
		closeClient()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Questions.RedisAddr, err)
	}

	if cfg.Questions.Seed {
		if err := bank.Seed(ctx, questions); err != nil {
			closeClient()
			return nil, nil, fmt.Errorf("seed questions: %w", err)
		}
		logger.Info("seeded redis questions", "count", len(questions), "prefix", cfg.Questions.RedisPrefix)
	}

	return bank, closeClient, nil
}

func settingsFromConfig(cfg *config.Config) app.Settings {
	return app.Settings{
		Rules:            cfg.GameRules(),
		Timings:          cfg.RevealTimings(),
		QuestionsPerGame: cfg.Game.QuestionsPerGame,
		RoomCodeLength:   cfg.Game.RoomCodeLength,
		RoomCodeChars:    cfg.Game.RoomCodeChars,
		TickInterval:     cfg.Game.TickInterval,
		StartDelay:       cfg.Game.StartDelay,
		VotingDelay:      cfg.Game.VotingDelay,
		ResultsDelay:     cfg.Game.ResultsDelay,
		CleanupInterval:  cfg.Game.CleanupInterval,
		StaleRoomTimeout: cfg.Game.StaleRoomTimeout,
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
