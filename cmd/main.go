package main

import (
	"complaintbot/backend/internal/api/handler"
	"complaintbot/backend/internal/complaint"
	"complaintbot/backend/internal/config"
	"complaintbot/backend/internal/intake"
	"complaintbot/backend/internal/localization"
	"complaintbot/backend/internal/notification"
	"complaintbot/backend/internal/storage"
	"complaintbot/backend/internal/telegram"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

// setupSessions picks the intake session store: Redis when configured, memory otherwise.
func setupSessions(ctx context.Context, cfg config.Config) (intake.SessionStore, func(), error) {
	if cfg.RedisAddr == "" {
		slog.Info("Using in-memory intake sessions")
		return intake.NewMemoryStore(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	slog.Info("Using Redis intake sessions", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return intake.NewRedisStore(rdb, cfg.SessionTTL), func() { _ = rdb.Close() }, nil
}

func main() {
	config.LoadEnvFiles()

	if err := run(); err != nil {
		slog.Error("Complaint bot backend failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("Starting complaint bot backend...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open complaint store: %w", err)
	}
	s := storage.NewStorageService(db)
	defer s.Close()

	sessions, closeSessions, err := setupSessions(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
	}
	defer closeSessions()

	localizer, err := localization.NewLocalizer()
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	// 2. Submission pipeline and intake dialogue
	dispatcher := notification.NewDispatcher(cfg.NotificationURL, notification.WithTimeout(cfg.NotificationTimeout))
	complaintSvc := complaint.NewService(s, dispatcher)
	machine := intake.NewMachine(sessions, complaintSvc,
		intake.WithSessionTTL(cfg.SessionTTL),
		intake.WithSkipWords(localizer.Values("btn_skip")...),
	)

	botAPI, err := telegram.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("start telegram bot: %w", err)
	}
	botService := telegram.NewBotService(botAPI, machine, localizer)

	// 3. HTTP API
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.NewRouter(handler.NewHandler(s)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		botService.Run(ctx)
		slog.Info("Telegram bot stopped")
	}()
	go func() {
		defer wg.Done()
		slog.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	wg.Wait()
	slog.Info("Shutdown complete")
	return nil
}
