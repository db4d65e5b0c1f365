package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/halcyon/courier/internal/api"
	"github.com/halcyon/courier/internal/auth"
	"github.com/halcyon/courier/internal/config"
	"github.com/halcyon/courier/internal/database"
	"github.com/halcyon/courier/internal/fallback"
	"github.com/halcyon/courier/internal/middleware"
	"github.com/halcyon/courier/internal/presence"
	"github.com/halcyon/courier/internal/pubsub"
	"github.com/halcyon/courier/internal/registry"
	"github.com/halcyon/courier/internal/relay"
	"github.com/halcyon/courier/internal/server"
	"github.com/halcyon/courier/internal/websocket"
)

func main() {
	// Structured logging from the start
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	if err := database.EnsureSchema(ctx, db, "migrations"); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := database.NewUserRepository(db)
	messageRepo := database.NewMessageRepository(db)

	// Token service (use a default key for dev if not set)
	jwtKey := cfg.JWTSigningKey
	if jwtKey == "" {
		if cfg.IsDevelopment() {
			jwtKey = "dev-signing-key-do-not-use-in-production!!"
			slog.Warn("using default JWT signing key - DO NOT USE IN PRODUCTION")
		} else {
			slog.Error("JWT_SIGNING_KEY is required in production")
			os.Exit(1)
		}
	}

	tokenService, err := auth.NewTokenService(jwtKey)
	if err != nil {
		slog.Error("failed to create token service", "error", err)
		os.Exit(1)
	}
	authService := auth.NewService(userRepo, tokenService)

	// PubSub (in-memory for single instance, Redis across instances)
	var ps pubsub.PubSub
	if cfg.PubSubType == "redis" {
		ps, err = pubsub.NewRedisPubSub(cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis pubsub", "error", err)
			os.Exit(1)
		}
	} else {
		ps = pubsub.NewMemoryPubSub()
	}
	defer ps.Close()

	// Relay core
	reg := registry.New()
	tracker := presence.NewTracker(userRepo, ps, logger)
	router := relay.NewRouter(messageRepo, reg, logger)
	responder := fallback.NewResponder(userRepo, cfg.ResponderURL, cfg.ResponderTimeout, cfg.CannedReplyDelay, logger)
	if cfg.ResponderURL == "" {
		slog.Warn("RESPONDER_URL not set - busy-fallback will always use the canned reply")
	}

	// WebSocket hub
	hub := websocket.NewHub(reg, tracker, router, ps, logger)
	if err := hub.Start(context.Background()); err != nil {
		slog.Error("failed to start hub", "error", err)
		os.Exit(1)
	}
	defer hub.Stop()
	wsHandler := websocket.NewHandler(hub, authService, logger)

	// HTTP handlers
	deps := &server.Dependencies{
		DB:             db,
		AuthService:    authService,
		AuthHandler:    api.NewAuthHandler(authService, logger),
		StatusHandler:  api.NewStatusHandler(tracker, logger),
		ChatHandler:    api.NewChatHandler(responder, logger),
		MessageHandler: api.NewMessageHandler(messageRepo, logger),
		WSHandler:      wsHandler,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimitPerMin),
		Logger:         logger,
	}

	srv := server.New(cfg, deps)

	// Graceful shutdown setup
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("shutting down gracefully...")

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer timeoutCancel()

	if err := srv.Shutdown(timeoutCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
