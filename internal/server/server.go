package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/halcyon/courier/internal/api"
	"github.com/halcyon/courier/internal/auth"
	"github.com/halcyon/courier/internal/config"
	"github.com/halcyon/courier/internal/database"
	"github.com/halcyon/courier/internal/middleware"
	"github.com/halcyon/courier/internal/websocket"
)

// Dependencies holds all service dependencies for the server
type Dependencies struct {
	DB             *database.DB
	AuthService    *auth.Service
	AuthHandler    *api.AuthHandler
	StatusHandler  *api.StatusHandler
	ChatHandler    *api.ChatHandler
	MessageHandler *api.MessageHandler
	WSHandler      *websocket.Handler
	RateLimiter    *middleware.RateLimiter
	Logger         *slog.Logger
}

// New creates an HTTP server with all routes configured.
func New(cfg *config.Config, deps *Dependencies) *http.Server {
	mux := http.NewServeMux()

	registerRoutes(mux, deps)

	handler := chainMiddleware(mux,
		requestIDMiddleware,
		corsMiddleware(cfg),
		loggingMiddleware(deps.Logger),
		recoverMiddleware(deps.Logger),
	)

	return &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	// Health check - essential for docker, k8s, load balancers
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Ready check - verifies DB connectivity
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready","error":"database unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Public routes
	mux.HandleFunc("POST /api/register", deps.AuthHandler.Register)
	mux.HandleFunc("POST /api/login", deps.AuthHandler.Login)

	// Protected routes: admission gate, then per-user rate limiting
	authMiddleware := auth.Middleware(deps.AuthService)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(deps.RateLimiter.Middleware(h))
	}

	mux.Handle("POST /api/status", protect(deps.StatusHandler.SetStatus))
	mux.Handle("POST /api/chat", protect(deps.ChatHandler.RequestChat))
	mux.Handle("GET /api/messages/{peer}", protect(deps.MessageHandler.History))

	// WebSocket route - the handler runs its own handshake admission
	mux.Handle("GET /ws", deps.WSHandler)
}
