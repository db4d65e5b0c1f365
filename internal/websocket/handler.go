package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/halcyon/courier/internal/auth"
	"github.com/halcyon/courier/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins in development (tighten in production)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket upgrade requests. Admission happens at the
// handshake, before the upgrade: a connection that fails the gate never
// reaches the registry.
type Handler struct {
	hub    *Hub
	auth   *auth.Service
	logger *slog.Logger
}

// NewHandler creates a WebSocket handler
func NewHandler(hub *Hub, authService *auth.Service, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		auth:   authService,
		logger: logger,
	}
}

// ServeHTTP admits the credential, upgrades HTTP to WebSocket, and runs
// the connection until the client disconnects
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential := auth.BearerToken(r)
	if credential == "" {
		credential = r.URL.Query().Get("token")
	}

	user, err := h.auth.Admit(r.Context(), credential)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, domain.ErrMissingCredential) {
			status = http.StatusForbidden
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "user", user.Name)
		return
	}

	client := NewClient(h.hub, conn, user, h.logger)

	// Use a dedicated context for the WebSocket connection lifecycle
	// The request context gets cancelled when ServeHTTP returns after upgrade
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Connected(ctx, client)

	go client.WritePump(ctx)
	client.ReadPump(ctx) // Block here until client disconnects
}
