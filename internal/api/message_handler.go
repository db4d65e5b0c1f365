package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/halcyon/courier/internal/auth"
	"github.com/halcyon/courier/internal/domain"
)

const defaultHistoryLimit = 50

// MessageLog is the read side of the append-only message log
type MessageLog interface {
	History(ctx context.Context, a, b string, limit int) ([]domain.Message, error)
}

// MessageHandler serves message history
type MessageHandler struct {
	log    MessageLog
	logger *slog.Logger
}

func NewMessageHandler(log MessageLog, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		log:    log,
		logger: logger,
	}
}

// History returns the caller's conversation with one peer, oldest first
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	peer := r.PathValue("peer")
	if peer == "" {
		writeError(w, http.StatusBadRequest, "peer required")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	msgs, err := h.log.History(r.Context(), user.Name, peer, limit)
	if err != nil {
		h.logger.Error("history query failed", "user", user.Name, "peer", peer, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}
