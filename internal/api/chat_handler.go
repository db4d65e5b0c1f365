package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/halcyon/courier/internal/auth"
	"github.com/halcyon/courier/internal/domain"
	"github.com/halcyon/courier/internal/fallback"
)

// ChatHandler handles explicit chat requests to busy users
type ChatHandler struct {
	responder *fallback.Responder
	logger    *slog.Logger
}

func NewChatHandler(responder *fallback.Responder, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		responder: responder,
		logger:    logger,
	}
}

type requestChatInput struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// RequestChat asks the busy-fallback responder for a reply on behalf of
// a busy recipient
func (h *ChatHandler) RequestChat(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input requestChatInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.To == "" || input.Message == "" {
		writeError(w, http.StatusBadRequest, "to and message are required")
		return
	}

	reply, err := h.responder.RequestChat(r.Context(), user.Name, input.To, input.Message)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecipientUnavailable):
			writeError(w, http.StatusBadRequest, "Recipient is unavailable")
		case errors.Is(err, domain.ErrRecipientNotBusy):
			writeError(w, http.StatusBadRequest, "Recipient is not busy")
		default:
			h.logger.Error("chat request failed", "user", user.Name, "to", input.To, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to handle chat request")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}
