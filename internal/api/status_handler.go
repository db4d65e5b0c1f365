package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/halcyon/courier/internal/auth"
	"github.com/halcyon/courier/internal/domain"
	"github.com/halcyon/courier/internal/presence"
)

// StatusHandler handles availability-status updates
type StatusHandler struct {
	tracker *presence.Tracker
	logger  *slog.Logger
}

func NewStatusHandler(tracker *presence.Tracker, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		tracker: tracker,
		logger:  logger,
	}
}

type setStatusInput struct {
	Status domain.Status `json:"status"`
}

// SetStatus persists the caller's availability status
func (h *StatusHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input setStatusInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tracker.SetStatus(r.Context(), user.ID, input.Status); err != nil {
		if errors.Is(err, domain.ErrInvalidStatus) {
			writeError(w, http.StatusBadRequest, "status must be AVAILABLE or BUSY")
			return
		}
		h.logger.Error("status update failed", "user", user.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User status updated successfully"})
}
