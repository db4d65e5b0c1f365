// Package relay routes point-to-point messages between connected
// users. Every message is appended to the durable log before delivery
// is attempted, so the log is a complete audit trail whether or not
// the recipient was reachable.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/halcyon/courier/internal/domain"
	"github.com/halcyon/courier/internal/registry"
)

// EventTypeMessage is the event delivered to a recipient's connection.
const EventTypeMessage = "message"

// Log is the append-only message log collaborator.
type Log interface {
	Append(ctx context.Context, msg *domain.Message) error
}

// Router resolves recipients through the connection registry and
// forwards messages to their live handles. Delivery is one-shot at
// routing time; there is no queueing for later reconnect.
type Router struct {
	log    Log
	reg    *registry.Registry
	logger *slog.Logger
}

func NewRouter(log Log, reg *registry.Registry, logger *slog.Logger) *Router {
	return &Router{
		log:    log,
		reg:    reg,
		logger: logger.With("component", "relay"),
	}
}

// Route persists a message and forwards it if the recipient has a live
// connection. Persistence is mandatory: if the append fails, delivery
// is skipped and the error is surfaced to the sender. An offline
// recipient yields domain.ErrRecipientOffline after the message is
// already on the log.
func (r *Router) Route(ctx context.Context, from, to, content string) (*domain.Message, error) {
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Content:   content,
		CreatedAt: time.Now(),
	}

	if err := r.log.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	handle, ok := r.reg.Lookup(to)
	if !ok {
		return msg, domain.ErrRecipientOffline
	}

	if err := handle.Push(EventTypeMessage, msg); err != nil {
		// One-shot delivery: the message is on the log, the push is
		// not retried.
		r.logger.Warn("message push failed", "from", from, "to", to, "error", err)
	}

	return msg, nil
}
