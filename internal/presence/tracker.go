// Package presence derives online/offline transitions from connection
// lifecycle events and fans them out to connected users.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/halcyon/courier/internal/domain"
	"github.com/halcyon/courier/internal/pubsub"
)

// EventTypeUserStatus is the pub/sub message type for presence events.
const EventTypeUserStatus = "userStatus"

// Event is the ephemeral, broadcast-only presence payload. It is never
// persisted.
type Event struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

// Store is the account-store surface the tracker needs.
type Store interface {
	SetOnline(ctx context.Context, userID uuid.UUID, online bool) error
	SetStatus(ctx context.Context, userID uuid.UUID, status domain.Status) error
}

// Tracker keeps the durable online flag and the broadcast stream in
// step: the flag is written first, then the event goes out, so no one
// is told a user is online before the store says so.
type Tracker struct {
	store  Store
	ps     pubsub.PubSub
	logger *slog.Logger
}

func NewTracker(store Store, ps pubsub.PubSub, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		ps:     ps,
		logger: logger.With("component", "presence"),
	}
}

// Connected marks a user online and broadcasts the transition.
func (t *Tracker) Connected(ctx context.Context, user *domain.User) error {
	return t.transition(ctx, user, true)
}

// Disconnected marks a user offline and broadcasts the transition.
func (t *Tracker) Disconnected(ctx context.Context, user *domain.User) error {
	return t.transition(ctx, user, false)
}

func (t *Tracker) transition(ctx context.Context, user *domain.User, online bool) error {
	// Write-then-broadcast: the durable flag must be set before anyone
	// is told about it.
	if err := t.store.SetOnline(ctx, user.ID, online); err != nil {
		return fmt.Errorf("set online flag: %w", err)
	}

	payload, err := json.Marshal(Event{Name: user.Name, Online: online})
	if err != nil {
		return fmt.Errorf("marshal presence event: %w", err)
	}

	msg := &pubsub.Message{
		Topic:   pubsub.TopicPresence,
		Type:    EventTypeUserStatus,
		Payload: payload,
	}
	if err := t.ps.Publish(ctx, pubsub.TopicPresence, msg); err != nil {
		// The flag is durable; a lost broadcast only delays the UI.
		t.logger.Warn("presence broadcast failed", "user", user.Name, "online", online, "error", err)
	}

	t.logger.Debug("presence transition", "user", user.Name, "online", online)
	return nil
}

// SetStatus persists a user's availability status. There is no
// broadcast: status is read lazily by the busy-fallback path, not
// pushed to peers.
func (t *Tracker) SetStatus(ctx context.Context, userID uuid.UUID, status domain.Status) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	if err := t.store.SetStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}
