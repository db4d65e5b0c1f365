package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/halcyon/courier/internal/domain"
	"github.com/halcyon/courier/internal/presence"
	"github.com/halcyon/courier/internal/pubsub"
	"github.com/halcyon/courier/internal/registry"
	"github.com/halcyon/courier/internal/relay"
)

// Hub wires connections into the relay core. Connection state lives in
// the registry; the hub invokes the presence and routing transitions
// synchronously at the connect, disconnect, and message points.
type Hub struct {
	reg     *registry.Registry
	tracker *presence.Tracker
	router  *relay.Router
	ps      pubsub.PubSub
	sub     pubsub.Subscription
	logger  *slog.Logger
}

func NewHub(reg *registry.Registry, tracker *presence.Tracker, router *relay.Router, ps pubsub.PubSub, logger *slog.Logger) *Hub {
	return &Hub{
		reg:     reg,
		tracker: tracker,
		router:  router,
		ps:      ps,
		logger:  logger.With("component", "hub"),
	}
}

// Start subscribes the hub to the presence topic so transitions from
// any instance reach every connection registered here.
func (h *Hub) Start(ctx context.Context) error {
	sub, err := h.ps.Subscribe(ctx, pubsub.TopicPresence, h.fanOutPresence)
	if err != nil {
		return err
	}
	h.sub = sub
	return nil
}

// Stop releases the presence subscription.
func (h *Hub) Stop() {
	if h.sub != nil {
		_ = h.sub.Unsubscribe()
	}
}

// Connected registers an admitted connection and runs the online
// transition. A prior connection for the same user is superseded in
// the registry; its transport is left to die on its own.
func (h *Hub) Connected(ctx context.Context, client *Client) {
	prev := h.reg.Register(client.User().Name, client)
	if prev != nil {
		h.logger.Info("connection superseded", "user", client.User().Name)
	}

	if err := h.tracker.Connected(ctx, client.User()); err != nil {
		h.logger.Error("online transition failed", "user", client.User().Name, "error", err)
	}
}

// Disconnected runs the offline transition, unless this connection was
// already superseded by a newer one for the same user.
func (h *Hub) Disconnected(client *Client) {
	if !h.reg.Unregister(client.User().Name, client) {
		// A newer connection owns the registry entry; the user is
		// still online.
		return
	}

	if err := h.tracker.Disconnected(context.Background(), client.User()); err != nil {
		h.logger.Error("offline transition failed", "user", client.User().Name, "error", err)
	}
}

// HandleMessage processes one inbound WebSocket message
func (h *Hub) HandleMessage(ctx context.Context, client *Client, msg *Message) {
	switch msg.Type {
	case EventTypeMessageSend:
		h.handleSend(ctx, client, msg.Payload)
	default:
		client.sendError("unknown_event", "Unknown event type: "+msg.Type)
	}
}

func (h *Hub) handleSend(ctx context.Context, client *Client, payload json.RawMessage) {
	var p SendPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		client.sendError("invalid_payload", "Invalid message payload")
		return
	}
	if p.To == "" {
		client.sendError("missing_recipient", "Recipient is required")
		return
	}

	_, err := h.router.Route(ctx, client.User().Name, p.To, p.Content)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRecipientOffline):
		// The message is on the log; tell the sender it was not
		// delivered live instead of dropping that fact.
		_ = client.Push(EventTypeUndeliverable, UndeliverablePayload{
			To:     p.To,
			Reason: "recipient_offline",
		})
	case errors.Is(err, domain.ErrEmptyMessage):
		client.sendError("empty_message", "Message cannot be empty")
	default:
		h.logger.Error("routing failed", "from", client.User().Name, "to", p.To, "error", err)
		client.sendError("save_failed", "Failed to save message")
	}
}

// fanOutPresence pushes a presence event to every registered handle.
// Sends are independent: one slow or dead connection cannot affect
// delivery to the others.
func (h *Hub) fanOutPresence(ctx context.Context, msg *pubsub.Message) {
	for _, handle := range h.reg.Snapshot() {
		if err := handle.Push(EventTypeUserStatus, msg.Payload); err != nil {
			h.logger.Debug("presence push dropped", "error", err)
		}
	}
}
