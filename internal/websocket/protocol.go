package websocket

import (
	"encoding/json"
	"time"
)

// Event types for client -> server
const (
	EventTypeMessageSend = "message"
)

// Event types for server -> client
const (
	EventTypeError         = "error"
	EventTypeMessage       = "message"
	EventTypeUserStatus    = "userStatus"
	EventTypeUndeliverable = "message.undeliverable"
)

// Message is the base WebSocket message envelope
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// NewMessage creates a message with the current timestamp
func NewMessage(eventType string, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now(),
	}, nil
}

// ============================================================================
// Client -> Server Payloads
// ============================================================================

// SendPayload asks the relay to route a message to another user
type SendPayload struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// ============================================================================
// Server -> Client Payloads
// ============================================================================

// ErrorPayload for error responses
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UndeliverablePayload tells the sender their message was persisted but
// could not be delivered live
type UndeliverablePayload struct {
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// StatusPayload mirrors the presence event pushed to every connection
type StatusPayload struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
}
