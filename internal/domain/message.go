package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a point-to-point message between two users, addressed by
// name. Messages are immutable once created and persisted to the log
// regardless of whether the recipient was reachable.
type Message struct {
	ID        uuid.UUID `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
