package database

import (
	"context"

	"github.com/halcyon/courier/internal/domain"
)

// MessageRepository is the append-only message log. Rows are never
// updated or deleted; routing persists every message here whether or
// not the recipient was reachable.
type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append writes one message to the log
func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO messages (id, sender, recipient, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, msg.From, msg.To, msg.Content, msg.CreatedAt)
	return err
}

// History returns the most recent messages exchanged between two users,
// oldest first.
func (r *MessageRepository) History(ctx context.Context, a, b string, limit int) ([]domain.Message, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, sender, recipient, content, created_at FROM (
			SELECT id, sender, recipient, content, created_at
			FROM messages
			WHERE (sender = $1 AND recipient = $2) OR (sender = $2 AND recipient = $1)
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC
	`, a, b, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
