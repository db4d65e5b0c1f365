package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is a user's availability as advertised to other users.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusBusy      Status = "BUSY"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusBusy
}

// User represents a registered account. Name doubles as the routing
// address for the relay, so it is unique.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"` // omit in public responses
	Online    bool      `json:"online"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicUser is the safe-to-expose version of User.
type PublicUser struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Online bool      `json:"online"`
	Status Status    `json:"status"`
}

func (u *User) ToPublic() PublicUser {
	return PublicUser{
		ID:     u.ID,
		Name:   u.Name,
		Online: u.Online,
		Status: u.Status,
	}
}
