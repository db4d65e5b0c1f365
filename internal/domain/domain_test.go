package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Status Tests
// =============================================================================

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusAvailable.Valid())
	assert.True(t, StatusBusy.Valid())
	assert.False(t, Status("").Valid())
	assert.False(t, Status("AWAY").Valid())
	assert.False(t, Status("busy").Valid(), "statuses are case-sensitive")
}

// =============================================================================
// User.ToPublic Tests
// =============================================================================

func TestUser_ToPublic_NeverExposesEmail(t *testing.T) {
	user := &User{
		ID:     uuid.New(),
		Name:   "charlie",
		Email:  "charlie@secret.com",
		Online: true,
		Status: StatusAvailable,
	}

	pub := user.ToPublic()

	assert.Equal(t, user.ID, pub.ID)
	assert.Equal(t, "charlie", pub.Name)
	assert.True(t, pub.Online)
	assert.Equal(t, StatusAvailable, pub.Status)
}

func TestUser_ToPublic_CarriesPresence(t *testing.T) {
	user := &User{ID: uuid.New(), Name: "dana", Online: false, Status: StatusBusy}

	pub := user.ToPublic()

	assert.False(t, pub.Online)
	assert.Equal(t, StatusBusy, pub.Status)
}
