package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// NewMessage Tests
// =============================================================================

func TestNewMessage_CreatesCorrectEnvelope(t *testing.T) {
	before := time.Now()
	msg, err := NewMessage("test.event", map[string]string{"key": "value"})
	after := time.Now()

	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.Equal(t, "test.event", msg.Type)
	assert.NotNil(t, msg.Payload)
	assert.False(t, msg.Timestamp.IsZero())
	assert.True(t, !msg.Timestamp.Before(before) && !msg.Timestamp.After(after))
}

func TestNewMessage_NilPayload(t *testing.T) {
	msg, err := NewMessage("test.event", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), msg.Payload)
}

func TestNewMessage_InvalidPayload(t *testing.T) {
	// Channels cannot be marshalled to JSON
	msg, err := NewMessage("test.event", make(chan int))
	assert.Error(t, err)
	assert.Nil(t, msg)
}

// =============================================================================
// Payload Tests
// =============================================================================

func TestSendPayload_RoundTrip(t *testing.T) {
	original := SendPayload{To: "bob", Content: "hi"}
	data, _ := json.Marshal(original)
	var decoded SendPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestStatusPayload_WireFormat(t *testing.T) {
	data, err := json.Marshal(StatusPayload{Name: "alice", Online: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice","online":true}`, string(data))
}

func TestUndeliverablePayload_WireFormat(t *testing.T) {
	data, err := json.Marshal(UndeliverablePayload{To: "bob", Reason: "recipient_offline"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"bob","reason":"recipient_offline"}`, string(data))
}
