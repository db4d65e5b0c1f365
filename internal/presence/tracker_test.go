package presence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon/courier/internal/domain"
	"github.com/halcyon/courier/internal/pubsub"
)

type fakeStore struct {
	mu        sync.Mutex
	online    map[uuid.UUID]bool
	status    map[uuid.UUID]domain.Status
	failNext  error
	onlineSet chan uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		online:    make(map[uuid.UUID]bool),
		status:    make(map[uuid.UUID]domain.Status),
		onlineSet: make(chan uuid.UUID, 8),
	}
}

func (s *fakeStore) SetOnline(ctx context.Context, userID uuid.UUID, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.online[userID] = online
	s.onlineSet <- userID
	return nil
}

func (s *fakeStore) SetStatus(ctx context.Context, userID uuid.UUID, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[userID] = status
	return nil
}

func (s *fakeStore) isOnline(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[userID]
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestTracker_ConnectedWritesThenBroadcasts(t *testing.T) {
	store := newFakeStore()
	ps := pubsub.NewMemoryPubSub()
	defer ps.Close()

	received := make(chan *pubsub.Message, 1)
	_, err := ps.Subscribe(context.Background(), pubsub.TopicPresence, func(ctx context.Context, msg *pubsub.Message) {
		received <- msg
	})
	require.NoError(t, err)

	tracker := NewTracker(store, ps, testLogger())
	user := &domain.User{ID: uuid.New(), Name: "alice"}

	require.NoError(t, tracker.Connected(context.Background(), user))

	select {
	case msg := <-received:
		assert.Equal(t, EventTypeUserStatus, msg.Type)

		var event Event
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "alice", event.Name)
		assert.True(t, event.Online)

		// The durable flag was written before the broadcast arrived
		assert.True(t, store.isOnline(user.ID))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for presence broadcast")
	}
}

func TestTracker_DisconnectedBroadcastsOffline(t *testing.T) {
	store := newFakeStore()
	ps := pubsub.NewMemoryPubSub()
	defer ps.Close()

	received := make(chan *pubsub.Message, 1)
	_, err := ps.Subscribe(context.Background(), pubsub.TopicPresence, func(ctx context.Context, msg *pubsub.Message) {
		received <- msg
	})
	require.NoError(t, err)

	tracker := NewTracker(store, ps, testLogger())
	user := &domain.User{ID: uuid.New(), Name: "bob"}

	require.NoError(t, tracker.Disconnected(context.Background(), user))

	select {
	case msg := <-received:
		var event Event
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "bob", event.Name)
		assert.False(t, event.Online)
		assert.False(t, store.isOnline(user.ID))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for presence broadcast")
	}
}

func TestTracker_StoreFailureSuppressesBroadcast(t *testing.T) {
	store := newFakeStore()
	store.failNext = errors.New("db down")
	ps := pubsub.NewMemoryPubSub()
	defer ps.Close()

	received := make(chan *pubsub.Message, 1)
	_, err := ps.Subscribe(context.Background(), pubsub.TopicPresence, func(ctx context.Context, msg *pubsub.Message) {
		received <- msg
	})
	require.NoError(t, err)

	tracker := NewTracker(store, ps, testLogger())
	user := &domain.User{ID: uuid.New(), Name: "carol"}

	err = tracker.Connected(context.Background(), user)
	assert.Error(t, err)

	select {
	case <-received:
		t.Fatal("no broadcast may go out when the online-flag write failed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTracker_SetStatus(t *testing.T) {
	store := newFakeStore()
	ps := pubsub.NewMemoryPubSub()
	defer ps.Close()

	received := make(chan *pubsub.Message, 1)
	_, err := ps.Subscribe(context.Background(), pubsub.TopicPresence, func(ctx context.Context, msg *pubsub.Message) {
		received <- msg
	})
	require.NoError(t, err)

	tracker := NewTracker(store, ps, testLogger())
	id := uuid.New()

	require.NoError(t, tracker.SetStatus(context.Background(), id, domain.StatusBusy))
	assert.Equal(t, domain.StatusBusy, store.status[id])

	// Status changes are persisted, not broadcast
	select {
	case <-received:
		t.Fatal("status change must not broadcast")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTracker_SetStatusRejectsUnknownStatus(t *testing.T) {
	tracker := NewTracker(newFakeStore(), pubsub.NewMemoryPubSub(), testLogger())

	err := tracker.SetStatus(context.Background(), uuid.New(), domain.Status("AWAY"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
