package fallback

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon/courier/internal/domain"
)

type fakeDirectory struct {
	users map[string]*domain.User
}

func (d *fakeDirectory) GetByName(ctx context.Context, name string) (*domain.User, error) {
	user, ok := d.users[name]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func directoryWith(users ...*domain.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]*domain.User)}
	for _, u := range users {
		d.users[u.Name] = u
	}
	return d
}

func busyUser(name string) *domain.User {
	return &domain.User{Name: name, Online: true, Status: domain.StatusBusy}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestResponder_UpstreamReplyReturnedVerbatim(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte("On my way, give me five minutes."))
	}))
	defer upstream.Close()

	r := NewResponder(directoryWith(busyUser("bob")), upstream.URL, time.Second, 5*time.Second, testLogger())

	start := time.Now()
	reply, err := r.RequestChat(context.Background(), "alice", "bob", "ping")
	require.NoError(t, err)

	assert.Equal(t, "On my way, give me five minutes.", reply)
	assert.Equal(t, int32(1), calls.Load())
	assert.Less(t, time.Since(start), time.Second, "success path must not wait out the canned delay")
}

func TestResponder_UnreachableUpstreamFallsBackAfterMinDelay(t *testing.T) {
	// Port guaranteed closed: httptest server that is already shut down
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	minDelay := 150 * time.Millisecond
	r := NewResponder(directoryWith(busyUser("bob")), dead.URL, 50*time.Millisecond, minDelay, testLogger())

	start := time.Now()
	reply, err := r.RequestChat(context.Background(), "alice", "bob", "ping")
	elapsed := time.Since(start)

	require.NoError(t, err, "upstream failure is recovered, not surfaced")
	assert.Equal(t, CannedReply, reply)
	assert.GreaterOrEqual(t, elapsed, minDelay)
	assert.Less(t, elapsed, minDelay+time.Second)
}

func TestResponder_UpstreamErrorStatusFallsBack(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	r := NewResponder(directoryWith(busyUser("bob")), upstream.URL, time.Second, 10*time.Millisecond, testLogger())

	reply, err := r.RequestChat(context.Background(), "alice", "bob", "ping")
	require.NoError(t, err)
	assert.Equal(t, CannedReply, reply)
}

func TestResponder_SlowUpstreamBoundedByTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte("too late"))
	}))
	defer upstream.Close()

	r := NewResponder(directoryWith(busyUser("bob")), upstream.URL, 50*time.Millisecond, 100*time.Millisecond, testLogger())

	start := time.Now()
	reply, err := r.RequestChat(context.Background(), "alice", "bob", "ping")
	require.NoError(t, err)
	assert.Equal(t, CannedReply, reply)
	assert.Less(t, time.Since(start), 400*time.Millisecond,
		"timeout plus canned delay must not stack up to the slow upstream's latency")
}

func TestResponder_NotBusyRejectedWithoutUpstreamCall(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	available := &domain.User{Name: "bob", Online: true, Status: domain.StatusAvailable}
	r := NewResponder(directoryWith(available), upstream.URL, time.Second, time.Second, testLogger())

	_, err := r.RequestChat(context.Background(), "alice", "bob", "ping")

	assert.ErrorIs(t, err, domain.ErrRecipientNotBusy)
	assert.Equal(t, int32(0), calls.Load(), "external responder must not be contacted")
}

func TestResponder_OfflineRecipientUnavailable(t *testing.T) {
	offline := &domain.User{Name: "bob", Online: false, Status: domain.StatusBusy}
	r := NewResponder(directoryWith(offline), "http://unused", time.Second, time.Second, testLogger())

	_, err := r.RequestChat(context.Background(), "alice", "bob", "ping")
	assert.ErrorIs(t, err, domain.ErrRecipientUnavailable)
}

func TestResponder_UnknownRecipientUnavailable(t *testing.T) {
	r := NewResponder(directoryWith(), "http://unused", time.Second, time.Second, testLogger())

	_, err := r.RequestChat(context.Background(), "alice", "ghost", "ping")
	assert.ErrorIs(t, err, domain.ErrRecipientUnavailable)
}

func TestResponder_CancelledContextAbortsCannedDelay(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	r := NewResponder(directoryWith(busyUser("bob")), dead.URL, 20*time.Millisecond, 5*time.Second, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.RequestChat(ctx, "alice", "bob", "ping")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
