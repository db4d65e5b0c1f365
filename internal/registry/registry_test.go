package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	id string
}

func (f *fakeHandle) Push(eventType string, payload any) error { return nil }
func (f *fakeHandle) Close() error                             { return nil }

func TestRegistry_RegisterLookup(t *testing.T) {
	r := New()
	h := &fakeHandle{id: "a"}

	prev := r.Register("alice", h)
	assert.Nil(t, prev)

	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, h, got)
	assert.True(t, r.Online("alice"))
	assert.False(t, r.Online("bob"))
}

func TestRegistry_RegisterSupersedes(t *testing.T) {
	r := New()
	first := &fakeHandle{id: "first"}
	second := &fakeHandle{id: "second"}

	r.Register("alice", first)
	prev := r.Register("alice", second)

	assert.Same(t, first, prev, "prior handle is returned, not closed")

	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, got, "lookups observe the newest handle")
	assert.Equal(t, 1, r.Len(), "at most one handle per identity")
}

func TestRegistry_UnregisterStaleHandleNoOps(t *testing.T) {
	r := New()
	first := &fakeHandle{id: "first"}
	second := &fakeHandle{id: "second"}

	r.Register("alice", first)
	r.Register("alice", second)

	// Delayed disconnect from the superseded connection
	removed := r.Unregister("alice", first)
	assert.False(t, removed)

	got, ok := r.Lookup("alice")
	require.True(t, ok, "newer connection must survive a stale disconnect")
	assert.Same(t, second, got)

	removed = r.Unregister("alice", second)
	assert.True(t, removed)
	assert.False(t, r.Online("alice"))
}

func TestRegistry_UnregisterUnknownIdentity(t *testing.T) {
	r := New()
	assert.False(t, r.Unregister("nobody", &fakeHandle{}))
}

func TestRegistry_Snapshot(t *testing.T) {
	r := New()
	r.Register("alice", &fakeHandle{id: "a"})
	r.Register("bob", &fakeHandle{id: "b"})

	snap := r.Snapshot()
	assert.Len(t, snap, 2)

	// Mutating the registry after the snapshot does not affect it
	r.Unregister("alice", mustLookup(t, r, "alice"))
	assert.Len(t, snap, 2)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			identity := fmt.Sprintf("user-%d", n%10)
			h := &fakeHandle{id: fmt.Sprintf("h-%d", n)}
			r.Register(identity, h)
			r.Lookup(identity)
			r.Snapshot()
			r.Unregister(identity, h)
		}(i)
	}
	wg.Wait()

	// Every goroutine either removed its own handle or was superseded
	assert.LessOrEqual(t, r.Len(), 10)
}

func mustLookup(t *testing.T, r *Registry, identity string) Handle {
	t.Helper()
	h, ok := r.Lookup(identity)
	require.True(t, ok)
	return h
}
