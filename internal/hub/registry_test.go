package hub

import (
	"errors"
	"sync"
	"testing"
)

type fakeChannel struct {
	mu       sync.Mutex
	payloads [][]byte
	failSend bool
	closed   bool
}

func (f *fakeChannel) Send(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return errors.New("send failed")
	}
	f.payloads = append(f.payloads, p)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) deliveries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func TestRegistry_BroadcastIncludesSender(t *testing.T) {
	reg := NewRegistry()
	chans := []*fakeChannel{{}, {}, {}}
	ids := []string{"a", "b", "c"}
	for i, id := range ids {
		reg.Register(id, Session{UserID: uint(i + 1)}, chans[i])
	}

	reg.Broadcast([]byte("hello"))

	for i, ch := range chans {
		if got := ch.deliveries(); got != 1 {
			t.Errorf("connection %s received %d payloads, want 1", ids[i], got)
		}
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", Session{UserID: 1}, &fakeChannel{})

	reg.Unregister("a")
	if reg.Len() != 0 {
		t.Fatalf("Len() after unregister = %d, want 0", reg.Len())
	}

	// Unregistering an absent id must be a no-op, not an error.
	reg.Unregister("a")
	reg.Unregister("never-registered")
	if reg.Len() != 0 {
		t.Errorf("Len() after repeated unregister = %d, want 0", reg.Len())
	}
}

func TestRegistry_SessionLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", Session{UserID: 42}, &fakeChannel{})

	sess, ok := reg.Session("a")
	if !ok || sess.UserID != 42 {
		t.Errorf("Session(a) = %+v, %v, want UserID 42", sess, ok)
	}
	if _, ok := reg.Session("ghost"); ok {
		t.Error("Session(ghost) = true, want false")
	}
}

func TestRegistry_FailedDeliveryKicksOnlyThatConnection(t *testing.T) {
	reg := NewRegistry()
	a, b, c := &fakeChannel{}, &fakeChannel{failSend: true}, &fakeChannel{}
	reg.Register("a", Session{UserID: 1}, a)
	reg.Register("b", Session{UserID: 2}, b)
	reg.Register("c", Session{UserID: 3}, c)

	reg.Broadcast([]byte("x"))

	if a.deliveries() != 1 || c.deliveries() != 1 {
		t.Errorf("healthy connections got %d/%d deliveries, want 1/1", a.deliveries(), c.deliveries())
	}
	if reg.Len() != 2 {
		t.Errorf("Len() after failed delivery = %d, want 2", reg.Len())
	}
	if _, ok := reg.Session("b"); ok {
		t.Error("failed connection still registered after broadcast")
	}
	if !b.closed {
		t.Error("failed connection channel was not closed")
	}

	// The kicked connection receives no further deliveries.
	reg.Broadcast([]byte("y"))
	if b.deliveries() != 0 {
		t.Errorf("kicked connection received %d deliveries, want 0", b.deliveries())
	}
	if a.deliveries() != 2 || c.deliveries() != 2 {
		t.Errorf("healthy connections got %d/%d deliveries, want 2/2", a.deliveries(), c.deliveries())
	}
}

func TestRegistry_NoDeliveryAfterUnregister(t *testing.T) {
	reg := NewRegistry()
	a, b := &fakeChannel{}, &fakeChannel{}
	reg.Register("a", Session{UserID: 1}, a)
	reg.Register("b", Session{UserID: 2}, b)

	reg.Unregister("b")
	reg.Broadcast([]byte("hi"))

	if a.deliveries() != 1 {
		t.Errorf("remaining connection got %d deliveries, want 1", a.deliveries())
	}
	if b.deliveries() != 0 {
		t.Errorf("disconnected connection got %d deliveries, want 0", b.deliveries())
	}
}

func TestRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			reg.Register(id, Session{UserID: uint(n)}, &fakeChannel{})
			reg.Broadcast([]byte("x"))
			reg.Unregister(id)
		}(i)
	}
	wg.Wait()
	if reg.Len() != 0 {
		t.Errorf("Len() after concurrent churn = %d, want 0", reg.Len())
	}
}
