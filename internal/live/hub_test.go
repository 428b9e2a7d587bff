package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		require.True(t, ok, "channel closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_PublishReachesMatchingSubscriber(t *testing.T) {
	h := NewHub()
	defer h.Close()

	entries := h.Subscribe(func(ev Event) bool { return ev.Collection == "entries" })
	settings := h.Subscribe(func(ev Event) bool { return ev.Collection == "settings" })
	defer entries.Cancel()
	defer settings.Cancel()

	h.Publish(Event{Collection: "entries", ID: "e1"})

	got := recvEvent(t, entries)
	assert.Equal(t, "e1", got.ID)

	select {
	case ev := <-settings.C:
		t.Fatalf("settings subscriber should not receive %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_NilMatcherReceivesEverything(t *testing.T) {
	h := NewHub()
	defer h.Close()

	all := h.Subscribe(nil)
	defer all.Cancel()

	h.Publish(Event{Collection: "entries", ID: "a"})
	assert.Equal(t, "a", recvEvent(t, all).ID)

	h.Publish(Event{Collection: "settings", ID: "b"})
	assert.Equal(t, "b", recvEvent(t, all).ID)
}

func TestHub_SlowSubscriberCoalescesToNewest(t *testing.T) {
	h := NewHub()
	defer h.Close()

	sub := h.Subscribe(nil)
	defer sub.Cancel()

	// nobody draining: buffer holds one event, newest wins
	h.Publish(Event{ID: "old"})
	h.Publish(Event{ID: "mid"})
	h.Publish(Event{ID: "new"})

	assert.Equal(t, "new", recvEvent(t, sub).ID)
}

func TestSubscription_CancelClosesChannelAndStopsDelivery(t *testing.T) {
	h := NewHub()
	defer h.Close()

	sub := h.Subscribe(nil)
	sub.Cancel()
	sub.Cancel() // idempotent

	_, ok := <-sub.C
	assert.False(t, ok, "channel must be closed after cancel")

	// publishing after cancel must not panic
	h.Publish(Event{ID: "x"})
}

func TestHub_CloseCancelsAll(t *testing.T) {
	h := NewHub()
	a := h.Subscribe(nil)
	b := h.Subscribe(nil)

	h.Close()

	_, ok := <-a.C
	assert.False(t, ok)
	_, ok = <-b.C
	assert.False(t, ok)

	// subscribe after close yields a closed subscription
	c := h.Subscribe(nil)
	_, ok = <-c.C
	assert.False(t, ok)

	h.Publish(Event{ID: "x"}) // no-op
	h.Close()                 // idempotent
}
