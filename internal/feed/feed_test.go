package feed

import (
	"testing"
	"time"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestHub_PublishAndSubscribe(t *testing.T) {
	hub := NewHub(8)

	sub, unsub := hub.Subscribe("uid-1")
	defer unsub()

	if hub.Count("uid-1") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.Count("uid-1"))
	}

	hub.Publish("uid-1", Event{Collection: "accounts", ID: "a1", Op: OpUpdate})

	ev := receive(t, sub)
	if ev.Collection != "accounts" || ev.ID != "a1" || ev.Op != OpUpdate {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.At == 0 {
		t.Error("expected At to be stamped")
	}
}

func TestHub_UsersAreIsolated(t *testing.T) {
	hub := NewHub(8)

	sub1, unsub1 := hub.Subscribe("uid-1")
	sub2, unsub2 := hub.Subscribe("uid-2")
	defer unsub1()
	defer unsub2()

	hub.Publish("uid-2", Event{Collection: "accounts", ID: "b1", Op: OpCreate})

	if ev := receive(t, sub2); ev.ID != "b1" {
		t.Errorf("uid-2 got %+v", ev)
	}
	select {
	case ev := <-sub1.C:
		t.Errorf("uid-1 should not see uid-2 events, got %+v", ev)
	default:
	}
}

func TestHub_CollectionFilter(t *testing.T) {
	hub := NewHub(8)

	sub, unsub := hub.Subscribe("uid-1", "transactions")
	defer unsub()

	hub.Publish("uid-1",
		Event{Collection: "accounts", ID: "a1", Op: OpUpdate},
		Event{Collection: "transactions", ID: "t1", Op: OpCreate},
	)

	if ev := receive(t, sub); ev.Collection != "transactions" || ev.ID != "t1" {
		t.Errorf("unexpected event %+v", ev)
	}
	select {
	case ev := <-sub.C:
		t.Errorf("filtered subscriber got extra event %+v", ev)
	default:
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	hub := NewHub(1)

	sub, unsub := hub.Subscribe("uid-1")
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish("uid-1", Event{Collection: "accounts", ID: "a1", Op: OpUpdate})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(sub.C) != 1 {
		t.Errorf("expected 1 buffered event, got %d", len(sub.C))
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(8)

	sub, unsub := hub.Subscribe("uid-1")
	unsub()
	unsub() // second call is a no-op

	if hub.Count("uid-1") != 0 {
		t.Errorf("expected 0 after unsubscribe, got %d", hub.Count("uid-1"))
	}
	if _, ok := <-sub.C; ok {
		t.Error("expected channel to be closed")
	}

	// publishing with no subscribers must not panic
	hub.Publish("uid-1", Event{Collection: "accounts", ID: "a1", Op: OpUpdate})
}
