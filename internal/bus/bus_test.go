package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(RoomTopic(7), 10)
	defer unsub()

	if n := b.Publish(RoomTopic(7), "hello"); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}

	select {
	case evt := <-ch:
		if evt.Topic != "room.7" {
			t.Errorf("topic = %q, want room.7", evt.Topic)
		}
		if evt.ID == "" {
			t.Error("event id is empty")
		}
		if evt.Payload != "hello" {
			t.Errorf("payload = %v, want hello", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(UserPrefix, 10)
	defer unsub()

	if n := b.Publish(RoomTopic(1), nil); n != 0 {
		t.Errorf("room publish delivered = %d, want 0", n)
	}
	b.Publish(UserTopic(3), nil)

	select {
	case evt := <-ch:
		if evt.Topic != "user.3" {
			t.Errorf("topic = %q, want user.3", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestRoomTopicDoesNotMatchLongerID guards against "room.1" subscribers
// receiving "room.12" broadcasts.
func TestRoomTopicDoesNotMatchLongerID(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(RoomTopic(1), 10)
	defer unsub()

	if n := b.Publish(RoomTopic(12), nil); n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("room.", 10)
	unsub()
	unsub()

	if n := b.Publish(RoomTopic(1), nil); n != 0 {
		t.Errorf("delivered = %d after unsubscribe, want 0", n)
	}
	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("user.", 1)
	defer unsub()

	b.Publish(UserTopic(1), "one")
	if n := b.Publish(UserTopic(1), "two"); n != 0 {
		t.Errorf("delivered = %d on full buffer, want 0", n)
	}

	evt := <-ch
	if evt.Payload != "one" {
		t.Errorf("payload = %v, want one", evt.Payload)
	}
}
