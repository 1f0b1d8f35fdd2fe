package bus

import (
	"strconv"
	"strings"
	"sync"
)

// Topic prefixes used across the daemon.
const (
	RoomPrefix      = "room."
	UserPrefix      = "user."
	SessionPrefix   = "session."
	WeddingDetected = "dispatch.wedding_detected"
)

// RoomTopic is the broadcast topic for a chat room.
func RoomTopic(roomID int64) string { return RoomPrefix + strconv.FormatInt(roomID, 10) }

// UserTopic is the direct push topic for every live session of a user.
func UserTopic(userID int64) string { return UserPrefix + strconv.FormatInt(userID, 10) }

// SessionTopic carries the messages of the room a single session is viewing.
func SessionTopic(sessionID string) string { return SessionPrefix + sessionID }

// Bus is an in-process publish/subscribe broadcaster with prefix filtering.
// Delivery is best effort: a full subscriber misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

type subscription struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[int]*subscription),
	}
}

// Publish wraps payload in an Event and delivers it. It returns how many
// subscribers accepted the event.
func (b *Bus) Publish(topic string, payload any) int {
	return b.PublishEvent(NewEvent(topic, payload))
}

// PublishEvent delivers evt to all matching subscribers and returns how many
// accepted it.
func (b *Bus) PublishEvent(evt Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, sub := range b.subs {
		if !sub.matches(evt.Topic) {
			continue
		}
		select {
		case sub.ch <- evt:
			delivered++
		default:
		}
	}
	return delivered
}

// matches treats a pattern ending in "." as a namespace and anything else as
// an exact topic, so "room.1" never receives "room.12".
func (s *subscription) matches(topic string) bool {
	if strings.HasSuffix(s.prefix, ".") {
		return strings.HasPrefix(topic, s.prefix)
	}
	return topic == s.prefix
}

// Subscribe returns a channel receiving events for pattern (a namespace ending
// in "." or an exact topic), plus a function that cancels the subscription.
func (b *Bus) Subscribe(pattern string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{prefix: pattern, ch: ch}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}
