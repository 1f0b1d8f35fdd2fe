package bus

import (
	"time"

	"github.com/google/uuid"
)

// Event is a payload published on a topic.
type Event struct {
	ID        string
	Topic     string
	Timestamp time.Time
	Payload   any
}

// NewEvent stamps a payload with a fresh id and the current time.
func NewEvent(topic string, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}
