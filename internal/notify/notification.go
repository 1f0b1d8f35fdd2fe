// Package notify buffers notifications for users who cannot see a message live.
package notify

import (
	"time"
	"unicode/utf8"

	"github.com/matheus3301/lifechat/internal/event"
)

// Kind classifies a notification.
type Kind string

const (
	KindMessage Kind = "MESSAGE"
	KindEvent   Kind = "EVENT"
	KindSystem  Kind = "SYSTEM"
)

// DefaultCapacity bounds each user's queue.
const DefaultCapacity = 100

const previewLength = 50

// Notification is a pending alert for one user.
type Notification struct {
	Kind      Kind      `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	RoomID    int64     `json:"room_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ForMessage builds the notification for a chat message. Event-tagged
// messages get an EVENT notification titled after the event.
func ForMessage(roomID int64, senderName, content string, eventType event.Type) Notification {
	if eventType.Detected() {
		return Notification{
			Kind:      KindEvent,
			Title:     eventType.Label() + " 소식 감지",
			Body:      senderName + "님이 메시지를 보냈습니다",
			RoomID:    roomID,
			Timestamp: time.Now(),
		}
	}
	return Notification{
		Kind:      KindMessage,
		Title:     senderName,
		Body:      Preview(content),
		RoomID:    roomID,
		Timestamp: time.Now(),
	}
}

// ForAutoReply tells a user that a reply was posted on their behalf.
func ForAutoReply(roomID int64, senderName string) Notification {
	return Notification{
		Kind:      KindSystem,
		Title:     "자동 답장 전송",
		Body:      senderName + "님에게 자동으로 답장했습니다",
		RoomID:    roomID,
		Timestamp: time.Now(),
	}
}

// Preview truncates content to a fixed number of runes.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	return string([]rune(content)[:previewLength]) + "..."
}
