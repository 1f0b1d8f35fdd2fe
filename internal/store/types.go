package store

import (
	"time"

	"github.com/matheus3301/lifechat/internal/event"
)

// RoomKind distinguishes 1:1 rooms from group rooms.
type RoomKind string

const (
	RoomDirect RoomKind = "DIRECT"
	RoomGroup  RoomKind = "GROUP"
)

// Room is a chat room.
type Room struct {
	ID        int64
	Kind      RoomKind
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is an active participant of a room.
type Member struct {
	UserID      int64
	Name        string
	UnreadCount int
}

// Message is a persisted chat message.
type Message struct {
	ID          int64
	RoomID      int64
	SenderID    int64
	SenderName  string
	Content     string
	EventType   event.Type
	AIInsight   string
	IsAutoReply bool
	CreatedAt   time.Time
}

// ReplyMode says whether replies to events are sent automatically or only
// suggested.
type ReplyMode string

const (
	ReplyAuto    ReplyMode = "AUTO"
	ReplySuggest ReplyMode = "SUGGEST"
)

// Tone is the user's preferred reply tone.
type Tone string

const (
	TonePolite   Tone = "POLITE"
	ToneFriendly Tone = "FRIENDLY"
	ToneFormal   Tone = "FORMAL"
)

// Settings are a user's reply and notification preferences.
type Settings struct {
	UserID               int64
	ReplyMode            ReplyMode
	AutoReplyThreshold   int
	DefaultTone          Tone
	NotificationsEnabled bool
}

// DefaultSettings is what a user without a settings row gets.
func DefaultSettings(userID int64) Settings {
	return Settings{
		UserID:               userID,
		ReplyMode:            ReplySuggest,
		AutoReplyThreshold:   20,
		DefaultTone:          TonePolite,
		NotificationsEnabled: true,
	}
}
