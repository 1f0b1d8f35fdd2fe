package api

import (
	"github.com/matheus3301/lifechat/internal/analysis"
	"github.com/matheus3301/lifechat/internal/notify"
	"github.com/matheus3301/lifechat/internal/store"
)

// Message is a stored chat message as seen by clients.
type Message struct {
	ID              int64  `json:"id"`
	RoomID          int64  `json:"room_id"`
	SenderID        int64  `json:"sender_id"`
	SenderName      string `json:"sender_name"`
	Content         string `json:"content"`
	EventType       string `json:"event_type"`
	AIInsight       string `json:"ai_insight,omitempty"`
	IsAutoReply     bool   `json:"is_auto_reply"`
	CreatedAtUnixMs int64  `json:"created_at_unix_ms"`
}

func messageToWire(m *store.Message) *Message {
	return &Message{
		ID:              m.ID,
		RoomID:          m.RoomID,
		SenderID:        m.SenderID,
		SenderName:      m.SenderName,
		Content:         m.Content,
		EventType:       m.EventType.String(),
		AIInsight:       m.AIInsight,
		IsAutoReply:     m.IsAutoReply,
		CreatedAtUnixMs: m.CreatedAt.UnixMilli(),
	}
}

type SubmitMessageRequest struct {
	RoomID      int64  `json:"room_id"`
	SenderID    int64  `json:"sender_id"`
	Content     string `json:"content"`
	IsAutoReply bool   `json:"is_auto_reply"`
}

type SubmitMessageResponse struct {
	Message *Message `json:"message"`
	Stages  []string `json:"stages"`
}

type GenerateRepliesRequest struct {
	RoomID    int64  `json:"room_id"`
	UserID    int64  `json:"user_id"`
	FriendID  int64  `json:"friend_id"`
	EventType string `json:"event_type"`
}

type Reply struct {
	Tone        string `json:"tone"`
	Label       string `json:"label"`
	Message     string `json:"message"`
	Explanation string `json:"explanation"`
}

type GenerateRepliesResponse struct {
	Replies          []Reply `json:"replies"`
	RecommendedIndex int     `json:"recommended_index"`
	Insight          string  `json:"insight"`
	Fallback         bool    `json:"fallback"`
}

func replySetToWire(set analysis.ReplySet) *GenerateRepliesResponse {
	resp := &GenerateRepliesResponse{
		RecommendedIndex: set.RecommendedIndex,
		Insight:          set.Insight,
		Fallback:         set.Fallback,
	}
	for _, r := range set.Replies {
		resp.Replies = append(resp.Replies, Reply{
			Tone:        r.Tone.String(),
			Label:       r.Tone.Label(),
			Message:     r.Message,
			Explanation: r.Explanation,
		})
	}
	return resp
}

// SuggestAutoReplyRequest asks whether userID's settings allow answering
// friendID automatically, and with what.
type SuggestAutoReplyRequest struct {
	RoomID    int64  `json:"room_id"`
	UserID    int64  `json:"user_id"`
	FriendID  int64  `json:"friend_id"`
	EventType string `json:"event_type"`
}

type SuggestAutoReplyResponse struct {
	ShouldReply bool   `json:"should_reply"`
	Message     string `json:"message,omitempty"`
	Reason      string `json:"reason"`
}

type AnalyzeRelationshipRequest struct {
	RoomID   int64 `json:"room_id"`
	UserID   int64 `json:"user_id"`
	FriendID int64 `json:"friend_id"`
}

type AnalyzeRelationshipResponse struct {
	Relationship analysis.Relationship `json:"relationship"`
}

// ConnectRequest opens a live session. An empty SessionID is assigned by
// the server and reported in the first delivery.
type ConnectRequest struct {
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`
}

// Delivery kinds sent on a Connect stream.
const (
	DeliverySession      = "session"
	DeliveryNotification = "notification"
	DeliveryMessage      = "message"
)

// Delivery is one frame of a Connect stream. Exactly one of SessionID,
// Notification and Message is set, according to Kind.
type Delivery struct {
	Kind         string               `json:"kind"`
	SessionID    string               `json:"session_id,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
	Message      *Message             `json:"message,omitempty"`
}

type SetFocusRequest struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
	RoomID    int64  `json:"room_id"`
}

type SetFocusResponse struct {
	RoomID int64 `json:"room_id"`
}

type ClearFocusRequest struct {
	SessionID string `json:"session_id"`
}

type ClearFocusResponse struct{}
