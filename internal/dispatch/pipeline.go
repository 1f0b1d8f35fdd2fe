// Package dispatch turns a submitted chat message into a stored, classified,
// delivered message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheus3301/lifechat/internal/bus"
	"github.com/matheus3301/lifechat/internal/event"
	"github.com/matheus3301/lifechat/internal/intimacy"
	"github.com/matheus3301/lifechat/internal/notify"
	"github.com/matheus3301/lifechat/internal/presence"
	"github.com/matheus3301/lifechat/internal/status"
	"github.com/matheus3301/lifechat/internal/store"
)

// Store is the persistence the pipeline depends on.
type Store interface {
	IsActiveMember(ctx context.Context, roomID, userID int64) (bool, error)
	ActiveMembers(ctx context.Context, roomID int64) ([]store.Member, error)
	// PersistMessage stores the message and increments unread counters of
	// the other active members.
	PersistMessage(ctx context.Context, m *store.Message) error
	Intimacy(ctx context.Context, userID, friendID int64) (intimacy.State, bool, error)
	AdjustIntimacy(ctx context.Context, userID, friendID int64, delta int) (intimacy.State, bool, error)
	NotificationsEnabled(ctx context.Context, userID int64) (bool, error)
}

// Broadcaster publishes to topic subscribers and reports how many took it.
type Broadcaster interface {
	Publish(topic string, payload any) int
}

// WeddingTrigger is published on bus.WeddingDetected when a wedding
// announcement in a direct room should be answered automatically.
type WeddingTrigger struct {
	Message     store.Message
	RecipientID int64
}

// SubmitRequest is one message sent by a user.
type SubmitRequest struct {
	RoomID      int64
	SenderID    int64
	Content     string
	IsAutoReply bool
}

// Receipt describes an accepted submission.
type Receipt struct {
	Message *store.Message
	Stages  []status.Stage
}

const roomLockStripes = 64

// DefaultIntimacyDelta is added to both directions of a direct-room
// friendship per message.
const DefaultIntimacyDelta = 1

// Pipeline validates, classifies, persists and fans out messages. Messages
// of one room are persisted and fanned out under the same lock, so every
// subscriber sees them in persistence order.
type Pipeline struct {
	store      Store
	classifier event.Classifier
	presence   presence.Registry
	queue      notify.Queue
	bus        Broadcaster
	delta      int
	logger     *zap.Logger
	tracer     trace.Tracer

	rooms [roomLockStripes]sync.Mutex
}

// Options configures a Pipeline.
type Options struct {
	Store         Store
	Classifier    event.Classifier
	Presence      presence.Registry
	Queue         notify.Queue
	Bus           Broadcaster
	IntimacyDelta int
	Logger        *zap.Logger
}

// New creates a pipeline. A nil classifier means the keyword classifier.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Classifier == nil {
		opts.Classifier = event.NewPatternClassifier()
	}
	if opts.IntimacyDelta == 0 {
		opts.IntimacyDelta = DefaultIntimacyDelta
	}
	return &Pipeline{
		store:      opts.Store,
		classifier: opts.Classifier,
		presence:   opts.Presence,
		queue:      opts.Queue,
		bus:        opts.Bus,
		delta:      opts.IntimacyDelta,
		logger:     opts.Logger,
		tracer:     otel.Tracer("github.com/matheus3301/lifechat/internal/dispatch"),
	}
}

func (p *Pipeline) roomLock(roomID int64) *sync.Mutex {
	return &p.rooms[uint64(roomID)%roomLockStripes]
}

// Submit runs a message through the pipeline. The returned error is always
// a *RejectionError.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) (*Receipt, error) {
	ctx, span := p.tracer.Start(ctx, "dispatch.Submit", trace.WithAttributes(
		attribute.Int64("room_id", req.RoomID),
		attribute.Int64("sender_id", req.SenderID),
	))
	defer span.End()

	m := status.NewMachine()
	reject := func(reason, cause error) (*Receipt, error) {
		reached := m.Current()
		_ = m.Transition(status.Rejected)
		rerr := &RejectionError{RoomID: req.RoomID, SenderID: req.SenderID, Reason: reason, Err: cause}
		span.SetStatus(codes.Error, rerr.Error())
		p.logger.Info("message rejected",
			zap.Int64("room_id", req.RoomID),
			zap.Int64("sender_id", req.SenderID),
			zap.String("stage", string(reached)),
			zap.Error(rerr))
		return nil, rerr
	}

	if strings.TrimSpace(req.Content) == "" {
		return reject(ErrEmptyContent, nil)
	}
	member, err := p.store.IsActiveMember(ctx, req.RoomID, req.SenderID)
	if err != nil {
		return reject(ErrStore, err)
	}
	if !member {
		return reject(ErrNotMember, nil)
	}
	_ = m.Transition(status.Validated)

	lock := p.roomLock(req.RoomID)
	lock.Lock()
	defer lock.Unlock()

	members, err := p.store.ActiveMembers(ctx, req.RoomID)
	if err != nil {
		return reject(ErrStore, err)
	}
	recipient, direct := directPeer(members, req.SenderID)

	eventType := event.Classify(p.classifier, req.Content, req.IsAutoReply)
	msg := &store.Message{
		RoomID:      req.RoomID,
		SenderID:    req.SenderID,
		SenderName:  memberName(members, req.SenderID),
		Content:     req.Content,
		EventType:   eventType,
		IsAutoReply: req.IsAutoReply,
	}
	if eventType.Detected() {
		score := -1
		if direct {
			score = p.intimacyToward(ctx, req.SenderID, recipient)
		}
		msg.AIInsight = event.Insight(eventType, score)
	}
	span.SetAttributes(attribute.String("event_type", eventType.String()))
	_ = m.Transition(status.Classified)

	if err := p.store.PersistMessage(ctx, msg); err != nil {
		return reject(ErrStore, err)
	}
	_ = m.Transition(status.Persisted)

	if direct {
		p.bumpIntimacy(ctx, req.SenderID, recipient)
	}

	if err := p.fanOut(ctx, msg, members); err != nil {
		return reject(ErrDelivery, err)
	}
	_ = m.Transition(status.FannedOut)

	if eventType == event.Wedding && direct && !req.IsAutoReply {
		p.bus.Publish(bus.WeddingDetected, WeddingTrigger{Message: *msg, RecipientID: recipient})
		_ = m.Transition(status.AutoReplyTriggered)
	}
	_ = m.Transition(status.Done)

	p.logger.Debug("message dispatched",
		zap.Int64("room_id", msg.RoomID),
		zap.Int64("message_id", msg.ID),
		zap.String("event_type", eventType.String()))
	return &Receipt{Message: msg, Stages: m.History()}, nil
}

// Post stores and fans out a message that skips validation and
// classification, such as an automated reply. The caller sets every field
// except ID and CreatedAt.
func (p *Pipeline) Post(ctx context.Context, msg *store.Message) error {
	lock := p.roomLock(msg.RoomID)
	lock.Lock()
	defer lock.Unlock()

	members, err := p.store.ActiveMembers(ctx, msg.RoomID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	if msg.SenderName == "" {
		msg.SenderName = memberName(members, msg.SenderID)
	}
	if err := p.store.PersistMessage(ctx, msg); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return p.fanOut(ctx, msg, members)
}

// fanOut broadcasts msg to the room, hands it to every session viewing the
// room and notifies the other active members who saw it on no session. The
// caller holds the room lock.
func (p *Pipeline) fanOut(ctx context.Context, msg *store.Message, members []store.Member) error {
	ctx, span := p.tracer.Start(ctx, "dispatch.FanOut", trace.WithAttributes(
		attribute.Int64("room_id", msg.RoomID),
		attribute.Int64("message_id", msg.ID),
	))
	defer span.End()

	p.bus.Publish(bus.RoomTopic(msg.RoomID), *msg)

	var errs []error
	for _, mem := range members {
		if mem.UserID == msg.SenderID {
			continue
		}
		viewers, err := p.presence.Viewers(ctx, mem.UserID, msg.RoomID)
		if err != nil {
			p.logger.Warn("presence lookup failed, notifying", zap.Int64("user_id", mem.UserID), zap.Error(err))
		}
		if p.showLive(viewers, msg) {
			continue
		}
		n := notify.ForMessage(msg.RoomID, msg.SenderName, msg.Content, msg.EventType)
		if err := p.Notify(ctx, mem.UserID, n); err != nil {
			errs = append(errs, fmt.Errorf("notify user %d: %w", mem.UserID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// showLive publishes msg to each viewing session and reports whether any of
// them took it. A viewer whose stream is backed up gets a notification instead.
func (p *Pipeline) showLive(sessions []string, msg *store.Message) bool {
	shown := false
	for _, sid := range sessions {
		if p.bus.Publish(bus.SessionTopic(sid), *msg) > 0 {
			shown = true
		}
	}
	return shown
}

// Notify pushes n to the user's live sessions, or queues it when none is
// connected or none accepted the push. Users who turned notifications off
// get nothing.
func (p *Pipeline) Notify(ctx context.Context, userID int64, n notify.Notification) error {
	enabled, err := p.store.NotificationsEnabled(ctx, userID)
	if err != nil {
		p.logger.Warn("load notification setting", zap.Int64("user_id", userID), zap.Error(err))
		enabled = true
	}
	if !enabled {
		return nil
	}

	online, err := p.presence.IsOnline(ctx, userID)
	if err != nil {
		p.logger.Warn("presence lookup failed, queueing", zap.Int64("user_id", userID), zap.Error(err))
	}
	if online && p.bus.Publish(bus.UserTopic(userID), n) > 0 {
		return nil
	}
	return p.queue.Enqueue(ctx, userID, n)
}

func (p *Pipeline) intimacyToward(ctx context.Context, userID, friendID int64) int {
	st, ok, err := p.store.Intimacy(ctx, userID, friendID)
	if err != nil || !ok {
		return -1
	}
	return st.Score
}

// bumpIntimacy strengthens both directions of a direct friendship. The
// message is already stored, so failures are only logged.
func (p *Pipeline) bumpIntimacy(ctx context.Context, a, b int64) {
	for _, pair := range [][2]int64{{a, b}, {b, a}} {
		if _, _, err := p.store.AdjustIntimacy(ctx, pair[0], pair[1], p.delta); err != nil {
			p.logger.Warn("adjust intimacy",
				zap.Int64("user_id", pair[0]),
				zap.Int64("friend_id", pair[1]),
				zap.Error(err))
		}
	}
}

// directPeer returns the other member when the room has exactly two active
// members, one of them senderID.
func directPeer(members []store.Member, senderID int64) (int64, bool) {
	if len(members) != 2 {
		return 0, false
	}
	switch senderID {
	case members[0].UserID:
		return members[1].UserID, true
	case members[1].UserID:
		return members[0].UserID, true
	}
	return 0, false
}

func memberName(members []store.Member, userID int64) string {
	for _, m := range members {
		if m.UserID == userID {
			return m.Name
		}
	}
	return ""
}
