package api

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/matheus3301/lifechat/internal/bus"
	"github.com/matheus3301/lifechat/internal/notify"
	"github.com/matheus3301/lifechat/internal/presence"
	"github.com/matheus3301/lifechat/internal/store"
)

// RoomReader is the store access the presence service needs.
type RoomReader interface {
	IsActiveMember(ctx context.Context, roomID, userID int64) (bool, error)
	MarkRead(ctx context.Context, roomID, userID int64) error
	NotificationsEnabled(ctx context.Context, userID int64) (bool, error)
}

const streamBuffer = 64

// PresenceService implements lifechat.v1.PresenceService.
type PresenceService struct {
	registry presence.Registry
	queue    notify.Queue
	rooms    RoomReader
	bus      *bus.Bus
	logger   *zap.Logger
}

// NewPresenceService creates a presence service.
func NewPresenceService(registry presence.Registry, queue notify.Queue, rooms RoomReader, b *bus.Bus, logger *zap.Logger) *PresenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceService{registry: registry, queue: queue, rooms: rooms, bus: b, logger: logger}
}

// Connect registers a live session for the duration of the stream. It first
// delivers the notifications queued while the user was away, then forwards
// live pushes and the messages of whichever room the session focuses.
// Whatever the stream could not send is queued again when it ends.
func (s *PresenceService) Connect(req *ConnectRequest, stream grpc.ServerStreamingServer[Delivery]) error {
	ctx := stream.Context()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := s.logger.With(zap.Int64("user_id", req.UserID), zap.String("session_id", sessionID))

	// Subscribe before registering: once the user is online every push must
	// have a listener, or the sender would count it as delivered to no one
	// and queue it.
	pushes, unsubUser := s.bus.Subscribe(bus.UserTopic(req.UserID), streamBuffer)
	viewed, unsubSession := s.bus.Subscribe(bus.SessionTopic(sessionID), streamBuffer)

	if err := s.registry.Register(ctx, req.UserID, sessionID); err != nil {
		unsubUser()
		unsubSession()
		return toStatus(err)
	}
	var unsent []notify.Notification
	defer func() {
		// Offline first, so new pushes go to the queue, then stop listening
		// and take back whatever is still buffered.
		if err := s.registry.Unregister(context.Background(), req.UserID, sessionID); err != nil {
			log.Warn("unregister session", zap.Error(err))
		}
		unsubUser()
		unsubSession()
		s.requeue(log, req.UserID, unsent, pushes, viewed)
		log.Info("session disconnected")
	}()
	log.Info("session connected")

	if err := stream.Send(&Delivery{Kind: DeliverySession, SessionID: sessionID}); err != nil {
		return err
	}

	pending, err := s.queue.Drain(ctx, req.UserID)
	if err != nil {
		log.Warn("drain notifications", zap.Error(err))
	}
	for i := range pending {
		if err := stream.Send(&Delivery{Kind: DeliveryNotification, Notification: &pending[i]}); err != nil {
			unsent = pending[i:]
			return err
		}
	}

	for {
		select {
		case evt := <-pushes:
			n, ok := evt.Payload.(notify.Notification)
			if !ok {
				continue
			}
			if err := stream.Send(&Delivery{Kind: DeliveryNotification, Notification: &n}); err != nil {
				unsent = append(unsent, n)
				return err
			}
		case evt := <-viewed:
			msg, ok := evt.Payload.(store.Message)
			if !ok {
				continue
			}
			if err := stream.Send(&Delivery{Kind: DeliveryMessage, Message: messageToWire(&msg)}); err != nil {
				s.missed(log, req.UserID, &unsent, msg)
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// requeue moves notifications a closed stream never sent back into the
// user's queue, along with everything left in its subscriptions. The
// subscriptions must already be cancelled.
func (s *PresenceService) requeue(log *zap.Logger, userID int64, unsent []notify.Notification, pushes, viewed <-chan bus.Event) {
	for len(pushes) > 0 {
		if n, ok := (<-pushes).Payload.(notify.Notification); ok {
			unsent = append(unsent, n)
		}
	}
	for len(viewed) > 0 {
		if msg, ok := (<-viewed).Payload.(store.Message); ok {
			s.missed(log, userID, &unsent, msg)
		}
	}
	ctx := context.Background()
	for _, n := range unsent {
		if err := s.queue.Enqueue(ctx, userID, n); err != nil {
			log.Warn("requeue notification", zap.Error(err))
		}
	}
	if len(unsent) > 0 {
		log.Info("requeued undelivered notifications", zap.Int("count", len(unsent)))
	}
}

// missed turns a room message the session failed to show into the
// notification the user would have got without focus.
func (s *PresenceService) missed(log *zap.Logger, userID int64, unsent *[]notify.Notification, msg store.Message) {
	enabled, err := s.rooms.NotificationsEnabled(context.Background(), userID)
	if err != nil {
		log.Warn("load notification setting", zap.Error(err))
		enabled = true
	}
	if enabled {
		*unsent = append(*unsent, notify.ForMessage(msg.RoomID, msg.SenderName, msg.Content, msg.EventType))
	}
}

// SetFocus marks the session as viewing a room and clears the user's unread
// count there.
func (s *PresenceService) SetFocus(ctx context.Context, req *SetFocusRequest) (*SetFocusResponse, error) {
	member, err := s.rooms.IsActiveMember(ctx, req.RoomID, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	if !member {
		return nil, grpcstatus.Errorf(codes.FailedPrecondition, "user %d is not an active member of room %d", req.UserID, req.RoomID)
	}
	if err := s.registry.SetFocus(ctx, req.SessionID, req.RoomID); err != nil {
		return nil, toStatus(err)
	}
	if err := s.rooms.MarkRead(ctx, req.RoomID, req.UserID); err != nil {
		s.logger.Warn("mark room read", zap.Int64("room_id", req.RoomID), zap.Int64("user_id", req.UserID), zap.Error(err))
	}
	return &SetFocusResponse{RoomID: req.RoomID}, nil
}

func (s *PresenceService) ClearFocus(ctx context.Context, req *ClearFocusRequest) (*ClearFocusResponse, error) {
	if err := s.registry.ClearFocus(ctx, req.SessionID); err != nil {
		return nil, toStatus(err)
	}
	return &ClearFocusResponse{}, nil
}
