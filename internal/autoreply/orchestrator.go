// Package autoreply answers wedding announcements on behalf of users who
// turned automatic replies on.
package autoreply

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matheus3301/lifechat/internal/analysis"
	"github.com/matheus3301/lifechat/internal/bus"
	"github.com/matheus3301/lifechat/internal/dispatch"
	"github.com/matheus3301/lifechat/internal/notify"
	"github.com/matheus3301/lifechat/internal/store"
)

// Reasons a run ends without posting.
var (
	ErrNoRecipient       = errors.New("no active recipient")
	ErrAutoReplyDisabled = errors.New("recipient does not reply automatically")
	ErrAnalysisUnusable  = errors.New("wedding analysis could not run")
	ErrAlreadyPending    = errors.New("a reply for this room is already pending")
	ErrQueueFull         = errors.New("auto-reply queue is full")
)

// Store is the state the orchestrator reads.
type Store interface {
	ActiveMembers(ctx context.Context, roomID int64) ([]store.Member, error)
	ReplyMode(ctx context.Context, userID int64) (store.ReplyMode, error)
}

// Decider judges a wedding invitation.
type Decider interface {
	DecideWedding(ctx context.Context, roomID, recipientID, senderID int64) (analysis.WeddingDecision, error)
}

// Poster stores and delivers a message without classifying it, and
// notifies a user.
type Poster interface {
	Post(ctx context.Context, msg *store.Message) error
	Notify(ctx context.Context, userID int64, n notify.Notification) error
}

// postTimeout bounds storing and delivering the reply once decided.
const postTimeout = 5 * time.Second

// Options configures an Orchestrator.
type Options struct {
	Store   Store
	Decider Decider
	Poster  Poster
	Bus     *bus.Bus
	Workers int
	// QueueSize bounds triggers waiting for a worker.
	QueueSize int
	// Timeout bounds the analysis of one trigger.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Orchestrator consumes wedding triggers from the bus and runs them on a
// small worker pool. At most one run per room is queued or in flight; a
// trigger arriving meanwhile is dropped.
type Orchestrator struct {
	store   Store
	decider Decider
	poster  Poster
	bus     *bus.Bus
	workers int
	timeout time.Duration
	logger  *zap.Logger
	tracer  trace.Tracer

	jobs    chan dispatch.WeddingTrigger
	mu      sync.Mutex
	pending map[int64]struct{}

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates an orchestrator. Call Start to begin consuming triggers.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	return &Orchestrator{
		store:   opts.Store,
		decider: opts.Decider,
		poster:  opts.Poster,
		bus:     opts.Bus,
		workers: opts.Workers,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		tracer:  otel.Tracer("github.com/matheus3301/lifechat/internal/autoreply"),
		jobs:    make(chan dispatch.WeddingTrigger, opts.QueueSize),
		pending: make(map[int64]struct{}),
	}
}

// Start subscribes to wedding triggers and launches the workers.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	ch, unsub := o.bus.Subscribe(bus.WeddingDetected, 256)

	o.group, ctx = errgroup.WithContext(ctx)
	o.group.Go(func() error {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				trig, ok := evt.Payload.(dispatch.WeddingTrigger)
				if !ok {
					continue
				}
				if err := o.Enqueue(trig); err != nil {
					o.logger.Info("wedding trigger dropped",
						zap.Int64("room_id", trig.Message.RoomID),
						zap.Int64("message_id", trig.Message.ID),
						zap.Error(err))
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
	for range o.workers {
		o.group.Go(func() error {
			o.work(ctx)
			return nil
		})
	}
}

// Stop cancels in-flight runs and waits for the workers to exit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	if o.group != nil {
		_ = o.group.Wait()
	}
}

// Enqueue schedules a run for trig unless one for the same room is already
// pending.
func (o *Orchestrator) Enqueue(trig dispatch.WeddingTrigger) error {
	room := trig.Message.RoomID
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.pending[room]; busy {
		return ErrAlreadyPending
	}
	select {
	case o.jobs <- trig:
		o.pending[room] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

func (o *Orchestrator) work(ctx context.Context) {
	for {
		select {
		case trig := <-o.jobs:
			reply, err := o.Run(ctx, trig)
			o.mu.Lock()
			delete(o.pending, trig.Message.RoomID)
			o.mu.Unlock()
			o.logOutcome(trig, reply, err)
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) logOutcome(trig dispatch.WeddingTrigger, reply *store.Message, err error) {
	fields := []zap.Field{
		zap.Int64("room_id", trig.Message.RoomID),
		zap.Int64("message_id", trig.Message.ID),
	}
	switch {
	case err == nil:
		o.logger.Info("auto-reply posted", append(fields, zap.Int64("reply_id", reply.ID))...)
	case errors.Is(err, ErrNoRecipient), errors.Is(err, ErrAutoReplyDisabled):
		o.logger.Debug("auto-reply skipped", append(fields, zap.Error(err))...)
	default:
		o.logger.Warn("auto-reply failed", append(fields, zap.Error(err))...)
	}
}

// Run answers one trigger synchronously. It returns the posted reply, or an
// error saying why nothing was posted. A failed analysis still produces the
// default reply; only a missing recipient, a disabled reply mode or a
// storage problem leaves the announcement unanswered.
func (o *Orchestrator) Run(ctx context.Context, trig dispatch.WeddingTrigger) (*store.Message, error) {
	ctx, span := o.tracer.Start(ctx, "autoreply.Run", trace.WithAttributes(
		attribute.Int64("room_id", trig.Message.RoomID),
		attribute.Int64("message_id", trig.Message.ID),
	))
	defer span.End()

	src := trig.Message
	recipient, err := o.recipient(ctx, src.RoomID, src.SenderID)
	if err != nil {
		return nil, err
	}

	mode, err := o.store.ReplyMode(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("load reply mode: %w", err)
	}
	if mode != store.ReplyAuto {
		return nil, ErrAutoReplyDisabled
	}

	decision, err := o.decide(ctx, src, recipient)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisUnusable, err)
	}
	span.SetAttributes(attribute.Bool("fallback", decision.Fallback))

	// Posting gets its own budget so a slow analysis cannot starve it.
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postTimeout)
	defer cancel()

	reply := &store.Message{
		RoomID:      src.RoomID,
		SenderID:    recipient,
		Content:     decision.ReplyMessage,
		AIInsight:   decision.Insight(),
		IsAutoReply: true,
	}
	if err := o.poster.Post(postCtx, reply); err != nil {
		return nil, fmt.Errorf("post auto-reply: %w", err)
	}
	if err := o.poster.Notify(postCtx, recipient, notify.ForAutoReply(src.RoomID, src.SenderName)); err != nil {
		o.logger.Warn("notify auto-reply sender", zap.Int64("user_id", recipient), zap.Error(err))
	}
	return reply, nil
}

func (o *Orchestrator) decide(ctx context.Context, src store.Message, recipient int64) (analysis.WeddingDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.decider.DecideWedding(ctx, src.RoomID, recipient, src.SenderID)
}

// recipient is the active member other than the announcer. Membership is
// re-read because it may have changed since the announcement.
func (o *Orchestrator) recipient(ctx context.Context, roomID, senderID int64) (int64, error) {
	members, err := o.store.ActiveMembers(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("load members: %w", err)
	}
	for _, m := range members {
		if m.UserID != senderID {
			return m.UserID, nil
		}
	}
	return 0, ErrNoRecipient
}
