package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/matheus3301/lifechat/internal/bus"
	"github.com/matheus3301/lifechat/internal/dispatch"
	"github.com/matheus3301/lifechat/internal/notify"
	"github.com/matheus3301/lifechat/internal/presence"
	"github.com/matheus3301/lifechat/internal/store"
)

// stubStream is a server stream whose first limit sends succeed. A negative
// limit makes every send block until the stream context ends.
type stubStream struct {
	grpc.ServerStream
	ctx   context.Context
	limit int
	sent  []*Delivery
}

func (s *stubStream) Context() context.Context { return s.ctx }

func (s *stubStream) Send(d *Delivery) error {
	if s.limit < 0 {
		<-s.ctx.Done()
		return s.ctx.Err()
	}
	if len(s.sent) >= s.limit {
		return errors.New("connection reset")
	}
	s.sent = append(s.sent, d)
	return nil
}

type presenceFixture struct {
	db       *store.DB
	registry *presence.Memory
	queue    *notify.Memory
	pipe     *dispatch.Pipeline
	svc      *PresenceService

	room       int64
	alice, bob int64
}

func newPresenceFixture(t *testing.T) *presenceFixture {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &presenceFixture{db: db, registry: presence.NewMemory(), queue: notify.NewMemory(0)}
	f.alice, _ = db.CreateUser(ctx, "Alice")
	f.bob, _ = db.CreateUser(ctx, "Bob")
	if f.room, err = db.CreateRoom(ctx, store.RoomDirect, "", f.alice, f.bob); err != nil {
		t.Fatal(err)
	}
	eb := bus.New()
	f.pipe = dispatch.New(dispatch.Options{Store: db, Presence: f.registry, Queue: f.queue, Bus: eb})
	f.svc = NewPresenceService(f.registry, f.queue, db, eb, nil)
	return f
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestConnectRequeuesBufferedDeliveries stalls the stream while pushes and a
// focused room message pile up in its buffers. When the client goes away
// they must end up in the queue, not vanish.
func TestConnectRequeuesBufferedDeliveries(t *testing.T) {
	f := newPresenceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	stream := &stubStream{ctx: ctx, limit: -1}

	done := make(chan error, 1)
	go func() { done <- f.svc.Connect(&ConnectRequest{UserID: f.bob, SessionID: "bob-1"}, stream) }()
	waitUntil(t, func() bool { return f.registry.Sessions(f.bob) == 1 })

	for _, title := range []string{"first", "second"} {
		if err := f.pipe.Notify(ctx, f.bob, notify.Notification{Kind: notify.KindSystem, Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.registry.SetFocus(ctx, "bob-1", f.room); err != nil {
		t.Fatal(err)
	}
	if _, err := f.pipe.Submit(ctx, dispatch.SubmitRequest{RoomID: f.room, SenderID: f.alice, Content: "보고 있어?"}); err != nil {
		t.Fatal(err)
	}
	if n := f.queue.Len(f.bob); n != 0 {
		t.Fatalf("queued before disconnect = %d, want 0", n)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return")
	}

	pending, _ := f.queue.Drain(context.Background(), f.bob)
	if len(pending) != 3 {
		t.Fatalf("requeued = %+v, want 3", pending)
	}
	if pending[0].Title != "first" || pending[1].Title != "second" || pending[2].Body != "보고 있어?" {
		t.Errorf("requeued = %+v", pending)
	}
}

// TestConnectRequeuesRestOfBacklog breaks the stream halfway through the
// queued backlog. The notification that failed and the ones after it stay
// queued.
func TestConnectRequeuesRestOfBacklog(t *testing.T) {
	f := newPresenceFixture(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_ = f.queue.Enqueue(ctx, f.bob, notify.Notification{Kind: notify.KindSystem, Title: title})
	}

	// Session frame and "a" go out, "b" fails.
	stream := &stubStream{ctx: ctx, limit: 2}
	if err := f.svc.Connect(&ConnectRequest{UserID: f.bob, SessionID: "bob-1"}, stream); err == nil {
		t.Fatal("Connect should report the send failure")
	}

	pending, _ := f.queue.Drain(ctx, f.bob)
	if len(pending) != 2 || pending[0].Title != "b" || pending[1].Title != "c" {
		t.Errorf("requeued = %+v, want b and c", pending)
	}
	if f.registry.Sessions(f.bob) != 0 {
		t.Error("session still registered")
	}
}
