package autoreply

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matheus3301/lifechat/internal/analysis"
	"github.com/matheus3301/lifechat/internal/bus"
	"github.com/matheus3301/lifechat/internal/dispatch"
	"github.com/matheus3301/lifechat/internal/notify"
	"github.com/matheus3301/lifechat/internal/store"
)

type fakeStore struct {
	members []store.Member
	modes   map[int64]store.ReplyMode
}

func (f *fakeStore) ActiveMembers(context.Context, int64) ([]store.Member, error) {
	return f.members, nil
}

func (f *fakeStore) ReplyMode(_ context.Context, userID int64) (store.ReplyMode, error) {
	if m, ok := f.modes[userID]; ok {
		return m, nil
	}
	return store.ReplySuggest, nil
}

type fakeDecider struct {
	decision analysis.WeddingDecision
	err      error
	calls    atomic.Int32
	block    chan struct{} // when set, DecideWedding waits on it
	late     bool          // answer only once the context has expired
}

func (f *fakeDecider) DecideWedding(ctx context.Context, _, _, _ int64) (analysis.WeddingDecision, error) {
	f.calls.Add(1)
	if f.late {
		<-ctx.Done()
		return f.decision, f.err
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return analysis.WeddingDecision{}, ctx.Err()
		}
	}
	return f.decision, f.err
}

type fakePoster struct {
	mu       sync.Mutex
	posted   []store.Message
	notified []int64
	err      error
}

func (f *fakePoster) Post(ctx context.Context, msg *store.Message) error {
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = int64(len(f.posted) + 100)
	f.posted = append(f.posted, *msg)
	return nil
}

func (f *fakePoster) Notify(_ context.Context, userID int64, _ notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, userID)
	return nil
}

func (f *fakePoster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posted)
}

const (
	alice int64 = 1
	bob   int64 = 2
	room  int64 = 10
)

func directRoom() *fakeStore {
	return &fakeStore{
		members: []store.Member{{UserID: alice, Name: "Alice"}, {UserID: bob, Name: "Bob"}},
		modes:   map[int64]store.ReplyMode{bob: store.ReplyAuto},
	}
}

func trigger() dispatch.WeddingTrigger {
	return dispatch.WeddingTrigger{
		Message:     store.Message{ID: 5, RoomID: room, SenderID: alice, SenderName: "Alice", Content: "나 결혼해"},
		RecipientID: bob,
	}
}

func goodDecision() analysis.WeddingDecision {
	return analysis.WeddingDecision{
		IntimacyScore:    72,
		WillAttend:       true,
		AttendanceReason: "자주 연락하는 친구",
		ReplyMessage:     "결혼 축하해! 꼭 갈게",
	}
}

func TestRunPostsAutoReply(t *testing.T) {
	poster := &fakePoster{}
	o := New(Options{Store: directRoom(), Decider: &fakeDecider{decision: goodDecision()}, Poster: poster, Bus: bus.New()})

	reply, err := o.Run(context.Background(), trigger())
	if err != nil {
		t.Fatal(err)
	}
	if reply.SenderID != bob || !reply.IsAutoReply || reply.Content != "결혼 축하해! 꼭 갈게" {
		t.Errorf("reply = %+v", reply)
	}
	if want := "친밀도: 72점 | 참석 예정 | 자주 연락하는 친구"; reply.AIInsight != want {
		t.Errorf("insight = %q, want %q", reply.AIInsight, want)
	}
	if poster.count() != 1 {
		t.Errorf("posted %d, want 1", poster.count())
	}
	if len(poster.notified) != 1 || poster.notified[0] != bob {
		t.Errorf("notified = %v, want [bob]", poster.notified)
	}
}

func TestRunSkipsWhenNotAuto(t *testing.T) {
	st := directRoom()
	st.modes[bob] = store.ReplySuggest
	decider := &fakeDecider{decision: goodDecision()}
	poster := &fakePoster{}
	o := New(Options{Store: st, Decider: decider, Poster: poster, Bus: bus.New()})

	if _, err := o.Run(context.Background(), trigger()); !errors.Is(err, ErrAutoReplyDisabled) {
		t.Fatalf("err = %v, want ErrAutoReplyDisabled", err)
	}
	if decider.calls.Load() != 0 {
		t.Error("analysis should not run when auto-reply is off")
	}
	if poster.count() != 0 {
		t.Error("nothing should be posted")
	}
}

func TestRunWithoutRecipient(t *testing.T) {
	st := directRoom()
	st.members = st.members[:1]
	o := New(Options{Store: st, Decider: &fakeDecider{}, Poster: &fakePoster{}, Bus: bus.New()})

	if _, err := o.Run(context.Background(), trigger()); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("err = %v, want ErrNoRecipient", err)
	}
}

func TestRunPostsNothingOnStoreFailure(t *testing.T) {
	poster := &fakePoster{}
	decider := &fakeDecider{err: errors.New("load history: db closed")}
	o := New(Options{Store: directRoom(), Decider: decider, Poster: poster, Bus: bus.New()})

	if _, err := o.Run(context.Background(), trigger()); !errors.Is(err, ErrAnalysisUnusable) {
		t.Fatalf("err = %v, want ErrAnalysisUnusable", err)
	}
	if poster.count() != 0 {
		t.Error("nothing should be posted")
	}
}

func TestRunPostsDefaultDecision(t *testing.T) {
	poster := &fakePoster{}
	o := New(Options{Store: directRoom(), Decider: &fakeDecider{decision: analysis.DefaultWeddingDecision()}, Poster: poster, Bus: bus.New()})

	reply, err := o.Run(context.Background(), trigger())
	if err != nil {
		t.Fatal(err)
	}
	if reply.Content != "결혼 축하해! 행복하게 잘 살아~" {
		t.Errorf("content = %q", reply.Content)
	}
	if want := "친밀도: 50점 | 불참 예정 | 분석 실패로 인해 기본 응답"; reply.AIInsight != want {
		t.Errorf("insight = %q, want %q", reply.AIInsight, want)
	}
}

// TestRunPostsAfterSlowAnalysis has the decision arrive exactly when the
// analysis budget runs out. Posting must still have time left.
func TestRunPostsAfterSlowAnalysis(t *testing.T) {
	decider := &fakeDecider{decision: goodDecision(), late: true}
	poster := &fakePoster{}
	o := New(Options{Store: directRoom(), Decider: decider, Poster: poster, Bus: bus.New(), Timeout: 20 * time.Millisecond})

	if _, err := o.Run(context.Background(), trigger()); err != nil {
		t.Fatal(err)
	}
	if poster.count() != 1 {
		t.Errorf("posted %d, want 1", poster.count())
	}
}

func TestRunTimesOut(t *testing.T) {
	decider := &fakeDecider{decision: goodDecision(), block: make(chan struct{})}
	poster := &fakePoster{}
	o := New(Options{Store: directRoom(), Decider: decider, Poster: poster, Bus: bus.New(), Timeout: 20 * time.Millisecond})

	if _, err := o.Run(context.Background(), trigger()); err == nil {
		t.Fatal("Run should fail when analysis exceeds the timeout")
	}
	if poster.count() != 0 {
		t.Error("nothing should be posted")
	}
}

func TestEnqueueDeduplicatesPerRoom(t *testing.T) {
	o := New(Options{Store: directRoom(), Decider: &fakeDecider{}, Poster: &fakePoster{}, Bus: bus.New()})

	if err := o.Enqueue(trigger()); err != nil {
		t.Fatal(err)
	}
	second := trigger()
	second.Message.ID = 6
	if err := o.Enqueue(second); !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("second Enqueue = %v, want ErrAlreadyPending", err)
	}
	other := trigger()
	other.Message.RoomID = room + 1
	if err := o.Enqueue(other); err != nil {
		t.Errorf("Enqueue for another room = %v", err)
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	o := New(Options{Store: directRoom(), Decider: &fakeDecider{}, Poster: &fakePoster{}, Bus: bus.New(), QueueSize: 1})
	_ = o.Enqueue(trigger())
	other := trigger()
	other.Message.RoomID = room + 1
	if err := o.Enqueue(other); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue = %v, want ErrQueueFull", err)
	}
}

// TestBurstProducesSingleReply publishes the same announcement several times
// while the first run is still analysing; exactly one reply must be posted.
func TestBurstProducesSingleReply(t *testing.T) {
	b := bus.New()
	decider := &fakeDecider{decision: goodDecision(), block: make(chan struct{})}
	poster := &fakePoster{}
	o := New(Options{Store: directRoom(), Decider: decider, Poster: poster, Bus: b, Workers: 4})
	o.Start(context.Background())
	defer o.Stop()

	for range 5 {
		b.Publish(bus.WeddingDetected, trigger())
	}
	waitFor(t, func() bool { return decider.calls.Load() == 1 })
	// Give the dispatcher time to see (and drop) the duplicates.
	time.Sleep(50 * time.Millisecond)
	close(decider.block)

	waitFor(t, func() bool { return poster.count() == 1 })
	time.Sleep(50 * time.Millisecond)
	if n := poster.count(); n != 1 {
		t.Errorf("posted %d replies, want 1", n)
	}
	if n := decider.calls.Load(); n != 1 {
		t.Errorf("analysis ran %d times, want 1", n)
	}
}

func TestStopWaitsForWorkers(t *testing.T) {
	decider := &fakeDecider{decision: goodDecision(), block: make(chan struct{})}
	o := New(Options{Store: directRoom(), Decider: decider, Poster: &fakePoster{}, Bus: bus.New()})
	o.Start(context.Background())
	_ = o.Enqueue(trigger())
	waitFor(t, func() bool { return decider.calls.Load() == 1 })

	done := make(chan struct{})
	go func() {
		o.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
