package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/matheus3301/lifechat/internal/event"
	"github.com/matheus3301/lifechat/internal/intimacy"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedDirect creates two users and a direct room between them.
func seedDirect(t *testing.T, db *DB) (roomID, alice, bob int64) {
	t.Helper()
	ctx := context.Background()
	var err error
	if alice, err = db.CreateUser(ctx, "Alice"); err != nil {
		t.Fatal(err)
	}
	if bob, err = db.CreateUser(ctx, "Bob"); err != nil {
		t.Fatal(err)
	}
	if roomID, err = db.CreateRoom(ctx, RoomDirect, "", alice, bob); err != nil {
		t.Fatal(err)
	}
	return roomID, alice, bob
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.From != SchemaVersion || result.Version != SchemaVersion {
		t.Errorf("result = %+v, want version %d", result, SchemaVersion)
	}
}

func TestMigrateFreshDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed || result.From != 0 || result.Version != SchemaVersion {
		t.Errorf("result = %+v", result)
	}
}

func TestMigrateRefusesNewerSchema(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`UPDATE schema_migrations SET version = ?`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("Migrate() = %v, want ErrSchemaTooNew", err)
	}
}

func TestMigrateRefusesDirtySchema(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err == nil {
		t.Error("Migrate() on a dirty schema should fail")
	}
}

func TestMembership(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	roomID, alice, bob := seedDirect(t, db)

	ok, err := db.IsActiveMember(ctx, roomID, alice)
	if err != nil || !ok {
		t.Fatalf("IsActiveMember(alice) = %v, %v", ok, err)
	}

	members, err := db.ActiveMembers(ctx, roomID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0].Name != "Alice" || members[1].Name != "Bob" {
		t.Fatalf("members = %+v", members)
	}

	if err := db.LeaveRoom(ctx, roomID, bob); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.IsActiveMember(ctx, roomID, bob); ok {
		t.Error("bob should no longer be active")
	}
	members, _ = db.ActiveMembers(ctx, roomID)
	if len(members) != 1 {
		t.Errorf("active members = %d, want 1", len(members))
	}

	if err := db.AddMember(ctx, roomID, bob); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.IsActiveMember(ctx, roomID, bob); !ok {
		t.Error("bob should be active after rejoining")
	}
}

func TestPersistMessageUpdatesUnread(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	roomID, alice, bob := seedDirect(t, db)

	m := &Message{RoomID: roomID, SenderID: alice, Content: "나 결혼해", EventType: event.Wedding, AIInsight: "x"}
	if err := db.PersistMessage(ctx, m); err != nil {
		t.Fatal(err)
	}
	if m.ID == 0 || m.CreatedAt.IsZero() {
		t.Fatalf("message not stamped: %+v", m)
	}

	if n, _ := db.UnreadCount(ctx, roomID, bob); n != 1 {
		t.Errorf("bob unread = %d, want 1", n)
	}
	if n, _ := db.UnreadCount(ctx, roomID, alice); n != 0 {
		t.Errorf("alice unread = %d, want 0", n)
	}

	got, err := db.GetMessage(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.EventType != event.Wedding || got.SenderName != "Alice" || got.IsAutoReply {
		t.Errorf("stored message = %+v", got)
	}

	if err := db.MarkRead(ctx, roomID, bob); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.UnreadCount(ctx, roomID, bob); n != 0 {
		t.Errorf("bob unread after MarkRead = %d, want 0", n)
	}
}

func TestPersistMessageSkipsMembersWhoLeft(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	roomID, alice, bob := seedDirect(t, db)
	_ = db.LeaveRoom(ctx, roomID, bob)

	if err := db.PersistMessage(ctx, &Message{RoomID: roomID, SenderID: alice, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.UnreadCount(ctx, roomID, bob); n != 0 {
		t.Errorf("unread for departed member = %d, want 0", n)
	}
}

func TestRecentHistoryOrder(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	roomID, alice, bob := seedDirect(t, db)

	for i := range 5 {
		sender := alice
		if i%2 == 1 {
			sender = bob
		}
		if err := db.PersistMessage(ctx, &Message{RoomID: roomID, SenderID: sender, Content: fmt.Sprint(i)}); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.RecentHistory(ctx, roomID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"2", "3", "4"} {
		if msgs[i].Content != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i].Content, want)
		}
	}

	own, err := db.MessagesBySender(ctx, alice, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != 3 || own[0].Content != "4" {
		t.Errorf("alice messages = %+v, want newest first", own)
	}
}

func TestMessagesBySenderSkipsAutoReplies(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	roomID, alice, _ := seedDirect(t, db)

	_ = db.PersistMessage(ctx, &Message{RoomID: roomID, SenderID: alice, Content: "mine"})
	_ = db.PersistMessage(ctx, &Message{RoomID: roomID, SenderID: alice, Content: "bot", IsAutoReply: true})

	own, _ := db.MessagesBySender(ctx, alice, 10)
	if len(own) != 1 || own[0].Content != "mine" {
		t.Errorf("messages = %+v, want only the hand-written one", own)
	}
}

func TestSettingsDefaultsAndSave(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	_, alice, _ := seedDirect(t, db)

	s, err := db.Settings(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if s != DefaultSettings(alice) {
		t.Errorf("settings = %+v, want defaults", s)
	}

	s.ReplyMode = ReplyAuto
	s.AutoReplyThreshold = 40
	s.NotificationsEnabled = false
	if err := db.SaveSettings(ctx, s); err != nil {
		t.Fatal(err)
	}
	if mode, _ := db.ReplyMode(ctx, alice); mode != ReplyAuto {
		t.Errorf("reply mode = %s, want AUTO", mode)
	}
	if on, _ := db.NotificationsEnabled(ctx, alice); on {
		t.Error("notifications should be disabled")
	}
}

func TestAdjustIntimacy(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	_, alice, bob := seedDirect(t, db)

	if err := db.SetIntimacy(ctx, alice, bob, intimacy.Default); err != nil {
		t.Fatal(err)
	}
	st, ok, err := db.AdjustIntimacy(ctx, alice, bob, 1)
	if err != nil || !ok {
		t.Fatalf("AdjustIntimacy = %v, %v", ok, err)
	}
	if st.Score != intimacy.Default+1 || st.Trend != intimacy.Up {
		t.Errorf("state = %+v", st)
	}

	if err := db.SetIntimacy(ctx, alice, bob, 99); err != nil {
		t.Fatal(err)
	}
	st, _, _ = db.AdjustIntimacy(ctx, alice, bob, 5)
	if st.Score != 100 || st.Badge != intimacy.Bestie {
		t.Errorf("state after clamp = %+v", st)
	}

	// The reverse direction is independent.
	if _, ok, _ := db.Intimacy(ctx, bob, alice); ok {
		t.Error("bob->alice should not exist")
	}
}

func TestAdjustIntimacyWithoutFriendship(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	_, alice, bob := seedDirect(t, db)

	_, ok, err := db.AdjustIntimacy(ctx, alice, bob, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("adjust reported a friendship that does not exist")
	}
	if _, exists, _ := db.Intimacy(ctx, alice, bob); exists {
		t.Error("adjust created a friendship")
	}
}

// TestAdjustIntimacyConcurrent runs read-modify-write updates from many
// goroutines. Regression: deferred transactions upgraded to writers and
// failed with SQLITE_BUSY instead of waiting.
func TestAdjustIntimacyConcurrent(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	_, alice, bob := seedDirect(t, db)
	_ = db.SetIntimacy(ctx, alice, bob, 0)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := db.AdjustIntimacy(ctx, alice, bob, 1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	st, _, _ := db.Intimacy(ctx, alice, bob)
	if st.Score != 20 {
		t.Errorf("score = %d, want 20", st.Score)
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	if _, err := db.GetMessage(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMessage(42) = %v, want ErrNotFound", err)
	}
	if _, err := db.GetRoom(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoom(42) = %v, want ErrNotFound", err)
	}
	if _, err := db.DisplayName(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("DisplayName(42) = %v, want ErrNotFound", err)
	}
}
