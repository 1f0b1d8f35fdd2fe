package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestRegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	for range 3 {
		if err := r.Register(ctx, 1, "s1"); err != nil {
			t.Fatal(err)
		}
	}
	if n := r.Sessions(1); n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
	online, _ := r.IsOnline(ctx, 1)
	if !online {
		t.Error("user should be online")
	}
}

// TestRegisterKeepsFocus verifies that re-registering a session (a
// reconnect handshake racing a subscribe) does not wipe its focus.
func TestRegisterKeepsFocus(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	_ = r.Register(ctx, 1, "s1")
	_ = r.SetFocus(ctx, "s1", 10)
	_ = r.Register(ctx, 1, "s1")
	if viewing, _ := r.IsViewing(ctx, 1, 10); !viewing {
		t.Error("focus lost after duplicate register")
	}
}

func TestUnregisterLastSessionGoesOffline(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	_ = r.Register(ctx, 1, "s1")
	_ = r.Register(ctx, 1, "s2")

	_ = r.Unregister(ctx, 1, "s1")
	if online, _ := r.IsOnline(ctx, 1); !online {
		t.Error("user should still be online with s2")
	}
	_ = r.Unregister(ctx, 1, "s2")
	if online, _ := r.IsOnline(ctx, 1); online {
		t.Error("user should be offline after last session")
	}
	// Unknown session is a no-op.
	if err := r.Unregister(ctx, 1, "s3"); err != nil {
		t.Errorf("Unregister(unknown) = %v", err)
	}
}

func TestFocusLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	_ = r.Register(ctx, 1, "s1")
	_ = r.Register(ctx, 1, "s2")

	if err := r.SetFocus(ctx, "s1", 10); err != nil {
		t.Fatal(err)
	}
	if viewing, _ := r.IsViewing(ctx, 1, 10); !viewing {
		t.Error("user should be viewing room 10")
	}
	if viewing, _ := r.IsViewing(ctx, 1, 11); viewing {
		t.Error("user should not be viewing room 11")
	}
	if room, ok, _ := r.Focus(ctx, "s1"); !ok || room != 10 {
		t.Errorf("Focus(s1) = %d,%v want 10,true", room, ok)
	}
	if _, ok, _ := r.Focus(ctx, "s2"); ok {
		t.Error("s2 should have no focus")
	}
	if ids, _ := r.Viewers(ctx, 1, 10); len(ids) != 1 || ids[0] != "s1" {
		t.Errorf("Viewers(1, 10) = %v, want [s1]", ids)
	}

	// Moving focus replaces the previous room.
	_ = r.SetFocus(ctx, "s1", 11)
	if viewing, _ := r.IsViewing(ctx, 1, 10); viewing {
		t.Error("user should no longer be viewing room 10")
	}

	_ = r.ClearFocus(ctx, "s1")
	if viewing, _ := r.IsViewing(ctx, 1, 11); viewing {
		t.Error("focus should be cleared")
	}
}

func TestUnregisterClearsFocus(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	_ = r.Register(ctx, 1, "s1")
	_ = r.SetFocus(ctx, "s1", 10)
	_ = r.Unregister(ctx, 1, "s1")

	if viewing, _ := r.IsViewing(ctx, 1, 10); viewing {
		t.Error("disconnected session should not be viewing")
	}
	if _, ok, _ := r.Focus(ctx, "s1"); ok {
		t.Error("focus should be gone with the session")
	}
	// Re-registering the same id starts without focus.
	_ = r.Register(ctx, 1, "s1")
	if viewing, _ := r.IsViewing(ctx, 1, 10); viewing {
		t.Error("re-registered session inherited stale focus")
	}
}

func TestSetFocusUnknownSession(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	if err := r.SetFocus(ctx, "ghost", 1); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("SetFocus(ghost) = %v, want ErrUnknownSession", err)
	}
	if err := r.ClearFocus(ctx, "ghost"); err != nil {
		t.Errorf("ClearFocus(ghost) = %v, want nil", err)
	}
}

// TestConcurrentSessions hammers the registry from many goroutines; run with
// -race to catch unsynchronized access.
func TestConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	var wg sync.WaitGroup
	for u := range 16 {
		for s := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				userID := int64(u + 1)
				sid := fmt.Sprintf("u%d-s%d", u, s)
				for i := range 50 {
					_ = r.Register(ctx, userID, sid)
					_ = r.SetFocus(ctx, sid, int64(i%3+1))
					_, _ = r.IsViewing(ctx, userID, 1)
					_ = r.Unregister(ctx, userID, sid)
				}
			}()
		}
	}
	wg.Wait()

	for u := range 16 {
		if online, _ := r.IsOnline(ctx, int64(u+1)); online {
			t.Errorf("user %d still online after all sessions ended", u+1)
		}
	}
}
