package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testOwner() Owner {
	return Owner{Instance: "main", Socket: "/tmp/lifechat.sock"}
}

func TestAcquireRecordsOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances", "main", "LOCK")

	l, err := Acquire(path, testOwner())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = l.Release() }()

	got, err := readOwner(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if got.PID != os.Getpid() || got.Instance != "main" || got.Socket != "/tmp/lifechat.sock" {
		t.Errorf("recorded owner = %+v", got)
	}
	if time.Since(got.Started) > time.Minute {
		t.Errorf("started = %v", got.Started)
	}
	if !got.Started.Equal(l.Owner().Started) {
		t.Errorf("file started %v, lock started %v", got.Started, l.Owner().Started)
	}
}

func TestSecondDaemonIsRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	l1, err := Acquire(path, testOwner())
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(path, Owner{Instance: "main"})
	var held *LockHeldError
	if !errors.As(err, &held) {
		t.Fatalf("second Acquire() = %v, want LockHeldError", err)
	}
	if held.PID != os.Getpid() || held.Socket != "/tmp/lifechat.sock" {
		t.Errorf("holder = %+v", held.Owner)
	}
}

func TestHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	if _, ok := Holder(path); ok {
		t.Fatal("Holder() reported a daemon before Acquire")
	}
	l, err := Acquire(path, testOwner())
	if err != nil {
		t.Fatal(err)
	}
	owner, ok := Holder(path)
	if !ok || owner.PID != os.Getpid() || owner.Instance != "main" {
		t.Errorf("Holder() = %+v, %v", owner, ok)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if _, ok := Holder(path); ok {
		t.Error("Holder() reported a daemon after Release")
	}
}

// TestHolderIgnoresStaleFile covers a daemon that died without removing its
// lock file: the flock is gone, so nobody holds the instance.
func TestHolderIgnoresStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")
	if err := os.WriteFile(path, []byte("pid = 12345\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, ok := Holder(path); ok {
		t.Error("stale lock file reported as held")
	}
	l, err := Acquire(path, testOwner())
	if err != nil {
		t.Fatalf("Acquire over stale file = %v", err)
	}
	_ = l.Release()
}

func TestReleaseNilAndTwice(t *testing.T) {
	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}

	l, err := Acquire(filepath.Join(t.TempDir(), "LOCK"), testOwner())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("first Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}
