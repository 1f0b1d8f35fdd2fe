// Package lock keeps one lifechatd per instance and records who holds it.
package lock

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
)

// Owner describes the daemon holding an instance lock.
type Owner struct {
	PID      int       `toml:"pid"`
	Instance string    `toml:"instance"`
	Socket   string    `toml:"socket"`
	Started  time.Time `toml:"started"`
}

// LockHeldError is returned when another daemon holds the instance lock.
type LockHeldError struct {
	Owner
	Path string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("instance %q already served by PID %d (%s)", e.Instance, e.PID, e.Path)
}

// Lock is an acquired instance lock.
type Lock struct {
	file  *os.File
	path  string
	owner Owner
}

// Acquire takes an exclusive flock on path and writes owner into it, with
// PID and Started filled in. It returns *LockHeldError when another daemon
// holds the lock.
func Acquire(path string, owner Owner) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create instance dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		held, _ := readOwner(path)
		_ = f.Close()
		return nil, &LockHeldError{Owner: held, Path: path}
	}

	owner.PID = os.Getpid()
	owner.Started = time.Now().UTC().Truncate(time.Second)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(owner); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("encode lock owner: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.WriteAt(buf.Bytes(), 0); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{file: f, path: path, owner: owner}, nil
}

// Owner returns what the lock recorded at acquisition.
func (l *Lock) Owner() Owner { return l.owner }

// Release drops the lock and removes its file. Safe on a nil or released lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// Holder reports the daemon holding the lock at path. ok is false when the
// lock is free, even if a stale file is left behind.
func Holder(path string) (owner Owner, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return Owner{}, false
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err == nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		return Owner{}, false
	}
	owner, _ = readOwner(path)
	return owner, true
}

func readOwner(path string) (Owner, error) {
	var o Owner
	_, err := toml.DecodeFile(path, &o)
	return o, err
}
