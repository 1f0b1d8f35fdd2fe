package presence

import (
	"context"
	"sync"
)

const shardCount = 32

// noRoom marks a registered session without focus.
const noRoom int64 = 0

type shard struct {
	mu    sync.RWMutex
	users map[int64]map[string]int64 // userID -> sessionID -> focused roomID
}

// Memory is an in-process Registry. Users are spread over lock shards and a
// session->owner index lets focus updates find the right shard. No lock is
// held across anything but map access.
type Memory struct {
	shards [shardCount]shard
	owners sync.Map // sessionID -> userID
}

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i].users = make(map[int64]map[string]int64)
	}
	return m
}

func (m *Memory) shardFor(userID int64) *shard {
	h := uint64(userID) * 0x9E3779B97F4A7C15
	return &m.shards[h>>59]
}

func (m *Memory) Register(_ context.Context, userID int64, sessionID string) error {
	s := m.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, ok := s.users[userID]
	if !ok {
		sessions = make(map[string]int64)
		s.users[userID] = sessions
	}
	if _, exists := sessions[sessionID]; !exists {
		sessions[sessionID] = noRoom
	}
	m.owners.Store(sessionID, userID)
	return nil
}

func (m *Memory) Unregister(_ context.Context, userID int64, sessionID string) error {
	s := m.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, ok := s.users[userID]
	if !ok {
		return nil
	}
	if _, exists := sessions[sessionID]; !exists {
		return nil
	}
	delete(sessions, sessionID)
	m.owners.Delete(sessionID)
	if len(sessions) == 0 {
		delete(s.users, userID)
	}
	return nil
}

func (m *Memory) owner(sessionID string) (int64, bool) {
	v, ok := m.owners.Load(sessionID)
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

func (m *Memory) SetFocus(_ context.Context, sessionID string, roomID int64) error {
	return m.setFocus(sessionID, roomID)
}

func (m *Memory) ClearFocus(_ context.Context, sessionID string) error {
	err := m.setFocus(sessionID, noRoom)
	if err == ErrUnknownSession {
		return nil
	}
	return err
}

func (m *Memory) setFocus(sessionID string, roomID int64) error {
	userID, ok := m.owner(sessionID)
	if !ok {
		return ErrUnknownSession
	}
	s := m.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := s.users[userID]
	if _, exists := sessions[sessionID]; !exists {
		// Unregistered between the owner lookup and the lock.
		return ErrUnknownSession
	}
	sessions[sessionID] = roomID
	return nil
}

func (m *Memory) Focus(_ context.Context, sessionID string) (int64, bool, error) {
	userID, ok := m.owner(sessionID)
	if !ok {
		return 0, false, nil
	}
	s := m.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	roomID, exists := s.users[userID][sessionID]
	if !exists || roomID == noRoom {
		return 0, false, nil
	}
	return roomID, true, nil
}

func (m *Memory) IsOnline(_ context.Context, userID int64) (bool, error) {
	s := m.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0, nil
}

func (m *Memory) IsViewing(_ context.Context, userID, roomID int64) (bool, error) {
	if roomID == noRoom {
		return false, nil
	}
	s := m.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, focused := range s.users[userID] {
		if focused == roomID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Viewers(_ context.Context, userID, roomID int64) ([]string, error) {
	if roomID == noRoom {
		return nil, nil
	}
	s := m.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for sid, focused := range s.users[userID] {
		if focused == roomID {
			ids = append(ids, sid)
		}
	}
	return ids, nil
}

// Sessions returns how many live sessions userID has.
func (m *Memory) Sessions(userID int64) int {
	s := m.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID])
}
