package notify

import (
	"context"
	"sync"
)

// Queue holds pending notifications per user. Enqueue past capacity evicts
// the oldest entry; Drain returns everything in FIFO order and empties the
// queue in one step.
type Queue interface {
	Enqueue(ctx context.Context, userID int64, n Notification) error
	Drain(ctx context.Context, userID int64) ([]Notification, error)
}

const stripes = 16

// Memory is an in-process Queue.
type Memory struct {
	capacity int
	stripes  [stripes]struct {
		mu     sync.Mutex
		queues map[int64][]Notification
	}
}

// NewMemory creates a queue bounded to capacity entries per user.
// Non-positive capacity means DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Memory{capacity: capacity}
	for i := range m.stripes {
		m.stripes[i].queues = make(map[int64][]Notification)
	}
	return m
}

func (m *Memory) stripe(userID int64) int {
	return int(uint64(userID) % stripes)
}

func (m *Memory) Enqueue(_ context.Context, userID int64, n Notification) error {
	s := &m.stripes[m.stripe(userID)]
	s.mu.Lock()
	defer s.mu.Unlock()
	q := append(s.queues[userID], n)
	if over := len(q) - m.capacity; over > 0 {
		q = append(q[:0:0], q[over:]...)
	}
	s.queues[userID] = q
	return nil
}

func (m *Memory) Drain(_ context.Context, userID int64) ([]Notification, error) {
	s := &m.stripes[m.stripe(userID)]
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[userID]
	delete(s.queues, userID)
	return q, nil
}

// Len reports how many notifications userID has pending.
func (m *Memory) Len(userID int64) int {
	s := &m.stripes[m.stripe(userID)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[userID])
}
