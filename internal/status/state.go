// Package status tracks the stages a submitted message moves through.
package status

import (
	"fmt"
	"slices"
	"sync"
)

// Stage is one step of message dispatch.
type Stage string

const (
	Received           Stage = "RECEIVED"
	Validated          Stage = "VALIDATED"
	Classified         Stage = "CLASSIFIED"
	Persisted          Stage = "PERSISTED"
	FannedOut          Stage = "FANNED_OUT"
	AutoReplyTriggered Stage = "AUTO_REPLY_TRIGGERED"
	Done               Stage = "DONE"
	Rejected           Stage = "REJECTED"
)

// validTransitions defines the allowed stage order. Rejection is possible
// until the message has been fanned out.
var validTransitions = map[Stage][]Stage{
	Received:           {Validated, Rejected},
	Validated:          {Classified, Rejected},
	Classified:         {Persisted, Rejected},
	Persisted:          {FannedOut, Rejected},
	FannedOut:          {AutoReplyTriggered, Done},
	AutoReplyTriggered: {Done},
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool { return s == Done || s == Rejected }

// Machine records the stages of one submission.
type Machine struct {
	mu      sync.RWMutex
	current Stage
	history []Stage
}

// NewMachine creates a machine in the Received stage.
func NewMachine() *Machine {
	return &Machine{
		current: Received,
		history: []Stage{Received},
	}
}

// Current returns the current stage.
func (m *Machine) Current() Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// History returns every stage visited, in order.
func (m *Machine) History() []Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.history)
}

// Transition moves to the next stage. Returns error if the move is not allowed.
func (m *Machine) Transition(to Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Terminal() {
		return fmt.Errorf("stage %s is final", m.current)
	}
	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	m.current = to
	m.history = append(m.history, to)
	return nil
}
