package dispatch

import (
	"errors"
	"fmt"
)

// Rejection reasons. Match with errors.Is on a *RejectionError.
var (
	ErrEmptyContent = errors.New("message content is empty")
	ErrNotMember    = errors.New("sender is not an active member of the room")
	ErrStore        = errors.New("store failure")
	ErrDelivery     = errors.New("delivery failure")
)

// RejectionError is returned to the sender when a submission does not go
// through.
type RejectionError struct {
	RoomID   int64
	SenderID int64
	Reason   error // one of the Err* sentinels
	Err      error // underlying cause, may be nil
}

func (e *RejectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("message rejected (room %d, sender %d): %v: %v", e.RoomID, e.SenderID, e.Reason, e.Err)
	}
	return fmt.Sprintf("message rejected (room %d, sender %d): %v", e.RoomID, e.SenderID, e.Reason)
}

func (e *RejectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}
