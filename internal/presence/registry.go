// Package presence tracks which users have live sessions and which room each
// session is looking at.
package presence

import (
	"context"
	"errors"
)

// ErrUnknownSession is returned when focusing a session that is not registered.
var ErrUnknownSession = errors.New("presence: unknown session")

// Registry is the single authority for sessions and room focus. Operations on
// the same user are linearizable: a Register followed by a SetFocus from the
// same connection is visible to the next IsViewing.
type Registry interface {
	Register(ctx context.Context, userID int64, sessionID string) error
	// Unregister drops the session and its focus. The user goes offline when
	// the last session is gone. Unknown sessions are ignored.
	Unregister(ctx context.Context, userID int64, sessionID string) error
	SetFocus(ctx context.Context, sessionID string, roomID int64) error
	ClearFocus(ctx context.Context, sessionID string) error
	// Focus returns the room a session is viewing, if any.
	Focus(ctx context.Context, sessionID string) (int64, bool, error)
	IsOnline(ctx context.Context, userID int64) (bool, error)
	// IsViewing reports whether any session of userID is focused on roomID.
	IsViewing(ctx context.Context, userID, roomID int64) (bool, error)
	// Viewers returns the sessions of userID focused on roomID.
	Viewers(ctx context.Context, userID, roomID int64) ([]string, error)
}
