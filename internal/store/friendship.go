package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matheus3301/lifechat/internal/intimacy"
)

// Intimacy returns userID's view of the friendship with friendID. ok is
// false when the two have never been connected.
func (db *DB) Intimacy(ctx context.Context, userID, friendID int64) (intimacy.State, bool, error) {
	var s intimacy.State
	err := db.QueryRowContext(ctx, `
		SELECT intimacy_score, trend, badge FROM friendships
		WHERE user_id = ? AND friend_id = ?`, userID, friendID).Scan(&s.Score, &s.Trend, &s.Badge)
	if errors.Is(err, sql.ErrNoRows) {
		return intimacy.State{}, false, nil
	}
	if err != nil {
		return intimacy.State{}, false, err
	}
	return s, true, nil
}

// AdjustIntimacy adds delta to userID's score toward friendID, clamped to
// the valid range. Only existing friendships change: ok is false and
// nothing is written when the two are not friends.
func (db *DB) AdjustIntimacy(ctx context.Context, userID, friendID int64, delta int) (intimacy.State, bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return intimacy.State{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	var cur intimacy.State
	err = tx.QueryRowContext(ctx, `
		SELECT intimacy_score, trend, badge FROM friendships
		WHERE user_id = ? AND friend_id = ?`, userID, friendID).Scan(&cur.Score, &cur.Trend, &cur.Badge)
	if errors.Is(err, sql.ErrNoRows) {
		return intimacy.State{}, false, nil
	}
	if err != nil {
		return intimacy.State{}, false, fmt.Errorf("load friendship: %w", err)
	}

	next := cur.Apply(delta)
	if _, err := tx.ExecContext(ctx, `
		UPDATE friendships SET intimacy_score = ?, trend = ?, badge = ?, last_contact_at = ?
		WHERE user_id = ? AND friend_id = ?`,
		next.Score, next.Trend, next.Badge, nowMillis(), userID, friendID); err != nil {
		return intimacy.State{}, false, fmt.Errorf("save friendship: %w", err)
	}
	return next, true, tx.Commit()
}

// SetIntimacy overwrites the score userID holds toward friendID.
func (db *DB) SetIntimacy(ctx context.Context, userID, friendID int64, score int) error {
	score = intimacy.Clamp(score)
	_, err := db.ExecContext(ctx, `
		INSERT INTO friendships (user_id, friend_id, intimacy_score, trend, badge)
		VALUES (?, ?, ?, 'STABLE', ?)
		ON CONFLICT(user_id, friend_id) DO UPDATE SET
			intimacy_score = excluded.intimacy_score,
			badge = excluded.badge`,
		userID, friendID, score, intimacy.BadgeFor(score))
	return err
}
