package store

import (
	"context"
	"database/sql"
	"errors"
)

// Settings returns a user's preferences, or the defaults when none are saved.
func (db *DB) Settings(ctx context.Context, userID int64) (Settings, error) {
	s := Settings{UserID: userID}
	err := db.QueryRowContext(ctx, `
		SELECT reply_mode, auto_reply_threshold, default_tone, notifications_enabled
		FROM user_settings WHERE user_id = ?`, userID).
		Scan(&s.ReplyMode, &s.AutoReplyThreshold, &s.DefaultTone, &s.NotificationsEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(userID), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}

// SaveSettings upserts a user's preferences.
func (db *DB) SaveSettings(ctx context.Context, s Settings) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, reply_mode, auto_reply_threshold, default_tone, notifications_enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			reply_mode = excluded.reply_mode,
			auto_reply_threshold = excluded.auto_reply_threshold,
			default_tone = excluded.default_tone,
			notifications_enabled = excluded.notifications_enabled`,
		s.UserID, s.ReplyMode, s.AutoReplyThreshold, s.DefaultTone, s.NotificationsEnabled)
	return err
}

// ReplyMode returns whether userID has automatic replies enabled.
func (db *DB) ReplyMode(ctx context.Context, userID int64) (ReplyMode, error) {
	s, err := db.Settings(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.ReplyMode, nil
}

// NotificationsEnabled reports whether userID wants notifications.
func (db *DB) NotificationsEnabled(ctx context.Context, userID int64) (bool, error) {
	s, err := db.Settings(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.NotificationsEnabled, nil
}
