package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matheus3301/lifechat/internal/event"
)

// PersistMessage inserts m, bumps the room's activity timestamp and
// increments the unread counter of every other active member, all in one
// transaction. m.ID and m.CreatedAt are filled in.
func (db *DB) PersistMessage(ctx context.Context, m *Message) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (room_id, sender_id, content, event_type, ai_insight, is_auto_reply, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RoomID, m.SenderID, m.Content, m.EventType.String(), m.AIInsight, m.IsAutoReply, now)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE chat_rooms SET updated_at = ? WHERE id = ?`, now, m.RoomID); err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_room_members SET unread_count = unread_count + 1
		WHERE room_id = ? AND user_id != ? AND left_at IS NULL`, m.RoomID, m.SenderID); err != nil {
		return fmt.Errorf("increment unread: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	m.ID = id
	m.CreatedAt = fromMillis(now)
	return nil
}

const messageColumns = `m.id, m.room_id, m.sender_id, u.name, m.content, m.event_type, m.ai_insight, m.is_auto_reply, m.created_at`

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer func() { _ = rows.Close() }()
	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*Message, error) {
	var m Message
	var eventType string
	var created int64
	if err := s.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Content, &eventType, &m.AIInsight, &m.IsAutoReply, &created); err != nil {
		return nil, err
	}
	t, err := event.ParseType(eventType)
	if err != nil {
		return nil, err
	}
	m.EventType = t
	m.CreatedAt = fromMillis(created)
	return &m, nil
}

// GetMessage loads one message.
func (db *DB) GetMessage(ctx context.Context, id int64) (*Message, error) {
	row := db.QueryRowContext(ctx, `SELECT `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// RecentHistory returns the last limit messages of a room, oldest first.
func (db *DB) RecentHistory(ctx context.Context, roomID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT * FROM (
			SELECT `+messageColumns+`
			FROM messages m JOIN users u ON u.id = m.sender_id
			WHERE m.room_id = ?
			ORDER BY m.id DESC
			LIMIT ?
		) ORDER BY id ASC`, roomID, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// MessagesBySender returns a user's last limit messages across all rooms,
// newest first. Auto-replies are excluded since they are not in the user's
// own voice.
func (db *DB) MessagesBySender(ctx context.Context, senderID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN users u ON u.id = m.sender_id
		WHERE m.sender_id = ? AND m.is_auto_reply = 0
		ORDER BY m.id DESC
		LIMIT ?`, senderID, limit)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}
