package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateRoom inserts a room with the given members.
func (db *DB) CreateRoom(ctx context.Context, kind RoomKind, name string, memberIDs ...int64) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := nowMillis()
	res, err := tx.ExecContext(ctx, `INSERT INTO chat_rooms (kind, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		kind, name, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert room: %w", err)
	}
	roomID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, uid := range memberIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)`,
			roomID, uid, now); err != nil {
			return 0, fmt.Errorf("insert member %d: %w", uid, err)
		}
	}
	return roomID, tx.Commit()
}

// GetRoom loads a room by id.
func (db *DB) GetRoom(ctx context.Context, roomID int64) (*Room, error) {
	var r Room
	var created, updated int64
	err := db.QueryRowContext(ctx, `SELECT id, kind, name, created_at, updated_at FROM chat_rooms WHERE id = ?`, roomID).
		Scan(&r.ID, &r.Kind, &r.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt, r.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &r, nil
}

// AddMember (re)joins userID to a room.
func (db *DB) AddMember(ctx context.Context, roomID, userID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO chat_room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)
		ON CONFLICT(room_id, user_id) DO UPDATE SET left_at = NULL, joined_at = excluded.joined_at`,
		roomID, userID, nowMillis())
	return err
}

// LeaveRoom marks userID as having left. The membership row is kept so
// history still resolves.
func (db *DB) LeaveRoom(ctx context.Context, roomID, userID int64) error {
	_, err := db.ExecContext(ctx, `UPDATE chat_room_members SET left_at = ? WHERE room_id = ? AND user_id = ? AND left_at IS NULL`,
		nowMillis(), roomID, userID)
	return err
}

// IsActiveMember reports whether userID is in the room and has not left.
func (db *DB) IsActiveMember(ctx context.Context, roomID, userID int64) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_room_members
		WHERE room_id = ? AND user_id = ? AND left_at IS NULL`, roomID, userID).Scan(&n)
	return n > 0, err
}

// ActiveMembers lists the members who have not left, in join order.
func (db *DB) ActiveMembers(ctx context.Context, roomID int64) ([]Member, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT m.user_id, u.name, m.unread_count
		FROM chat_room_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = ? AND m.left_at IS NULL
		ORDER BY m.joined_at, m.user_id`, roomID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Name, &m.UnreadCount); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UnreadCount returns a member's unread counter.
func (db *DB) UnreadCount(ctx context.Context, roomID, userID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT unread_count FROM chat_room_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return n, err
}

// MarkRead resets a member's unread counter.
func (db *DB) MarkRead(ctx context.Context, roomID, userID int64) error {
	_, err := db.ExecContext(ctx, `UPDATE chat_room_members SET unread_count = 0 WHERE room_id = ? AND user_id = ?`,
		roomID, userID)
	return err
}
