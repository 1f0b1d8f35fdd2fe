package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("store: not found")

// CreateUser inserts a user and returns its id.
func (db *DB) CreateUser(ctx context.Context, name string) (int64, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO users (name, created_at) VALUES (?, ?)`, name, nowMillis())
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

// DisplayName returns a user's name.
func (db *DB) DisplayName(ctx context.Context, userID int64) (string, error) {
	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}
