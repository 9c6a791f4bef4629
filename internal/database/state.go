package database

import (
	"context"
	"database/sql"
	"errors"
)

// ErrStateNotFound is returned when an app_state key has no row
var ErrStateNotFound = errors.New("state key not found")

// GetState reads one app_state value
func (db *DB) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT state_value FROM app_state WHERE state_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrStateNotFound
	}
	return value, err
}

// PutState inserts or replaces one app_state value
func (db *DB) PutState(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, db.Dialect.UpsertState(), key, value)
	return err
}

// DeleteState removes key; a missing key is not an error
func (db *DB) DeleteState(ctx context.Context, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM app_state WHERE state_key = ?`, key)
	return err
}
