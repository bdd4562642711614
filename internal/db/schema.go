package db

import (
	"context"
	"fmt"
)

// schema mirrors the legacy SQLite layout so existing rows can be
// imported as-is.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		token_expires_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS top_tracks (
		user_id TEXT NOT NULL,
		captured_on TEXT NOT NULL,
		track_id TEXT NOT NULL,
		track_name TEXT NOT NULL,
		artists TEXT NOT NULL,
		rank INTEGER NOT NULL,
		time_range TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		linkto TEXT NOT NULL DEFAULT '',
		release TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, captured_on, track_id)
	)`,
	`CREATE TABLE IF NOT EXISTS artist_top (
		user_id TEXT NOT NULL,
		captured_on TEXT NOT NULL,
		artist_name TEXT NOT NULL,
		rank INTEGER NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		linkto TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, captured_on, artist_name)
	)`,
}

// Init creates the tables if they do not exist.
func (db *DB) Init(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
