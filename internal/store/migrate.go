package store

import (
	"context"
	"fmt"
)

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// migrate runs database migrations.
func (s *Store) migrate(ctx context.Context) error {
	if err := s.createPlayersTable(ctx); err != nil {
		return err
	}
	if err := s.createPlayerStateTable(ctx); err != nil {
		return err
	}
	if err := s.createRateLimitsTable(ctx); err != nil {
		return err
	}
	if err := s.createEventsTable(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Store) createPlayersTable(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS players (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		avatar_url TEXT,
		last_seen  TEXT NOT NULL
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create players table: %w", err)
	}
	return nil
}

func (s *Store) createPlayerStateTable(ctx context.Context) error {
	// One state row per player; room is an attribute so a room:<name>
	// trigger moves the row instead of duplicating it.
	const schema = `
	CREATE TABLE IF NOT EXISTS player_state (
		player_id  TEXT PRIMARY KEY,
		room       TEXT NOT NULL,
		pose       TEXT NOT NULL,
		item       TEXT NOT NULL,
		x          REAL NOT NULL,
		y          REAL NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_player_state_room ON player_state(room);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create player_state table: %w", err)
	}
	return nil
}

func (s *Store) createRateLimitsTable(ctx context.Context) error {
	// window_start is stored as unix milliseconds so the admission
	// statement can do window arithmetic inside SQLite.
	const schema = `
	CREATE TABLE IF NOT EXISTS rate_limits (
		player_id    TEXT PRIMARY KEY,
		window_start INTEGER NOT NULL,
		hits         INTEGER NOT NULL
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create rate_limits table: %w", err)
	}
	return nil
}

func (s *Store) createEventsTable(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id              INTEGER PRIMARY KEY,
		actor_player_id TEXT NOT NULL,
		type            TEXT NOT NULL,
		payload_json    TEXT,
		ts              TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE INDEX IF NOT EXISTS idx_events_actor_ts ON events(actor_player_id, ts);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create events table: %w", err)
	}
	return nil
}
