package store

import (
	"context"
	"fmt"
	"time"
)

// Fixed-window trigger admission defaults.
const (
	DefaultRateWindow  = 10 * time.Second
	DefaultRateMaxHits = 4
)

// AdmitTrigger decides whether a player may submit another trigger within
// the fixed window. It is a single conditional upsert so concurrent
// requests from the same player serialize inside SQLite and can never
// push hits past maxHits: the separate read/decide/write steps of a naive
// limiter are collapsed into one statement.
//
// A denied call leaves the window row untouched.
func (s *Store) AdmitTrigger(ctx context.Context, playerID string, window time.Duration, maxHits int, now time.Time) (bool, error) {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	const query = `
	INSERT INTO rate_limits (player_id, window_start, hits)
	VALUES (?, ?, 1)
	ON CONFLICT(player_id) DO UPDATE SET
		hits = CASE
			WHEN excluded.window_start - rate_limits.window_start > ? THEN 1
			ELSE rate_limits.hits + 1
		END,
		window_start = CASE
			WHEN excluded.window_start - rate_limits.window_start > ? THEN excluded.window_start
			ELSE rate_limits.window_start
		END
	WHERE rate_limits.hits < ?
		OR excluded.window_start - rate_limits.window_start > ?
	`

	result, err := s.db.ExecContext(ctx, query,
		playerID, nowMs,
		windowMs,
		windowMs,
		maxHits,
		windowMs,
	)
	if err != nil {
		return false, fmt.Errorf("admit trigger: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// PruneRateLimits deletes window rows that expired more than keepFor ago.
// Expired rows carry no admission state (the next trigger resets them), so
// this is purely a size bound on the table.
func (s *Store) PruneRateLimits(ctx context.Context, keepFor time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-keepFor).UnixMilli()

	result, err := s.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE window_start < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune rate limits: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}
