package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qrparty/partyroom/internal/party"
)

// InsertState creates a player's state row if none exists yet. Returns
// false when a row is already present; racing joins both land here and the
// second insert is simply ignored, preserving the first spawn position.
func (s *Store) InsertState(ctx context.Context, row party.StateRow) (bool, error) {
	const query = `
	INSERT INTO player_state (player_id, room, pose, item, x, y, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(player_id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		row.PlayerID,
		row.Room,
		string(row.Pose),
		string(row.Item),
		party.Clamp01(row.X),
		party.Clamp01(row.Y),
		row.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// TouchState refreshes a state row's updated_at without changing position,
// pose, or item. Returns the refreshed row.
func (s *Store) TouchState(ctx context.Context, playerID string, now time.Time) (party.StateRow, error) {
	const query = `UPDATE player_state SET updated_at = ? WHERE player_id = ?`

	if _, err := s.db.ExecContext(ctx, query, now.UTC().Format(TimeFormat), playerID); err != nil {
		return party.StateRow{}, fmt.Errorf("touch state: %w", err)
	}
	return s.GetState(ctx, playerID)
}

// ApplyPatch merges a patch into a player's state row and returns the
// updated row. X/Y are clamped at the write boundary. Returns ErrNotFound
// when the player has no state row.
func (s *Store) ApplyPatch(ctx context.Context, playerID string, p party.Patch, now time.Time) (party.StateRow, error) {
	var (
		sets []string
		args []any
	)

	if p.Room != nil {
		sets = append(sets, "room = ?")
		args = append(args, *p.Room)
	}
	if p.Pose != nil {
		sets = append(sets, "pose = ?")
		args = append(args, string(*p.Pose))
	}
	if p.Item != nil {
		sets = append(sets, "item = ?")
		args = append(args, string(*p.Item))
	}
	if p.X != nil {
		sets = append(sets, "x = ?")
		args = append(args, party.Clamp01(*p.X))
	}
	if p.Y != nil {
		sets = append(sets, "y = ?")
		args = append(args, party.Clamp01(*p.Y))
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now.UTC().Format(TimeFormat))
	args = append(args, playerID)

	query := "UPDATE player_state SET " + strings.Join(sets, ", ") + " WHERE player_id = ?"

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return party.StateRow{}, fmt.Errorf("apply patch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return party.StateRow{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return party.StateRow{}, ErrNotFound
	}

	return s.GetState(ctx, playerID)
}

// GetState returns a single player's state row, or ErrNotFound.
func (s *Store) GetState(ctx context.Context, playerID string) (party.StateRow, error) {
	const query = `
	SELECT player_id, room, pose, item, x, y, updated_at
	FROM player_state WHERE player_id = ?
	`

	row, err := scanState(s.db.QueryRowContext(ctx, query, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return party.StateRow{}, ErrNotFound
	}
	if err != nil {
		return party.StateRow{}, fmt.Errorf("get state: %w", err)
	}
	return row, nil
}

// ListRoomState returns all state rows for a room.
func (s *Store) ListRoomState(ctx context.Context, room string) ([]party.StateRow, error) {
	const query = `
	SELECT player_id, room, pose, item, x, y, updated_at
	FROM player_state WHERE room = ? ORDER BY player_id
	`

	rows, err := s.db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, fmt.Errorf("list room state: %w", err)
	}
	defer rows.Close()

	var states []party.StateRow
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return states, nil
}

func scanState(r rowScanner) (party.StateRow, error) {
	var (
		row        party.StateRow
		pose, item string
	)
	if err := r.Scan(&row.PlayerID, &row.Room, &pose, &item, &row.X, &row.Y, &row.UpdatedAt); err != nil {
		return party.StateRow{}, err
	}
	row.Pose = party.Pose(pose)
	row.Item = party.Item(item)
	row.X = party.Clamp01(row.X)
	row.Y = party.Clamp01(row.Y)
	return row, nil
}
