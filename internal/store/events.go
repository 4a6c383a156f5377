package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qrparty/partyroom/internal/party"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

// AppendEvent writes an audit event. Events are append-only and never
// mutated. On success e.ID is set to the inserted row's ID.
func (s *Store) AppendEvent(ctx context.Context, e *party.Event) error {
	if e.ActorPlayerID == "" || e.Type == "" || e.Ts == "" {
		return ErrInvalidEvent
	}

	const query = `
	INSERT INTO events (actor_player_id, type, payload_json, ts)
	VALUES (?, ?, ?, ?)
	`

	var payload sql.NullString
	if len(e.Payload) > 0 {
		payload = sql.NullString{String: string(e.Payload), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query, e.ActorPlayerID, e.Type, payload, e.Ts)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// ListEventsByActor returns a player's most recent events, newest first.
func (s *Store) ListEventsByActor(ctx context.Context, actorID string, limit int) ([]party.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	} else if limit > maxEventLimit {
		limit = maxEventLimit
	}

	const query = `
	SELECT id, actor_player_id, type, payload_json, ts
	FROM events
	WHERE actor_player_id = ?
	ORDER BY ts DESC, id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []party.Event
	for rows.Next() {
		var (
			e       party.Event
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ActorPlayerID, &e.Type, &payload, &e.Ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if payload.Valid {
			e.Payload = []byte(payload.String)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// CountEvents returns the total number of events (for testing).
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}
