package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/qrparty/partyroom/internal/party"
)

// UpsertPlayer creates or refreshes a player identity row. The avatar is
// left alone on conflict; only name and last_seen are overwritten.
func (s *Store) UpsertPlayer(ctx context.Context, id, name string, now time.Time) error {
	const query = `
	INSERT INTO players (id, name, avatar_url, last_seen)
	VALUES (?, ?, NULL, ?)
	ON CONFLICT(id) DO UPDATE SET
		name      = excluded.name,
		last_seen = excluded.last_seen
	`

	if _, err := s.db.ExecContext(ctx, query, id, name, now.UTC().Format(TimeFormat)); err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// TouchPlayer refreshes a player's last_seen timestamp.
func (s *Store) TouchPlayer(ctx context.Context, id string, now time.Time) error {
	const query = `UPDATE players SET last_seen = ? WHERE id = ?`

	if _, err := s.db.ExecContext(ctx, query, now.UTC().Format(TimeFormat), id); err != nil {
		return fmt.Errorf("touch player: %w", err)
	}
	return nil
}

// GetPlayer returns a single player row, or ErrNotFound.
func (s *Store) GetPlayer(ctx context.Context, id string) (party.Player, error) {
	const query = `SELECT id, name, avatar_url, last_seen FROM players WHERE id = ?`

	p, err := scanPlayer(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return party.Player{}, ErrNotFound
	}
	if err != nil {
		return party.Player{}, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

// ListPlayers returns every known player identity row.
func (s *Store) ListPlayers(ctx context.Context) ([]party.Player, error) {
	const query = `SELECT id, name, avatar_url, last_seen FROM players ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []party.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return players, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(r rowScanner) (party.Player, error) {
	var (
		p      party.Player
		avatar sql.NullString
	)
	if err := r.Scan(&p.ID, &p.Name, &avatar, &p.LastSeen); err != nil {
		return party.Player{}, err
	}
	if avatar.Valid {
		p.AvatarURL = &avatar.String
	}
	return p, nil
}
