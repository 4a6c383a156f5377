// Package action implements the server-side action processor: request
// validation, rate limiting, spawn placement, state mutation, and event
// logging. All coordination happens through the store; the processor
// itself keeps no cross-request state.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrparty/partyroom/internal/feed"
	"github.com/qrparty/partyroom/internal/party"
	"github.com/qrparty/partyroom/internal/spawn"
	"github.com/qrparty/partyroom/internal/store"
)

// ActiveCutoff is how recently a player's state must have been updated for
// their position to constrain spawn placement.
const ActiveCutoff = 2 * time.Hour

// Sentinel errors for user-correctable failures. Anything else coming out
// of the processor is a store failure.
var (
	ErrInvalidName   = errors.New("invalid name")
	ErrMissingFields = errors.New("missing playerId/code")
	ErrUnknownCode   = errors.New("unknown code")
	ErrRateLimited   = errors.New("rate limited")
)

// Processor validates and applies join/trigger actions.
type Processor struct {
	store  *store.Store
	alloc  *spawn.Allocator
	hub    *feed.Hub
	logger *zap.SugaredLogger
	now    func() time.Time

	window  time.Duration
	maxHits int
}

// Option configures a Processor.
type Option func(*Processor)

// WithHub sets the change-feed hub to publish post-write rows to.
func WithHub(hub *feed.Hub) Option {
	return func(p *Processor) { p.hub = hub }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithAllocator sets the spawn allocator.
func WithAllocator(alloc *spawn.Allocator) Option {
	return func(p *Processor) {
		if alloc != nil {
			p.alloc = alloc
		}
	}
}

// WithRateLimit overrides the fixed-window parameters.
func WithRateLimit(window time.Duration, maxHits int) Option {
	return func(p *Processor) {
		if window > 0 {
			p.window = window
		}
		if maxHits > 0 {
			p.maxHits = maxHits
		}
	}
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Processor backed by the given store.
func New(st *store.Store, opts ...Option) *Processor {
	p := &Processor{
		store:   st,
		alloc:   spawn.New(spawn.DefaultConfig()),
		logger:  zap.NewNop().Sugar(),
		now:     time.Now,
		window:  store.DefaultRateWindow,
		maxHits: store.DefaultRateMaxHits,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Join registers (or re-registers) a player and returns their id. A fresh
// player is spawned into the default room; a returning player keeps their
// existing position, pose, and item, and only updated_at is refreshed.
func (p *Processor) Join(ctx context.Context, name, existingID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > party.MaxNameLength {
		return "", ErrInvalidName
	}

	playerID := existingID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	now := p.now()
	if err := p.store.UpsertPlayer(ctx, playerID, name, now); err != nil {
		return "", err
	}

	_, err := p.store.GetState(ctx, playerID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := p.spawnState(ctx, playerID, now); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		row, err := p.store.TouchState(ctx, playerID, now)
		if err != nil {
			return "", err
		}
		p.publish(feed.Change{Op: feed.OpUpdate, Row: row})
	}

	p.logger.Infow("player joined", "player_id", playerID, "name", name)
	return playerID, nil
}

func (p *Processor) spawnState(ctx context.Context, playerID string, now time.Time) error {
	others, err := p.activePositions(ctx, party.DefaultRoom, now)
	if err != nil {
		return err
	}

	pos := p.alloc.Place(others)
	row := party.StateRow{
		PlayerID:  playerID,
		Room:      party.DefaultRoom,
		Pose:      party.PoseIdle,
		Item:      party.ItemNone,
		X:         pos.X,
		Y:         pos.Y,
		UpdatedAt: now.UTC().Format(store.TimeFormat),
	}

	inserted, err := p.store.InsertState(ctx, row)
	if err != nil {
		return err
	}
	if !inserted {
		// Lost a racing join; the winner's position stands.
		touched, err := p.store.TouchState(ctx, playerID, now)
		if err != nil {
			return err
		}
		p.publish(feed.Change{Op: feed.OpUpdate, Row: touched})
		return nil
	}

	p.publish(feed.Change{Op: feed.OpInsert, Row: row})
	return nil
}

// activePositions returns the positions of players whose state was updated
// within ActiveCutoff. Timestamps compare as strings; the fixed-width
// format makes that equivalent to chronological comparison.
func (p *Processor) activePositions(ctx context.Context, room string, now time.Time) ([]spawn.Point, error) {
	states, err := p.store.ListRoomState(ctx, room)
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(-ActiveCutoff).UTC().Format(store.TimeFormat)
	var points []spawn.Point
	for _, st := range states {
		if st.UpdatedAt < cutoff {
			continue
		}
		points = append(points, spawn.Point{X: st.X, Y: st.Y})
	}
	return points, nil
}

// Trigger applies a coded action for a player and returns the patch that
// was applied, for the caller's own optimistic feedback. A denied or
// unmappable trigger mutates nothing and logs no event.
func (p *Processor) Trigger(ctx context.Context, playerID, code string) (party.Patch, error) {
	code = strings.TrimSpace(code)
	if playerID == "" || code == "" {
		return party.Patch{}, ErrMissingFields
	}

	now := p.now()
	admitted, err := p.store.AdmitTrigger(ctx, playerID, p.window, p.maxHits, now)
	if err != nil {
		return party.Patch{}, err
	}
	if !admitted {
		return party.Patch{}, ErrRateLimited
	}

	patch, ok := party.MapCode(code)
	if !ok {
		return party.Patch{}, ErrUnknownCode
	}

	if err := p.applyAndPublish(ctx, playerID, patch, now); err != nil {
		return party.Patch{}, err
	}

	payload, err := json.Marshal(party.TriggerPayload{Code: code, Patch: patch})
	if err != nil {
		return party.Patch{}, fmt.Errorf("marshal payload: %w", err)
	}
	evt := &party.Event{
		ActorPlayerID: playerID,
		Type:          party.TypeQRTriggered,
		Payload:       payload,
		Ts:            now.UTC().Format(store.TimeFormat),
	}
	if err := p.store.AppendEvent(ctx, evt); err != nil {
		return party.Patch{}, err
	}

	if err := p.store.TouchPlayer(ctx, playerID, now); err != nil {
		return party.Patch{}, err
	}

	p.logger.Infow("trigger applied", "player_id", playerID, "code", code)
	return patch, nil
}

func (p *Processor) applyAndPublish(ctx context.Context, playerID string, patch party.Patch, now time.Time) error {
	var oldRoom string
	if patch.Room != nil {
		prev, err := p.store.GetState(ctx, playerID)
		if err == nil {
			oldRoom = prev.Room
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	row, err := p.store.ApplyPatch(ctx, playerID, patch, now)
	if errors.Is(err, store.ErrNotFound) {
		// No state row to patch; nothing for the feed. Mirrors the
		// relational update matching zero rows.
		return nil
	}
	if err != nil {
		return err
	}

	if oldRoom != "" && oldRoom != row.Room {
		// Room move: the old room sees the player leave, the new one
		// sees them arrive.
		gone := row
		gone.Room = oldRoom
		p.publish(feed.Change{Op: feed.OpDelete, Row: gone})
		p.publish(feed.Change{Op: feed.OpInsert, Row: row})
		return nil
	}

	p.publish(feed.Change{Op: feed.OpUpdate, Row: row})
	return nil
}

func (p *Processor) publish(c feed.Change) {
	if p.hub != nil {
		p.hub.Publish(c)
	}
}
