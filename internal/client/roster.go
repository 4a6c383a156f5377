// Package client maintains a reconciled roster of everyone in a room by
// merging a cold snapshot with the live change feed, and wraps the action
// endpoint for joins and triggers.
package client

import (
	"sync"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/qrparty/partyroom/internal/feed"
	"github.com/qrparty/partyroom/internal/party"
	"github.com/qrparty/partyroom/internal/store"
)

// Placeholder names for entries whose identity row hasn't been seen yet.
const (
	placeholderName = "???"
	coldInsertName  = "New"
)

// Entry is one reconciled roster row: the join of a player's identity and
// their state, with the timestamp settled into local millis.
type Entry struct {
	ID        string
	Name      string
	AvatarURL *string
	Room      string
	Pose      party.Pose
	Item      party.Item
	X         float64
	Y         float64
	UpdatedAt int64 // unix millis
}

// Roster is the client-held collection of roster entries, keyed by player
// id with stable iteration order. Deltas for one player are applied in
// arrival order; different players never interfere.
type Roster struct {
	mu      sync.RWMutex
	entries *orderedmap.OrderedMap[string, Entry]
	clock   func() time.Time
}

// NewRoster creates an empty roster. The clock is used as the fallback
// for unparseable timestamps; nil means time.Now.
func NewRoster(clock func() time.Time) *Roster {
	if clock == nil {
		clock = time.Now
	}
	return &Roster{
		entries: orderedmap.NewOrderedMap[string, Entry](),
		clock:   clock,
	}
}

// Load replaces the roster contents from a snapshot: state rows joined
// with player identities by id. Missing identities get a placeholder.
func (r *Roster) Load(players []party.Player, states []party.StateRow) {
	byID := make(map[string]party.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = orderedmap.NewOrderedMap[string, Entry]()
	for _, st := range states {
		e := r.entryFromRow(st)
		if p, ok := byID[st.PlayerID]; ok {
			e.Name = p.Name
			e.AvatarURL = p.AvatarURL
		} else {
			e.Name = placeholderName
		}
		r.entries.Set(e.ID, e)
	}
}

// Apply merges one feed delta into the roster. The returned flag reports
// a cold insert: a row for a player whose identity metadata is unknown,
// worth a backfill fetch. The entry itself is kept either way.
func (r *Roster) Apply(c feed.Change) (coldInsert bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.Row.PlayerID

	if c.Op == feed.OpDelete {
		r.entries.Delete(id)
		return false
	}

	fresh := r.entryFromRow(c.Row)

	existing, ok := r.entries.Get(id)
	if !ok {
		// Cold insert racing ahead of the metadata join; expected and
		// tolerated.
		fresh.Name = coldInsertName
		r.entries.Set(id, fresh)
		return true
	}

	// Merge state fields, leave name/avatar untouched.
	existing.Room = fresh.Room
	existing.Pose = fresh.Pose
	existing.Item = fresh.Item
	existing.X = fresh.X
	existing.Y = fresh.Y
	existing.UpdatedAt = fresh.UpdatedAt
	r.entries.Set(id, existing)
	return false
}

// SetMeta backfills identity metadata for known entries without touching
// state fields. Unknown ids are ignored.
func (r *Roster) SetMeta(players []party.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range players {
		e, ok := r.entries.Get(p.ID)
		if !ok {
			continue
		}
		e.Name = p.Name
		e.AvatarURL = p.AvatarURL
		r.entries.Set(p.ID, e)
	}
}

// Get returns a single entry by player id.
func (r *Roster) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries.Get(id)
}

// Entries returns a copy of all entries in iteration order.
func (r *Roster) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, r.entries.Len())
	for el := r.entries.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Len returns the number of roster entries.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries.Len()
}

func (r *Roster) entryFromRow(row party.StateRow) Entry {
	return Entry{
		ID:        row.PlayerID,
		Room:      row.Room,
		Pose:      row.Pose,
		Item:      row.Item,
		X:         party.Clamp01(row.X),
		Y:         party.Clamp01(row.Y),
		UpdatedAt: r.toMillis(row.UpdatedAt),
	}
}

// toMillis parses a row timestamp, falling back to the local clock when
// the value doesn't parse.
func (r *Roster) toMillis(ts string) int64 {
	if t, err := time.Parse(store.TimeFormat, ts); err == nil {
		return t.UnixMilli()
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UnixMilli()
	}
	return r.clock().UnixMilli()
}
