package client

import (
	"testing"
	"time"

	"github.com/qrparty/partyroom/internal/feed"
	"github.com/qrparty/partyroom/internal/party"
	"github.com/qrparty/partyroom/internal/store"
)

func stateRow(id string, x, y float64) party.StateRow {
	return party.StateRow{
		PlayerID:  id,
		Room:      party.DefaultRoom,
		Pose:      party.PoseIdle,
		Item:      party.ItemNone,
		X:         x,
		Y:         y,
		UpdatedAt: time.Now().UTC().Format(store.TimeFormat),
	}
}

func TestRosterLoad_JoinsIdentities(t *testing.T) {
	r := NewRoster(nil)
	r.Load(
		[]party.Player{
			{ID: "p1", Name: "Ava"},
			{ID: "p2", Name: "Bo", AvatarURL: party.StringPtr("https://pics/bo.png")},
		},
		[]party.StateRow{stateRow("p1", 0.2, 0.3), stateRow("p2", 0.5, 0.5)},
	)

	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}
	e, ok := r.Get("p2")
	if !ok {
		t.Fatal("p2 missing")
	}
	if e.Name != "Bo" {
		t.Errorf("name = %q", e.Name)
	}
	if e.AvatarURL == nil || *e.AvatarURL != "https://pics/bo.png" {
		t.Errorf("avatar = %v", e.AvatarURL)
	}
}

func TestRosterLoad_PlaceholderForMissingIdentity(t *testing.T) {
	r := NewRoster(nil)
	r.Load(nil, []party.StateRow{stateRow("ghost", 0.4, 0.4)})

	e, ok := r.Get("ghost")
	if !ok {
		t.Fatal("ghost missing")
	}
	if e.Name != "???" {
		t.Errorf("name = %q, want ???", e.Name)
	}
}

func TestRosterApply_OrderedDeltas(t *testing.T) {
	r := NewRoster(nil)
	r.Load([]party.Player{{ID: "p1", Name: "Ava"}}, nil)

	// INSERT then UPDATE then DELETE for one player leaves the roster
	// without them.
	if cold := r.Apply(feed.Change{Op: feed.OpInsert, Row: stateRow("p1", 0.1, 0.1)}); !cold {
		t.Error("insert of unseen state should report cold")
	}
	if cold := r.Apply(feed.Change{Op: feed.OpUpdate, Row: stateRow("p1", 0.9, 0.9)}); cold {
		t.Error("update of known entry reported cold")
	}
	e, _ := r.Get("p1")
	if e.X != 0.9 || e.Y != 0.9 {
		t.Errorf("position = (%v, %v), want (0.9, 0.9)", e.X, e.Y)
	}
	r.Apply(feed.Change{Op: feed.OpDelete, Row: stateRow("p1", 0, 0)})
	if _, ok := r.Get("p1"); ok {
		t.Error("p1 survived delete")
	}
}

func TestRosterApply_ColdInsertGetsPlaceholder(t *testing.T) {
	r := NewRoster(nil)

	cold := r.Apply(feed.Change{Op: feed.OpInsert, Row: stateRow("p9", 0.3, 0.3)})
	if !cold {
		t.Error("expected cold insert")
	}
	e, ok := r.Get("p9")
	if !ok {
		t.Fatal("p9 missing")
	}
	if e.Name != "New" {
		t.Errorf("name = %q, want New", e.Name)
	}

	// Backfill settles the name without disturbing state.
	r.SetMeta([]party.Player{{ID: "p9", Name: "Niv"}, {ID: "absent", Name: "x"}})
	e, _ = r.Get("p9")
	if e.Name != "Niv" {
		t.Errorf("name after backfill = %q", e.Name)
	}
	if e.X != 0.3 {
		t.Errorf("backfill moved player to x=%v", e.X)
	}
	if _, ok := r.Get("absent"); ok {
		t.Error("SetMeta invented an entry")
	}
}

func TestRosterApply_MergeKeepsIdentity(t *testing.T) {
	r := NewRoster(nil)
	r.Load(
		[]party.Player{{ID: "p1", Name: "Ava", AvatarURL: party.StringPtr("a.png")}},
		[]party.StateRow{stateRow("p1", 0.2, 0.2)},
	)

	row := stateRow("p1", 0.7, 0.7)
	row.Pose = party.PoseDance
	r.Apply(feed.Change{Op: feed.OpUpdate, Row: row})

	e, _ := r.Get("p1")
	if e.Name != "Ava" || e.AvatarURL == nil {
		t.Errorf("identity lost across merge: %q %v", e.Name, e.AvatarURL)
	}
	if e.Pose != party.PoseDance || e.X != 0.7 {
		t.Errorf("state not merged: %v %v", e.Pose, e.X)
	}
}

func TestRosterEntries_StableOrder(t *testing.T) {
	r := NewRoster(nil)
	for _, id := range []string{"c", "a", "b"} {
		r.Apply(feed.Change{Op: feed.OpInsert, Row: stateRow(id, 0.5, 0.5)})
	}
	// Updating an existing entry must not reshuffle it to the back.
	r.Apply(feed.Change{Op: feed.OpUpdate, Row: stateRow("c", 0.6, 0.6)})

	got := r.Entries()
	want := []string{"c", "a", "b"}
	for i, e := range got {
		if e.ID != want[i] {
			t.Fatalf("order[%d] = %q, want %q", i, e.ID, want[i])
		}
	}
}

func TestRosterTimestampFallback(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRoster(func() time.Time { return fixed })

	row := stateRow("p1", 0.5, 0.5)
	row.UpdatedAt = "not-a-timestamp"
	r.Apply(feed.Change{Op: feed.OpInsert, Row: row})

	e, _ := r.Get("p1")
	if e.UpdatedAt != fixed.UnixMilli() {
		t.Errorf("UpdatedAt = %d, want clock fallback %d", e.UpdatedAt, fixed.UnixMilli())
	}

	// RFC3339 without the fixed-width fraction still parses.
	rfc := stateRow("p2", 0.5, 0.5)
	rfc.UpdatedAt = "2025-06-01T10:30:00Z"
	r.Apply(feed.Change{Op: feed.OpInsert, Row: rfc})
	e, _ = r.Get("p2")
	want := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC).UnixMilli()
	if e.UpdatedAt != want {
		t.Errorf("UpdatedAt = %d, want %d", e.UpdatedAt, want)
	}
}
