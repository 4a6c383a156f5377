package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUpsertPlayer(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.UpsertPlayer(ctx, "p1", "Ava", now); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	p, err := st.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Name != "Ava" {
		t.Errorf("name = %q, want Ava", p.Name)
	}
	if p.AvatarURL != nil {
		t.Errorf("avatar should be nil, got %v", *p.AvatarURL)
	}

	// Re-upsert renames and refreshes last_seen.
	later := now.Add(time.Minute)
	if err := st.UpsertPlayer(ctx, "p1", "Ava B", later); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	p, err = st.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Name != "Ava B" {
		t.Errorf("name = %q, want Ava B", p.Name)
	}
	if p.LastSeen != later.UTC().Format(TimeFormat) {
		t.Errorf("last_seen = %q not refreshed", p.LastSeen)
	}
}

func TestGetPlayer_NotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetPlayer(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListPlayers(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"b", "a", "c"} {
		if err := st.UpsertPlayer(ctx, id, "Player "+id, now); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	players, err := st.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(players) != 3 {
		t.Fatalf("len = %d, want 3", len(players))
	}
}
