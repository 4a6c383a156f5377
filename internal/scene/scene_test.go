package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/qrparty/partyroom/internal/client"
	"github.com/qrparty/partyroom/internal/party"
)

func entry(id string, x, y float64) client.Entry {
	return client.Entry{
		ID:   id,
		Name: id,
		Room: party.DefaultRoom,
		Pose: party.PoseIdle,
		Item: party.ItemNone,
		X:    x,
		Y:    y,
	}
}

func TestSync_SpawnsAtTarget(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Sync([]client.Entry{entry("p1", 0.5, 0.25)}, "p1")

	ent, ok := e.Entity("p1")
	if !ok {
		t.Fatal("p1 missing")
	}
	want := mgl64.Vec2{0.5 * 540, 0.25 * 1080}
	if ent.Visual != want || ent.Target != want {
		t.Errorf("visual=%v target=%v, want both %v", ent.Visual, ent.Target, want)
	}
}

func TestStep_ConvergesToTarget(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Sync([]client.Entry{entry("p1", 0, 0)}, "p1")
	e.Sync([]client.Entry{entry("p1", 1, 1)}, "p1")

	ent, _ := e.Entity("p1")
	prev := ent.Target.Sub(ent.Visual).Len()
	for i := 0; i < 100; i++ {
		e.Step()
		ent, _ = e.Entity("p1")
		d := ent.Target.Sub(ent.Visual).Len()
		if d > prev+1e-9 {
			t.Fatalf("tick %d moved away from target: %v > %v", i, d, prev)
		}
		prev = d
	}
	if prev > 1e-3 {
		t.Errorf("distance after 100 ticks = %v, want ~0", prev)
	}
}

func TestSync_RemovesMissingEntities(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Sync([]client.Entry{entry("a", 0.1, 0.1), entry("b", 0.9, 0.9)}, "a")
	e.Sync([]client.Entry{entry("a", 0.1, 0.1)}, "a")

	if _, ok := e.Entity("b"); ok {
		t.Error("b should be gone")
	}
	if got := len(e.Entities()); got != 1 {
		t.Errorf("entities = %d, want 1", got)
	}
}

func TestDrag_SingleOwner(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Sync([]client.Entry{entry("a", 0.5, 0.5), entry("b", 0.2, 0.2)}, "a")

	if !e.PointerDown("a", mgl64.Vec2{100, 100}) {
		t.Fatal("first drag refused")
	}
	if e.PointerDown("b", mgl64.Vec2{50, 50}) {
		t.Error("second concurrent drag accepted")
	}
	if id, ok := e.Dragging(); !ok || id != "a" {
		t.Errorf("dragging = %q %v, want a", id, ok)
	}

	e.PointerUp()
	if !e.PointerDown("b", mgl64.Vec2{50, 50}) {
		t.Error("drag refused after release")
	}
}

func TestDrag_NoSnapBackOnRelease(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Sync([]client.Entry{entry("a", 0.5, 0.5)}, "a")

	start, _ := e.Entity("a")
	e.PointerDown("a", start.Visual)
	e.PointerMove(start.Visual.Add(mgl64.Vec2{120, -60}))
	e.PointerUp()

	moved, _ := e.Entity("a")
	want := start.Visual.Add(mgl64.Vec2{120, -60})
	if moved.Visual != want {
		t.Fatalf("visual = %v, want %v", moved.Visual, want)
	}

	// Without a fresh Sync retargeting it, further ticks keep it put.
	for i := 0; i < 10; i++ {
		e.Step()
	}
	after, _ := e.Entity("a")
	if after.Visual.Sub(want).Len() > 1e-9 {
		t.Errorf("entity drifted after release: %v", after.Visual)
	}
}

func TestDrag_SyncKeepsOverride(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Sync([]client.Entry{entry("a", 0.5, 0.5)}, "a")

	start, _ := e.Entity("a")
	e.PointerDown("a", start.Visual)
	e.PointerMove(start.Visual.Add(mgl64.Vec2{200, 0}))

	// A roster sync mid-drag must not yank the entity back to its server
	// position.
	e.Sync([]client.Entry{entry("a", 0.5, 0.5)}, "a")
	ent, _ := e.Entity("a")
	if ent.Target != ent.Visual {
		t.Errorf("target = %v, visual = %v; drag override lost", ent.Target, ent.Visual)
	}
}

func TestBackgroundTap_ReleasesDrag(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Sync([]client.Entry{entry("a", 0.5, 0.5)}, "a")
	e.PointerDown("a", mgl64.Vec2{270, 540})

	e.BackgroundTap()
	if _, ok := e.Dragging(); ok {
		t.Error("drag survived background tap")
	}
}

func TestCamera_ClampsToWorldBounds(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.SetViewport(400, 800)
	// Player in a corner: centering would push the camera past the edge.
	e.Sync([]client.Entry{entry("me", 0, 0)}, "me")

	for i := 0; i < 200; i++ {
		e.Step()
	}
	cam := e.Camera()
	if cam.X() > 0 || cam.Y() > 0 {
		t.Errorf("camera %v shows space past the top-left edge", cam)
	}
	if cam.X() < 400-540 || cam.Y() < 800-1080 {
		t.Errorf("camera %v shows space past the bottom-right edge", cam)
	}
}

func TestCamera_CentersSmallWorld(t *testing.T) {
	e := NewEngine(Config{WorldW: 200, WorldH: 200, PositionLerp: 0.12, CameraLerp: 1})
	e.SetViewport(400, 800)
	e.Sync([]client.Entry{entry("me", 1, 1)}, "me")

	e.Step()
	cam := e.Camera()
	// viewport-world is positive: the world is centered, the player's
	// position doesn't matter.
	if cam.X() != (400-200)/2 || cam.Y() != (800-200)/2 {
		t.Errorf("camera = %v, want static (100, 300)", cam)
	}
}

func TestNormalizedPosition_RoundTrips(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.Sync([]client.Entry{entry("a", 0.25, 0.75)}, "a")

	x, y, ok := e.NormalizedPosition("a")
	if !ok {
		t.Fatal("missing entity")
	}
	if math.Abs(x-0.25) > 1e-9 || math.Abs(y-0.75) > 1e-9 {
		t.Errorf("normalized = (%v, %v), want (0.25, 0.75)", x, y)
	}

	if _, _, ok := e.NormalizedPosition("nope"); ok {
		t.Error("unknown id reported ok")
	}
}

func TestAccentColor_StablePerID(t *testing.T) {
	a := AccentColor("player-1")
	if a != AccentColor("player-1") {
		t.Error("color not stable")
	}
	if a > 0xFFFFFF {
		t.Errorf("color %#x exceeds 24 bits", a)
	}
	if a == AccentColor("player-2") {
		t.Error("distinct ids collided (astronomically unlikely)")
	}
}
