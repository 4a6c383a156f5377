// Package scene converts the roster into smoothed visual positions: a
// headless interpolation, camera, and drag engine. It owns no rendering
// and no networking; a renderer calls Sync with roster entries, Step on
// every animation tick, and reads the resulting views.
package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/qrparty/partyroom/internal/client"
	"github.com/qrparty/partyroom/internal/party"
)

// Config holds the world extent and easing factors.
type Config struct {
	// WorldW, WorldH is the room extent in world pixels.
	WorldW float64
	WorldH float64
	// PositionLerp is the per-tick easing toward an entity's target.
	PositionLerp float64
	// CameraLerp is the per-tick easing of the camera offset.
	CameraLerp float64
}

// DefaultConfig returns the standard scene parameters.
func DefaultConfig() Config {
	return Config{
		WorldW:       540,
		WorldH:       1080,
		PositionLerp: 0.12,
		CameraLerp:   0.18,
	}
}

// Entity is one animated participant. Visual eases toward Target each
// tick unless the entity is under drag override.
type Entity struct {
	ID        string
	Name      string
	Pose      party.Pose
	Item      party.Item
	Color     uint32
	AvatarURL *string

	Visual mgl64.Vec2 // animated position, world pixels
	Target mgl64.Vec2 // logical position, world pixels
}

// drag is the single optional active-drag value; at most one entity may
// be dragged at a time, and this makes the invariant structural.
type drag struct {
	id     string
	offset mgl64.Vec2
}

// Engine animates entities and keeps the camera centered on one of them
// within world bounds.
type Engine struct {
	cfg Config

	entities map[string]*Entity
	order    []string // stable draw order, insertion first

	cameraID   string
	camera     mgl64.Vec2 // world offset applied to the whole scene
	viewport   mgl64.Vec2
	activeDrag *drag
}

// NewEngine creates an Engine. Zero config values fall back to defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.WorldW <= 0 {
		cfg.WorldW = def.WorldW
	}
	if cfg.WorldH <= 0 {
		cfg.WorldH = def.WorldH
	}
	if cfg.PositionLerp <= 0 || cfg.PositionLerp > 1 {
		cfg.PositionLerp = def.PositionLerp
	}
	if cfg.CameraLerp <= 0 || cfg.CameraLerp > 1 {
		cfg.CameraLerp = def.CameraLerp
	}
	return &Engine{
		cfg:      cfg,
		entities: make(map[string]*Entity),
	}
}

// SetViewport tells the engine the current screen size in pixels.
func (e *Engine) SetViewport(w, h float64) {
	e.viewport = mgl64.Vec2{w, h}
}

// SetCameraTarget picks which entity the camera follows.
func (e *Engine) SetCameraTarget(id string) {
	e.cameraID = id
}

// Sync reconciles the engine with the roster: entities appear, retarget,
// and disappear to match. The camera follows myID.
func (e *Engine) Sync(entries []client.Entry, myID string) {
	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		present[entry.ID] = struct{}{}
	}

	// Remove missing
	kept := e.order[:0]
	for _, id := range e.order {
		if _, ok := present[id]; ok {
			kept = append(kept, id)
			continue
		}
		if e.activeDrag != nil && e.activeDrag.id == id {
			e.activeDrag = nil
		}
		delete(e.entities, id)
	}
	e.order = kept

	// Upsert present
	for _, entry := range entries {
		target := mgl64.Vec2{
			party.Clamp01(entry.X) * e.cfg.WorldW,
			party.Clamp01(entry.Y) * e.cfg.WorldH,
		}

		ent, ok := e.entities[entry.ID]
		if !ok {
			// Spawn at the target instead of lerping in from the origin.
			ent = &Entity{
				ID:     entry.ID,
				Color:  AccentColor(entry.ID),
				Visual: target,
			}
			e.entities[entry.ID] = ent
			e.order = append(e.order, entry.ID)
		}

		ent.Name = entry.Name
		ent.Pose = entry.Pose
		ent.Item = entry.Item
		ent.AvatarURL = entry.AvatarURL

		if e.activeDrag != nil && e.activeDrag.id == entry.ID {
			// Drag override: the pointer drives this entity; keeping
			// target equal to visual prevents a snap-back on release.
			ent.Target = ent.Visual
			continue
		}
		ent.Target = target
	}

	e.SetCameraTarget(myID)
}

// Step advances one animation tick: every entity's visual position eases
// toward its target, and the camera eases toward centering its subject.
func (e *Engine) Step() {
	for _, ent := range e.entities {
		if e.activeDrag != nil && e.activeDrag.id == ent.ID {
			continue
		}
		delta := ent.Target.Sub(ent.Visual)
		ent.Visual = ent.Visual.Add(delta.Mul(e.cfg.PositionLerp))
	}
	e.stepCamera()
}

func (e *Engine) stepCamera() {
	me, ok := e.entities[e.cameraID]
	if !ok {
		return
	}

	desired := mgl64.Vec2{
		e.viewport.X()/2 - me.Visual.X(),
		e.viewport.Y()/2 - me.Visual.Y(),
	}

	// Clamp so the visible room never extends past the world edges; a
	// world smaller than the viewport is centered statically instead.
	desired[0] = clampAxis(desired.X(), e.viewport.X()-e.cfg.WorldW)
	desired[1] = clampAxis(desired.Y(), e.viewport.Y()-e.cfg.WorldH)

	delta := desired.Sub(e.camera)
	e.camera = e.camera.Add(delta.Mul(e.cfg.CameraLerp))
}

// clampAxis clamps a desired camera offset for one axis. min is
// viewport-world: negative when the world overflows the screen.
func clampAxis(desired, min float64) float64 {
	if min > 0 {
		return min / 2
	}
	return math.Max(min, math.Min(desired, 0))
}

// Camera returns the current world offset.
func (e *Engine) Camera() mgl64.Vec2 {
	return e.camera
}

// Entity returns an entity by id.
func (e *Engine) Entity(id string) (Entity, bool) {
	ent, ok := e.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *ent, true
}

// Entities returns copies of all entities in stable draw order.
func (e *Engine) Entities() []Entity {
	out := make([]Entity, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.entities[id])
	}
	return out
}

// NormalizedPosition converts an entity's visual position back to [0,1]²
// room coordinates, e.g. to turn a finished drag into a move trigger.
func (e *Engine) NormalizedPosition(id string) (x, y float64, ok bool) {
	ent, found := e.entities[id]
	if !found {
		return 0, 0, false
	}
	return party.Clamp01(ent.Visual.X() / e.cfg.WorldW), party.Clamp01(ent.Visual.Y() / e.cfg.WorldH), true
}
