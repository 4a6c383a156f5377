package scene

import "github.com/go-gl/mathgl/mgl64"

// Drag ownership is purely a local rendering concern: nothing here writes
// back to the server. The caller turns a finished drag into a move
// trigger if it wants the position to stick.

// PointerDown claims drag ownership of an entity. Returns false if
// another entity is already being dragged or the id is unknown.
func (e *Engine) PointerDown(id string, screen mgl64.Vec2) bool {
	if e.activeDrag != nil && e.activeDrag.id != id {
		return false
	}
	ent, ok := e.entities[id]
	if !ok {
		return false
	}

	e.activeDrag = &drag{
		id:     id,
		offset: ent.Visual.Sub(e.screenToWorld(screen)),
	}
	return true
}

// PointerMove drives the dragged entity directly from pointer input.
// Target follows visual so the entity stays put on release.
func (e *Engine) PointerMove(screen mgl64.Vec2) {
	if e.activeDrag == nil {
		return
	}
	ent, ok := e.entities[e.activeDrag.id]
	if !ok {
		e.activeDrag = nil
		return
	}

	ent.Visual = e.screenToWorld(screen).Add(e.activeDrag.offset)
	ent.Target = ent.Visual
}

// PointerUp releases drag ownership. Also used for pointer-cancel.
func (e *Engine) PointerUp() {
	e.activeDrag = nil
}

// BackgroundTap releases drag ownership, matching a tap outside any
// entity.
func (e *Engine) BackgroundTap() {
	e.PointerUp()
}

// Dragging returns the id of the entity under drag override, if any.
func (e *Engine) Dragging() (string, bool) {
	if e.activeDrag == nil {
		return "", false
	}
	return e.activeDrag.id, true
}

// screenToWorld converts screen coordinates to world coordinates by
// undoing the camera offset.
func (e *Engine) screenToWorld(screen mgl64.Vec2) mgl64.Vec2 {
	return screen.Sub(e.camera)
}
