package party

import (
	"math"
	"strconv"
	"strings"
)

// Patch is a partial update to a player's state. Nil fields are left
// untouched when the patch is applied.
type Patch struct {
	Room *string  `json:"room,omitempty"`
	Pose *Pose    `json:"pose,omitempty"`
	Item *Item    `json:"item,omitempty"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
}

// IsZero reports whether the patch touches nothing.
func (p Patch) IsZero() bool {
	return p.Room == nil && p.Pose == nil && p.Item == nil && p.X == nil && p.Y == nil
}

func posePtr(p Pose) *Pose        { return &p }
func itemPtr(i Item) *Item        { return &i }
func floatPtr(f float64) *float64 { return &f }

// MapCode maps a trigger code to its state patch. The second return is
// false for codes that match no rule.
func MapCode(code string) (Patch, bool) {
	switch code {
	case "cheers":
		return Patch{Pose: posePtr(PoseCheers), Item: itemPtr(ItemGlass)}, true
	case "dance":
		return Patch{Pose: posePtr(PoseDance)}, true
	case "idle":
		return Patch{Pose: posePtr(PoseIdle), Item: itemPtr(ItemNone)}, true
	case "hat":
		return Patch{Item: itemPtr(ItemPartyHat)}, true
	}

	if rest, ok := strings.CutPrefix(code, "room:"); ok {
		room := strings.TrimSpace(rest)
		if room != "" {
			return Patch{Room: &room}, true
		}
		return Patch{}, false
	}

	if rest, ok := strings.CutPrefix(code, "move:"); ok {
		xs, ys, found := strings.Cut(rest, ",")
		if !found {
			return Patch{}, false
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if errX != nil || errY != nil || !isFinite(x) || !isFinite(y) {
			return Patch{}, false
		}
		return Patch{X: floatPtr(Clamp01(x)), Y: floatPtr(Clamp01(y))}, true
	}

	return Patch{}, false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
