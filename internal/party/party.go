// Package party provides the shared domain model for the party room
// presence system. It is used by the action, api, client, feed, scene,
// and store packages.
package party

import (
	"encoding/json"
	"math"
)

// DefaultRoom is the room players land in on first join.
const DefaultRoom = "main"

// MaxNameLength bounds a player's display name.
const MaxNameLength = 32

// Pose is a player's enumerated visual pose.
type Pose string

// Pose values.
const (
	PoseIdle   Pose = "idle"
	PoseDance  Pose = "dance"
	PoseCheers Pose = "cheers"
	PoseSit    Pose = "sit"
)

// Item is a small enumerated prop attached to a player.
type Item string

// Item values.
const (
	ItemNone     Item = "none"
	ItemGlass    Item = "glass"
	ItemBalloon  Item = "balloon"
	ItemPartyHat Item = "partyhat"
)

// Player is the identity row: created on first join, never deleted.
type Player struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	LastSeen  string  `json:"last_seen"`
}

// StateRow is a player's presence state within a room. Timestamps travel
// as strings so consumers can apply their own parse fallback.
type StateRow struct {
	PlayerID  string  `json:"player_id"`
	Room      string  `json:"room"`
	Pose      Pose    `json:"pose"`
	Item      Item    `json:"item"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	UpdatedAt string  `json:"updated_at"`
}

// Event type constants.
const (
	TypeQRTriggered = "qr_triggered"
)

// Event is an append-only audit record written once per accepted trigger.
type Event struct {
	ID            int64           `json:"id"`
	ActorPlayerID string          `json:"actor_player_id"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Ts            string          `json:"ts"`
}

// TriggerPayload is the payload recorded for a qr_triggered event.
type TriggerPayload struct {
	Code  string `json:"code"`
	Patch Patch  `json:"patch"`
}

// Clamp01 clamps n into [0,1]. Non-finite input maps to the room center.
func Clamp01(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0.5
	}
	return math.Max(0, math.Min(1, n))
}

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}
