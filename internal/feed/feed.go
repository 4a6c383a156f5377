// Package feed delivers row-level change notifications for player state.
// The hub is transport-agnostic: the api package serves changes over
// WebSocket and the client package consumes them, but anything able to
// hold a Subscriber can listen.
package feed

import (
	"github.com/qrparty/partyroom/internal/party"
)

// Op identifies the kind of row change.
type Op string

// Change operations.
const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change is one row-level delta on the player_state table. For DELETE the
// row carries its last known contents, so room filtering still applies.
type Change struct {
	Op  Op             `json:"op"`
	Row party.StateRow `json:"row"`
}
