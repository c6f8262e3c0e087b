// Package wire defines the messages exchanged between a board game host and
// its clients along with the framing codec used to move them over a TCP
// stream. Every message is a single JSON object terminated by \r\n.
package wire

import (
	"encoding/json"
	"fmt"
)

// Tag identifies the variant of a Message as it appears in the wire
// envelope's "type" field.
type Tag string

const (
	TagPlayer  Tag = "player"
	TagDecline Tag = "decline"
	TagError   Tag = "error"
	TagIllegal Tag = "illegal"
	TagUpdate  Tag = "update"
	TagAction  Tag = "action"
)

// Message is the closed set of protocol messages. The tag method is
// unexported so that the variants handled by a type switch are exactly the
// ones defined in this package.
type Message interface {
	tag() Tag
}

// Player informs a newly connected client which seat it controls.
type Player struct {
	Seat int
}

func (Player) tag() Tag { return TagPlayer }

// Decline rejects a connection for which no seat is available. It is
// expected back-pressure rather than an error.
type Decline struct {
	Reason string
}

func (Decline) tag() Tag { return TagDecline }

// Error reports a malformed or unexpected client frame back to its sender.
// The connection stays open so the client may resubmit.
type Error struct {
	Text string
}

func (Error) tag() Tag { return TagError }

// Illegal reports an action rejected by the game rules, echoing the
// original action payload back to the seat that submitted it.
type Illegal struct {
	Action json.RawMessage
}

func (Illegal) tag() Tag { return TagIllegal }

// LastAction describes the move that produced an Update's state.
type LastAction struct {
	Player   int             `json:"player"`
	Action   json.RawMessage `json:"action"`
	Sequence int             `json:"sequence"`
}

// Update carries a new game state to every seat. Winners and Points are
// present together on exactly the final update of a game.
type Update struct {
	State      json.RawMessage
	LastAction *LastAction
	Winners    json.RawMessage
	Points     json.RawMessage
}

func (Update) tag() Tag { return TagUpdate }

// Terminal reports whether the update ends the game for its recipient.
func (u Update) Terminal() bool { return len(u.Winners) > 0 }

// Action is the single client-to-server message, carrying an engine action
// the host does not interpret beyond routing.
type Action struct {
	Payload json.RawMessage
}

func (Action) tag() Tag { return TagAction }

// actingState is the slice of an engine state the protocol itself needs:
// the seat expected to act next.
type actingState struct {
	Player int `json:"player"`
}

// ActingSeat extracts the seat to act from an encoded engine state. A
// terminal state names no actor and yields 0.
func ActingSeat(state json.RawMessage) (int, error) {
	var s actingState
	if err := json.Unmarshal(state, &s); err != nil {
		return 0, fmt.Errorf("decoding acting seat from state: %w", err)
	}
	return s.Player, nil
}
