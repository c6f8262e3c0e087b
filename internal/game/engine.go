// Package game defines the contract between the host and an implementation
// of a turn-based board game. The host never interprets states or actions
// beyond what this interface exposes; everything else travels through it as
// opaque JSON.
package game

import "encoding/json"

// State is an engine-native game state. The host only stores and forwards
// these; their structure is known exclusively to the Engine that produced
// them.
type State any

// Action is an engine-native move. Like State, opaque to the host.
type Action any

// Engine encapsulates the rules of a board game: legality, state
// transition, termination, scoring, and the serialization boundary between
// native and wire representations.
//
// The JSON object produced by ToJSONState must include a "player" field
// naming the seat expected to act, or 0 when the game has ended. Both the
// host and the client driver route turns based on that field.
type Engine interface {
	// NumPlayers returns the fixed number of seats the game requires.
	NumPlayers() int

	// StartingState produces the initial state of a fresh game.
	StartingState() State

	// ToJSONState serializes a native state for the wire.
	ToJSONState(s State) (json.RawMessage, error)

	// ToCompactState deserializes a wire state into its native form,
	// used by clients to maintain their own history.
	ToCompactState(raw json.RawMessage) (State, error)

	// ToCompactAction deserializes a wire action into its native form.
	ToCompactAction(raw json.RawMessage) (Action, error)

	// IsLegal reports whether the action is legal in the latest state of
	// the history.
	IsLegal(history []State, a Action) bool

	// NextState applies a legal action to the latest state of the history
	// and returns the resulting state.
	NextState(history []State, a Action) State

	// PreviousPlayer returns the seat that acted to produce the state.
	PreviousPlayer(s State) int

	// IsEnded reports whether the history has reached a terminal state.
	IsEnded(history []State) bool

	// WinValues scores a finished game as a value per seat, conventionally
	// 1 for a win, 0.5 for a draw, and 0 for a loss.
	WinValues(history []State) map[int]float64

	// PointsValues returns any game-specific point totals per seat.
	PointsValues(history []State) map[int]int

	// Display renders a wire state and the action that produced it as text.
	Display(state, action json.RawMessage) string

	// WinnerMessage renders the win values of a finished game as text.
	WinnerMessage(winners json.RawMessage) string

	// FromNotation parses a human-entered move, reporting ok=false when
	// the text is not recognizable notation.
	FromNotation(text string) (a Action, ok bool)

	// ToJSONAction serializes a native action for the wire.
	ToJSONAction(a Action) (json.RawMessage, error)

	// LegalActions enumerates every action legal in the latest state of
	// the history.
	LegalActions(history []State) []Action
}
