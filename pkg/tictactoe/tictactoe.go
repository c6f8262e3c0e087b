// Package tictactoe is a complete game.Engine implementation, small enough
// to read in one sitting but exercising every part of the host contract:
// legality, transition, termination, scoring, notation, and display.
package tictactoe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dcrodman/boardhost/internal/game"
)

// State is one tic-tac-toe position. Board cells hold 0 (empty) or the
// seat that claimed them; Player is the seat to act, 0 once the game has
// ended; Previous is the seat that produced this state.
type State struct {
	Board    [9]int `json:"board"`
	Player   int    `json:"player"`
	Previous int    `json:"previous"`
}

// Action claims one cell, numbered 1 through 9 left to right, top to
// bottom.
type Action struct {
	Position int `json:"position"`
}

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// Engine implements game.Engine for two-player tic-tac-toe.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) NumPlayers() int { return 2 }

func (e *Engine) StartingState() game.State {
	return &State{Player: 1}
}

func (e *Engine) ToJSONState(s game.State) (json.RawMessage, error) {
	return json.Marshal(s.(*State))
}

func (e *Engine) ToCompactState(raw json.RawMessage) (game.State, error) {
	state := &State{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return state, nil
}

func (e *Engine) ToCompactAction(raw json.RawMessage) (game.Action, error) {
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		return nil, fmt.Errorf("decoding action: %w", err)
	}
	return action, nil
}

func (e *Engine) IsLegal(history []game.State, a game.Action) bool {
	state := history[len(history)-1].(*State)
	action, ok := a.(Action)
	if !ok {
		return false
	}

	if state.Player == 0 {
		return false
	}
	if action.Position < 1 || action.Position > 9 {
		return false
	}
	return state.Board[action.Position-1] == 0
}

func (e *Engine) NextState(history []game.State, a game.Action) game.State {
	state := history[len(history)-1].(*State)
	action := a.(Action)

	next := &State{Board: state.Board, Previous: state.Player}
	next.Board[action.Position-1] = state.Player

	if winner(next.Board) == 0 && !full(next.Board) {
		next.Player = 3 - state.Player
	}
	return next
}

func (e *Engine) PreviousPlayer(s game.State) int {
	return s.(*State).Previous
}

func (e *Engine) IsEnded(history []game.State) bool {
	board := history[len(history)-1].(*State).Board
	return winner(board) != 0 || full(board)
}

func (e *Engine) WinValues(history []game.State) map[int]float64 {
	board := history[len(history)-1].(*State).Board
	switch winner(board) {
	case 1:
		return map[int]float64{1: 1, 2: 0}
	case 2:
		return map[int]float64{1: 0, 2: 1}
	default:
		return map[int]float64{1: 0.5, 2: 0.5}
	}
}

func (e *Engine) PointsValues(history []game.State) map[int]int {
	board := history[len(history)-1].(*State).Board
	points := map[int]int{1: 0, 2: 0}
	if w := winner(board); w != 0 {
		points[w] = 1
	}
	return points
}

func (e *Engine) Display(state, action json.RawMessage) string {
	s := &State{}
	if err := json.Unmarshal(state, s); err != nil {
		return fmt.Sprintf("<unrenderable state: %s>", err)
	}

	var b strings.Builder
	if len(action) > 0 && s.Previous != 0 {
		var a Action
		if err := json.Unmarshal(action, &a); err == nil {
			fmt.Fprintf(&b, "Seat %d played position %d.\n", s.Previous, a.Position)
		}
	}

	marks := [3]string{".", "X", "O"}
	for row := 0; row < 3; row++ {
		cells := make([]string, 3)
		for col := 0; col < 3; col++ {
			cells[col] = marks[s.Board[row*3+col]]
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}

	if s.Player != 0 {
		fmt.Fprintf(&b, "Seat %d to move.", s.Player)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) WinnerMessage(winners json.RawMessage) string {
	var values map[string]float64
	if err := json.Unmarshal(winners, &values); err != nil {
		return fmt.Sprintf("<unrenderable winners: %s>", err)
	}

	for seat, value := range values {
		if value == 1 {
			return fmt.Sprintf("Seat %s wins!", seat)
		}
	}
	return "The game is a draw."
}

func (e *Engine) FromNotation(text string) (game.Action, bool) {
	position, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || position < 1 || position > 9 {
		return nil, false
	}
	return Action{Position: position}, true
}

func (e *Engine) ToJSONAction(a game.Action) (json.RawMessage, error) {
	action, ok := a.(Action)
	if !ok {
		return nil, fmt.Errorf("not a tictactoe action: %T", a)
	}
	return json.Marshal(action)
}

func (e *Engine) LegalActions(history []game.State) []game.Action {
	state := history[len(history)-1].(*State)
	if state.Player == 0 {
		return nil
	}

	var actions []game.Action
	for i, cell := range state.Board {
		if cell == 0 {
			actions = append(actions, Action{Position: i + 1})
		}
	}
	return actions
}

func winner(board [9]int) int {
	for _, line := range winLines {
		if board[line[0]] != 0 &&
			board[line[0]] == board[line[1]] &&
			board[line[1]] == board[line[2]] {
			return board[line[0]]
		}
	}
	return 0
}

func full(board [9]int) bool {
	for _, cell := range board {
		if cell == 0 {
			return false
		}
	}
	return true
}
