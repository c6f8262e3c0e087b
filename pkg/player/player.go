// Package player provides the built-in player implementations usable with
// any game engine: an interactive human prompt and a uniform random
// strategy. Both keep their own compact history so decisions never depend
// on host-side state.
package player

import (
	"encoding/json"
	"sync"

	"github.com/dcrodman/boardhost/internal/game"
)

// history is the compact state sequence a player maintains from the
// updates it receives.
type history struct {
	mu     sync.Mutex
	states []game.State
}

func (h *history) append(s game.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, s)
}

func (h *history) snapshot() []game.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	states := make([]game.State, len(h.states))
	copy(states, h.states)
	return states
}

// base carries the engine-backed behavior shared by every player type.
type base struct {
	engine  game.Engine
	history history
}

func (b *base) Update(state json.RawMessage) error {
	compact, err := b.engine.ToCompactState(state)
	if err != nil {
		return err
	}
	b.history.append(compact)
	return nil
}

func (b *base) Display(state, lastAction json.RawMessage) string {
	return b.engine.Display(state, lastAction)
}

func (b *base) WinnerMessage(winners json.RawMessage) string {
	return b.engine.WinnerMessage(winners)
}
