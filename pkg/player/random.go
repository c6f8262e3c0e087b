package player

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/dcrodman/boardhost/internal/client"
	"github.com/dcrodman/boardhost/internal/game"
)

// RandomPlayer selects uniformly at random from the legal actions in the
// current position.
type RandomPlayer struct {
	base
	rng *rand.Rand
}

// NewRandomPlayer creates a random player for the engine. seed 0 seeds
// from the wall clock; any other value makes the move sequence
// reproducible.
func NewRandomPlayer(engine game.Engine, seed int64) *RandomPlayer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomPlayer{
		base: base{engine: engine},
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (p *RandomPlayer) GetAction() (json.RawMessage, error) {
	history := p.history.snapshot()
	legal := p.engine.LegalActions(history)
	if len(legal) == 0 {
		return nil, fmt.Errorf("no legal actions in a history of %d states", len(history))
	}

	action := legal[p.rng.Intn(len(legal))]
	return p.engine.ToJSONAction(action)
}

var _ client.Player = (*RandomPlayer)(nil)
