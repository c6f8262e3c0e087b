package player

import (
	"encoding/json"

	"github.com/pterm/pterm"

	"github.com/dcrodman/boardhost/internal/client"
	"github.com/dcrodman/boardhost/internal/game"
)

// HumanPlayer prompts an interactive terminal user for each move. Notation
// and legality are validated locally against the player's own history, so
// only well-formed, legal actions are ever submitted to the host.
type HumanPlayer struct {
	base
}

func NewHumanPlayer(engine game.Engine) *HumanPlayer {
	return &HumanPlayer{base: base{engine: engine}}
}

// GetAction blocks on terminal input until the user enters a legal move.
// Blocking indefinitely here is fine: the host imposes no decision
// timeouts.
func (p *HumanPlayer) GetAction() (json.RawMessage, error) {
	prompt := pterm.DefaultInteractiveTextInput.WithDefaultText("Enter your action")

	for {
		notation, err := prompt.Show()
		if err != nil {
			return nil, err
		}

		action, ok := p.engine.FromNotation(notation)
		if !ok {
			pterm.Warning.Printfln("%q is not recognizable notation", notation)
			continue
		}
		if !p.engine.IsLegal(p.history.snapshot(), action) {
			pterm.Warning.Printfln("%q is not a legal move", notation)
			continue
		}

		return p.engine.ToJSONAction(action)
	}
}

var _ client.Player = (*HumanPlayer)(nil)
