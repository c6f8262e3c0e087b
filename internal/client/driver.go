// Package client implements the protocol driver used by an agent process
// to play one seat of a hosted board game. The driver speaks the wire
// protocol and delegates every decision and rendering concern to a Player.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/boardhost/internal/wire"
)

// Player supplies the decision-making and presentation for a single seat.
// One instance backs one driver; instances are never shared.
type Player interface {
	// Update feeds a new wire state into the player's own history.
	Update(state json.RawMessage) error

	// Display renders a state and the action that produced it.
	Display(state, lastAction json.RawMessage) string

	// GetAction produces the next action for this seat. It may block
	// arbitrarily long, e.g. on interactive input.
	GetAction() (json.RawMessage, error)

	// WinnerMessage renders the final win values.
	WinnerMessage(winners json.RawMessage) string
}

// Driver runs one strictly sequential receive/decide/send loop against a
// board game host.
type Driver struct {
	Address string
	Player  Player
	Logger  *logrus.Logger
	// Output receives rendered game text; defaults to stdout.
	Output io.Writer

	seat          int
	declineReason string
	conn          net.Conn
	enc           *wire.Encoder
	dec           *wire.Decoder
}

// Seat returns the seat assigned by the host, or 0 before assignment.
func (d *Driver) Seat() int { return d.seat }

// DeclineReason returns the host's reason when the session ended with a
// decline, and "" otherwise.
func (d *Driver) DeclineReason() string { return d.declineReason }

// Run connects to the host and processes messages until the game ends for
// this seat, the host declines the connection, or the context is
// cancelled. A decline is a graceful, non-error termination.
func (d *Driver) Run(ctx context.Context) error {
	if d.Output == nil {
		d.Output = os.Stdout
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return fmt.Errorf("connecting to host %s: %w", d.Address, err)
	}
	d.conn = conn
	defer conn.Close()

	// Socket closure is the only cancellation primitive the protocol has,
	// so translate context cancellation into one.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	d.enc = wire.NewEncoder(conn)
	d.dec = wire.NewDecoder(conn)

	for {
		msg, err := d.dec.Decode()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading from host: %w", err)
		}

		done, err := d.dispatch(msg)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// dispatch handles one server message, reporting whether the receive loop
// should stop.
func (d *Driver) dispatch(msg wire.Message) (bool, error) {
	switch m := msg.(type) {
	case wire.Player:
		d.seat = m.Seat
		d.Logger.Infof("[CLIENT] assigned seat %d", d.seat)
		return false, nil

	case wire.Decline:
		d.declineReason = m.Reason
		fmt.Fprintln(d.Output, m.Reason)
		return true, nil

	case wire.Error:
		fmt.Fprintln(d.Output, m.Text)
		d.Logger.Warnf("[CLIENT] host reported a protocol error: %s", m.Text)
		// The action was refused, so this seat is still expected to act.
		return false, d.submitAction()

	case wire.Illegal:
		fmt.Fprintln(d.Output, string(m.Action))
		d.Logger.Warnf("[CLIENT] host rejected an illegal action")
		return false, d.submitAction()

	case wire.Update:
		return d.handleUpdate(m)

	default:
		return false, fmt.Errorf("unexpected message from host: %T", msg)
	}
}

func (d *Driver) handleUpdate(update wire.Update) (bool, error) {
	if err := d.Player.Update(update.State); err != nil {
		return false, fmt.Errorf("updating player state: %w", err)
	}

	var lastAction json.RawMessage
	if update.LastAction != nil {
		lastAction = update.LastAction.Action
	}
	fmt.Fprintln(d.Output, d.Player.Display(update.State, lastAction))

	if update.Terminal() {
		fmt.Fprintln(d.Output, d.Player.WinnerMessage(update.Winners))
		return true, nil
	}

	acting, err := wire.ActingSeat(update.State)
	if err != nil {
		return false, err
	}
	if acting == d.seat {
		return false, d.submitAction()
	}
	return false, nil
}

// submitAction asks the Player for a decision and transmits it. The Player
// owns resubmission policy; the driver just asks again whenever the host
// refuses a frame.
func (d *Driver) submitAction() error {
	payload, err := d.Player.GetAction()
	if err != nil {
		return fmt.Errorf("getting action from player: %w", err)
	}
	if err := d.enc.Encode(wire.Action{Payload: payload}); err != nil {
		return fmt.Errorf("sending action: %w", err)
	}
	return nil
}
