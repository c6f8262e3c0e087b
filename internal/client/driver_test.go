package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/boardhost/internal/wire"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// scriptedPlayer plays a predetermined sequence of actions and records what
// the driver feeds it.
type scriptedPlayer struct {
	actions []json.RawMessage

	updates [][]byte
	asked   int
}

func (p *scriptedPlayer) Update(state json.RawMessage) error {
	p.updates = append(p.updates, append([]byte(nil), state...))
	return nil
}

func (p *scriptedPlayer) Display(state, lastAction json.RawMessage) string {
	return "board"
}

func (p *scriptedPlayer) GetAction() (json.RawMessage, error) {
	action := p.actions[p.asked%len(p.actions)]
	p.asked++
	return action, nil
}

func (p *scriptedPlayer) WinnerMessage(winners json.RawMessage) string {
	return "game over"
}

// scriptedHost runs f against the host side of a single accepted connection
// and reports any failure after the driver finishes.
type scriptedHost struct {
	t    *testing.T
	addr string
	done chan error
}

func newScriptedHost(t *testing.T, f func(enc *wire.Encoder, dec *wire.Decoder) error) *scriptedHost {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to open host listener: %s", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	h := &scriptedHost{t: t, addr: listener.Addr().String(), done: make(chan error, 1)}
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			h.done <- err
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
		h.done <- f(wire.NewEncoder(conn), wire.NewDecoder(conn))
	}()
	return h
}

func (h *scriptedHost) wait() {
	h.t.Helper()
	select {
	case err := <-h.done:
		if err != nil {
			h.t.Fatalf("host script failed: %s", err)
		}
	case <-time.After(5 * time.Second):
		h.t.Fatal("host script did not finish")
	}
}

func expectAction(dec *wire.Decoder, want string) error {
	msg, err := dec.Decode()
	if err != nil {
		return err
	}
	action, ok := msg.(wire.Action)
	if !ok {
		return fmt.Errorf("want wire.Action, got %T", msg)
	}
	if string(action.Payload) != want {
		return fmt.Errorf("want action %s, got %s", want, action.Payload)
	}
	return nil
}

func TestDriver_PlaysWhenItHoldsTheActingSeat(t *testing.T) {
	player := &scriptedPlayer{actions: []json.RawMessage{json.RawMessage(`{"position":5}`)}}

	host := newScriptedHost(t, func(enc *wire.Encoder, dec *wire.Decoder) error {
		if err := enc.Encode(wire.Player{Seat: 1}); err != nil {
			return err
		}
		if err := enc.Encode(wire.Update{State: json.RawMessage(`{"player":1}`)}); err != nil {
			return err
		}
		if err := expectAction(dec, `{"position":5}`); err != nil {
			return err
		}
		return enc.Encode(wire.Update{
			State:   json.RawMessage(`{"player":0}`),
			Winners: json.RawMessage(`{"1":1,"2":0}`),
			Points:  json.RawMessage(`{"1":1,"2":0}`),
		})
	})

	var output bytes.Buffer
	driver := &Driver{Address: host.addr, Player: player, Logger: testLogger(), Output: &output}
	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned an unexpected error: %s", err)
	}
	host.wait()

	if driver.Seat() != 1 {
		t.Errorf("Seat() want 1, got %d", driver.Seat())
	}
	if len(player.updates) != 2 {
		t.Errorf("player should have seen 2 updates, got %d", len(player.updates))
	}
	if player.asked != 1 {
		t.Errorf("player should have been asked for 1 action, got %d", player.asked)
	}
	if !strings.Contains(output.String(), "game over") {
		t.Errorf("output should contain the winner message, got %q", output.String())
	}
}

func TestDriver_WaitsWhenAnotherSeatActs(t *testing.T) {
	player := &scriptedPlayer{actions: []json.RawMessage{json.RawMessage(`{"position":1}`)}}

	host := newScriptedHost(t, func(enc *wire.Encoder, dec *wire.Decoder) error {
		if err := enc.Encode(wire.Player{Seat: 2}); err != nil {
			return err
		}
		if err := enc.Encode(wire.Update{State: json.RawMessage(`{"player":1}`)}); err != nil {
			return err
		}
		return enc.Encode(wire.Update{
			State:   json.RawMessage(`{"player":0}`),
			Winners: json.RawMessage(`{"1":0.5,"2":0.5}`),
		})
	})

	driver := &Driver{Address: host.addr, Player: player, Logger: testLogger(), Output: io.Discard}
	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned an unexpected error: %s", err)
	}
	host.wait()

	if player.asked != 0 {
		t.Errorf("player should never have been asked to act, got %d requests", player.asked)
	}
}

func TestDriver_ResubmitsAfterARejection(t *testing.T) {
	player := &scriptedPlayer{actions: []json.RawMessage{
		json.RawMessage(`{"position":0}`),
		json.RawMessage(`{"position":5}`),
	}}

	host := newScriptedHost(t, func(enc *wire.Encoder, dec *wire.Decoder) error {
		if err := enc.Encode(wire.Player{Seat: 1}); err != nil {
			return err
		}
		if err := enc.Encode(wire.Update{State: json.RawMessage(`{"player":1}`)}); err != nil {
			return err
		}
		if err := expectAction(dec, `{"position":0}`); err != nil {
			return err
		}
		if err := enc.Encode(wire.Illegal{Action: json.RawMessage(`{"position":0}`)}); err != nil {
			return err
		}
		if err := expectAction(dec, `{"position":5}`); err != nil {
			return err
		}
		return enc.Encode(wire.Update{
			State:   json.RawMessage(`{"player":0}`),
			Winners: json.RawMessage(`{"1":1,"2":0}`),
		})
	})

	driver := &Driver{Address: host.addr, Player: player, Logger: testLogger(), Output: io.Discard}
	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned an unexpected error: %s", err)
	}
	host.wait()

	if player.asked != 2 {
		t.Errorf("player should have been asked twice, got %d", player.asked)
	}
}

func TestDriver_DeclineEndsTheRunGracefully(t *testing.T) {
	player := &scriptedPlayer{}

	host := newScriptedHost(t, func(enc *wire.Encoder, dec *wire.Decoder) error {
		return enc.Encode(wire.Decline{Reason: "Game in progress."})
	})

	var output bytes.Buffer
	driver := &Driver{Address: host.addr, Player: player, Logger: testLogger(), Output: &output}
	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("Run() should treat a decline as graceful, got: %s", err)
	}
	host.wait()

	if driver.DeclineReason() != "Game in progress." {
		t.Errorf("DeclineReason() want %q, got %q", "Game in progress.", driver.DeclineReason())
	}
	if !strings.Contains(output.String(), "Game in progress.") {
		t.Errorf("output should contain the decline reason, got %q", output.String())
	}
}

func TestDriver_CancellationStopsTheRun(t *testing.T) {
	player := &scriptedPlayer{}

	host := newScriptedHost(t, func(enc *wire.Encoder, dec *wire.Decoder) error {
		if err := enc.Encode(wire.Player{Seat: 1}); err != nil {
			return err
		}
		// Hold the connection open without sending anything further.
		_, _ = dec.ReadFrame()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	driver := &Driver{Address: host.addr, Player: player, Logger: testLogger(), Output: io.Discard}
	if err := driver.Run(ctx); err == nil {
		t.Error("Run() should report the cancellation")
	}
}
