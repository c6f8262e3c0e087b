package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/boardhost/internal/core/data"
	"github.com/dcrodman/boardhost/internal/game"
	"github.com/dcrodman/boardhost/internal/wire"
)

// Recorder persists the outcome of a finished game. Recording is
// best-effort: failures are logged by the session and never interrupt play.
type Recorder interface {
	RecordGame(record *data.GameRecord) error
}

// Session is the state machine order of a board game host: it owns the
// append-only history, serializes all action processing, and fans state
// updates out to the per-seat mailboxes. Connection handlers never touch
// the history directly.
type Session struct {
	engine   game.Engine
	gameName string
	logger   *logrus.Logger
	recorder Recorder

	pool  *SeatPool
	boxes map[int]*Mailbox

	mu        sync.Mutex
	history   []game.State
	games     int
	startedAt time.Time
}

// NewSession creates a session for one engine. seed drives the seat
// shuffle performed at every reset; recorder may be nil to disable
// finished-game records.
func NewSession(engine game.Engine, gameName string, logger *logrus.Logger, seed int64, recorder Recorder) *Session {
	s := &Session{
		engine:   engine,
		gameName: gameName,
		logger:   logger,
		recorder: recorder,
		pool:     NewSeatPool(engine.NumPlayers(), seed),
		boxes:    make(map[int]*Mailbox),
	}
	for seat := 1; seat <= engine.NumPlayers(); seat++ {
		s.boxes[seat] = NewMailbox()
	}
	return s
}

// Pool exposes the seat pool shared with the connection handlers.
func (s *Session) Pool() *SeatPool { return s.pool }

// Mailbox returns the outbound queue for a seat.
func (s *Session) Mailbox(seat int) *Mailbox { return s.boxes[seat] }

// Run drives the reset loop: start a game, wait for every seat to be
// released, start the next one. It blocks until the context is cancelled
// or the engine violates its contract, which is the only fatal condition.
func (s *Session) Run(ctx context.Context) error {
	for {
		if err := s.reset(); err != nil {
			return fmt.Errorf("resetting game: %w", err)
		}
		if err := s.pool.AwaitAllReleased(ctx); err != nil {
			return err
		}
	}
}

// reset clears the history, seeds it with the engine's initial state, and
// broadcasts the opening update to every seat.
func (s *Session) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.engine.StartingState()
	if state == nil {
		return fmt.Errorf("engine %s produced a nil starting state", s.gameName)
	}

	s.history = s.history[:0]
	s.history = append(s.history, state)
	s.games++
	s.startedAt = time.Now()

	raw, err := s.engine.ToJSONState(state)
	if err != nil {
		return fmt.Errorf("serializing starting state: %w", err)
	}

	s.pool.Shuffle()
	s.logger.Infof("[SESSION] game %d dealt, awaiting %d seats", s.games, s.pool.Size())

	return s.fanOut(wire.Update{State: raw})
}

// HandleAction processes one reply frame from the acting seat. All
// concurrent callers serialize on the session mutex, keeping the history
// single-writer. The returned error is informational; any reportable
// failure has already been enqueued to the offending seat.
func (s *Session) HandleAction(seat int, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, err := s.engine.ToCompactAction(payload)
	if err != nil {
		s.boxes[seat].Put(Delivery{
			Msg:        wire.Error{Text: string(payload)},
			AwaitReply: true,
		})
		return &game.ProtocolError{Frame: payload, Err: err}
	}

	if !s.engine.IsLegal(s.history, action) {
		s.boxes[seat].Put(Delivery{
			Msg:        wire.Illegal{Action: payload},
			AwaitReply: true,
		})
		return &game.IllegalActionError{Seat: seat, Action: payload}
	}

	next := s.engine.NextState(s.history, action)
	s.history = append(s.history, next)

	raw, err := s.engine.ToJSONState(next)
	if err != nil {
		return fmt.Errorf("serializing state %d: %w", len(s.history), err)
	}

	update := wire.Update{
		State: raw,
		LastAction: &wire.LastAction{
			Player:   s.engine.PreviousPlayer(next),
			Action:   payload,
			Sequence: len(s.history),
		},
	}

	if s.engine.IsEnded(s.history) {
		winners, points, err := s.scores()
		if err != nil {
			return err
		}
		update.Winners = winners
		update.Points = points
		s.record(update)
	}

	return s.fanOut(update)
}

// ReportProtocolError sends an Error carrying the offending frame back to
// the seat that produced it. The seat is still expected to act, so the
// reply flag stays set.
func (s *Session) ReportProtocolError(seat int, frame []byte) {
	s.boxes[seat].Put(Delivery{
		Msg:        wire.Error{Text: string(frame)},
		AwaitReply: true,
	})
}

// fanOut enqueues an update to every seat, marking only the acting seat as
// owing a reply. Must be called with s.mu held.
func (s *Session) fanOut(update wire.Update) error {
	acting, err := wire.ActingSeat(update.State)
	if err != nil {
		return fmt.Errorf("routing update %d: %w", len(s.history), err)
	}
	if update.Terminal() {
		acting = 0
	}

	for seat := 1; seat <= s.pool.Size(); seat++ {
		s.boxes[seat].Put(Delivery{
			Msg:        update,
			AwaitReply: seat == acting,
		})
	}
	return nil
}

func (s *Session) scores() (winners, points json.RawMessage, err error) {
	winners, err = json.Marshal(s.engine.WinValues(s.history))
	if err != nil {
		return nil, nil, fmt.Errorf("serializing win values: %w", err)
	}
	points, err = json.Marshal(s.engine.PointsValues(s.history))
	if err != nil {
		return nil, nil, fmt.Errorf("serializing points values: %w", err)
	}
	return winners, points, nil
}

// record persists a finished game. Must be called with s.mu held.
func (s *Session) record(update wire.Update) {
	s.logger.Infof("[SESSION] game %d ended after %d states", s.games, len(s.history))
	if s.recorder == nil {
		return
	}

	rec := &data.GameRecord{
		Engine:    s.gameName,
		States:    len(s.history),
		Winners:   string(update.Winners),
		Points:    string(update.Points),
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
	}
	if err := s.recorder.RecordGame(rec); err != nil {
		s.logger.Warnf("[SESSION] failed to record game %d: %s", s.games, err)
	}
}

// SessionInfo is a point-in-time snapshot of the session for the status
// endpoint.
type SessionInfo struct {
	Game          int    `json:"game"`
	Engine        string `json:"engine"`
	HistoryLength int    `json:"history_length"`
	Seats         int    `json:"seats"`
	FreeSeats     int    `json:"free_seats"`
}

// Info snapshots the session state.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		Game:          s.games,
		Engine:        s.gameName,
		HistoryLength: len(s.history),
		Seats:         s.pool.Size(),
		FreeSeats:     s.pool.FreeSeats(),
	}
}

// History returns a copy of the current game's state sequence.
func (s *Session) History() []game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]game.State, len(s.history))
	copy(history, s.history)
	return history
}
