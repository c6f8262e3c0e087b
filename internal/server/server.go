// Package server implements the network-facing half of a board game host:
// a TCP frontend accepting client connections, the per-seat connection
// handlers, and the session state machine they feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/boardhost/internal/core"
	hostdebug "github.com/dcrodman/boardhost/internal/core/debug"
	"github.com/dcrodman/boardhost/internal/game"
	"github.com/dcrodman/boardhost/internal/wire"
)

// declineReason is sent to connections that arrive while every seat is
// taken.
const declineReason = "Game in progress."

// Server hosts one game engine on one TCP address. It owns the listener,
// the session, and the per-connection goroutines; per-connection failures
// never escape their handler.
type Server struct {
	Address  string
	GameName string
	Engine   game.Engine
	Config   *core.Config
	Logger   *logrus.Logger
	// Recorder persists finished games; nil disables recording.
	Recorder Recorder

	session *Session
	socket  *net.TCPListener
	cancel  context.CancelFunc

	mu          sync.Mutex
	connections map[string]*conn
}

// Start initializes the session and opens a TCP socket for the host. A
// blocking loop for accepting client connections is spun off in its own
// goroutine and added to the WaitGroup. Cancelling the context or calling
// Stop shuts the server down.
func (s *Server) Start(ctx context.Context, wg *sync.WaitGroup) error {
	ctx, s.cancel = context.WithCancel(ctx)

	seed := s.Config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.session = NewSession(s.Engine, s.GameName, s.Logger, seed, s.Recorder)
	s.connections = make(map[string]*conn)

	socket, err := s.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %w", s.Address, err)
	}
	s.socket = socket

	wg.Add(2)
	go s.runSession(ctx, wg)
	go s.startBlockingLoop(ctx, socket, wg)

	return nil
}

// Stop triggers a deterministic shutdown: the accept loop, the session
// reset loop, and every connection handler are all signalled to exit.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.socket != nil {
		_ = s.socket.Close()
	}
}

// Addr returns the listener's resolved address, useful when the server was
// started on an ephemeral port.
func (s *Server) Addr() net.Addr {
	return s.socket.Addr()
}

// Session exposes the running session for the status endpoint.
func (s *Server) Session() *Session {
	return s.session
}

func (s *Server) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", s.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address %s: %w", s.Address, err)
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %w", err)
	}

	return socket, nil
}

// runSession drives the session's reset loop for the server's lifetime.
// The only non-cancellation way out is an engine contract violation, which
// is fatal to the whole server since no valid game can proceed without the
// engine.
func (s *Server) runSession(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	if err := s.session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.Errorf("[%s] session failed: %s", s.name(), err)
		s.Stop()
	}
}

// startBlockingLoop implements a connection handling loop that's purely
// responsible for accepting new connections and spinning off goroutines to
// handle them.
func (s *Server) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	s.Logger.Printf("[%s] waiting for connections on %v", s.name(), socket.Addr())

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			connection, err := socket.AcceptTCP()
			if err != nil {
				if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
					close(connections)
					return
				}
				s.Logger.Warnf("failed to accept connection: %s", err.Error())
				continue
			}

			connections <- connection
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection, ok := <-connections:
			if !ok {
				break handleLoop
			}
			clientWg.Add(1)
			go s.acceptClient(ctx, connection, clientWg)
		}
	}

	s.Logger.Infof("[%s] shutting down (waiting for connections to close)", s.name())
	_ = socket.Close()
	s.closeAllConnections()
	clientWg.Wait()
	s.Logger.Infof("[%s] exited", s.name())
}

// acceptClient wraps a fresh connection and runs its seat lifecycle,
// guaranteeing the socket is closed and deregistered no matter how the
// handler exits.
func (s *Server) acceptClient(ctx context.Context, connection *net.TCPConn, wg *sync.WaitGroup) {
	defer wg.Done()

	c := newConn(connection, hostdebug.Tracer{
		Logger:  s.Logger,
		Enabled: s.Config.Debugging.MessageLoggingEnabled,
	})
	s.addConn(c)
	defer s.closeConnectionAndRecover(c)

	s.Logger.Infof("[%s] accepted connection %s from %s", s.name(), c.id, c.IPAddr())
	s.serveSeat(ctx, c)
}

// closeConnectionAndRecover is the failsafe that catches any panics,
// disconnects the client, and removes it from the connection registry
// regardless of the state of the connection.
func (s *Server) closeConnectionAndRecover(c *conn) {
	if err := recover(); err != nil {
		s.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			c.IPAddr(), err, debug.Stack())
	}

	_ = c.Close()
	s.removeConn(c)

	s.Logger.Infof("[%s] disconnected client %s", s.name(), c.id)
}

// serveSeat claims a seat for the connection and pumps the seat's mailbox
// to the socket until the game ends for the seat, the connection dies, or
// the server shuts down. Every exit path returns the seat to the pool.
func (s *Server) serveSeat(ctx context.Context, c *conn) {
	pool := s.session.Pool()

	seat, ok := pool.TryAcquire()
	if !ok {
		// Expected back-pressure, not an error: more clients showed up
		// than the game has seats.
		s.Logger.Infof("[%s] declined connection %s: no free seats", s.name(), c.id)
		if err := c.Send(wire.Decline{Reason: declineReason}); err != nil {
			s.Logger.Warnf("[%s] failed to send decline to %s: %s", s.name(), c.id, err)
		}
		return
	}

	released := false
	defer func() {
		if !released {
			pool.Requeue(seat)
		}
	}()

	if err := c.Send(wire.Player{Seat: seat}); err != nil {
		s.Logger.Warnf("[%s] failed to assign seat %d to %s: %s", s.name(), seat, c.id, err)
		return
	}
	s.Logger.Infof("[%s] connection %s claimed seat %d", s.name(), c.id, seat)

	box := s.session.Mailbox(seat)
	for {
		delivery, err := box.Get(ctx)
		if err != nil {
			// Server shutdown; the deferred requeue returns the seat.
			return
		}

		if err := c.Send(delivery.Msg); err != nil {
			s.Logger.Warnf("[%s] seat %d send failed: %s", s.name(), seat, err)
			box.PutFront(delivery)
			return
		}

		if update, ok := delivery.Msg.(wire.Update); ok && update.Terminal() {
			// This seat's participation in the current game is over
			// regardless of the other seats' pace.
			pool.Release(seat)
			released = true
			return
		}

		if !delivery.AwaitReply {
			continue
		}

		if err := s.readReply(c, seat); err != nil {
			s.Logger.Warnf("[%s] seat %d reply read failed: %s", s.name(), seat, err)
			box.PutFront(delivery)
			return
		}
	}
}

// readReply blocks for exactly one frame from the acting seat and routes
// it into the session. Malformed frames are reported back to the seat as
// protocol errors and are not fatal; only transport failures return an
// error.
func (s *Server) readReply(c *conn, seat int) error {
	frame, err := c.ReadFrame()
	if err != nil {
		var decodeErr *wire.DecodeError
		if errors.As(err, &decodeErr) {
			s.session.ReportProtocolError(seat, decodeErr.Frame)
			return nil
		}
		return err
	}

	msg, err := wire.Unmarshal(frame)
	if err != nil {
		s.session.ReportProtocolError(seat, frame)
		return nil
	}

	action, ok := msg.(wire.Action)
	if !ok {
		s.session.ReportProtocolError(seat, frame)
		return nil
	}

	if err := s.session.HandleAction(seat, action.Payload); err != nil {
		var illegalErr *game.IllegalActionError
		var protocolErr *game.ProtocolError
		switch {
		case errors.As(err, &illegalErr):
			s.Logger.Infof("[%s] rejected illegal action from seat %d", s.name(), seat)
		case errors.As(err, &protocolErr):
			s.Logger.Infof("[%s] rejected malformed action from seat %d", s.name(), seat)
		default:
			// Engine contract violation mid-game.
			return err
		}
	}
	return nil
}

func (s *Server) addConn(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[c.id] = c
}

func (s *Server) removeConn(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, c.id)
}

// closeAllConnections unblocks any handler stuck in a socket read during
// shutdown.
func (s *Server) closeAllConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.connections {
		_ = c.Close()
	}
}

func (s *Server) name() string {
	return strings.ToUpper(s.GameName)
}
