package server

import (
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/dcrodman/boardhost/internal/core/debug"
	"github.com/dcrodman/boardhost/internal/wire"
)

// conn wraps one client socket with the frame codec and a short identifier
// for log correlation.
type conn struct {
	id     string
	socket net.Conn
	ipAddr string

	enc    *wire.Encoder
	dec    *wire.Decoder
	tracer debug.Tracer
}

func newConn(socket net.Conn, tracer debug.Tracer) *conn {
	addr := strings.Split(socket.RemoteAddr().String(), ":")

	return &conn{
		id:     uuid.NewString()[:8],
		socket: socket,
		ipAddr: addr[0],
		enc:    wire.NewEncoder(socket),
		dec:    wire.NewDecoder(socket),
		tracer: tracer,
	}
}

func (c *conn) IPAddr() string { return c.ipAddr }

// Send encodes and transmits a single message frame.
func (c *conn) Send(msg wire.Message) error {
	c.tracer.Trace(c.id, "send", msg)
	return c.enc.Encode(msg)
}

// ReadFrame blocks until the client's next complete frame arrives.
func (c *conn) ReadFrame() ([]byte, error) {
	frame, err := c.dec.ReadFrame()
	if err == nil {
		c.tracer.Trace(c.id, "recv", string(frame))
	}
	return frame, err
}

// Close the underlying socket.
func (c *conn) Close() error {
	return c.socket.Close()
}
