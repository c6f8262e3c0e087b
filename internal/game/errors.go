package game

import (
	"encoding/json"
	"fmt"
)

// ProtocolError indicates a client frame that was syntactically or
// structurally invalid. It is reported back to the offending seat and is
// never fatal to the connection or the session.
type ProtocolError struct {
	Frame []byte
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in frame %q: %v", e.Frame, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IllegalActionError indicates a well-formed action rejected by the game
// rules. History is untouched and only the originating seat is notified.
type IllegalActionError struct {
	Seat   int
	Action json.RawMessage
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("illegal action %s from seat %d", e.Action, e.Seat)
}
