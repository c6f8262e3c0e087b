package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// delimiter terminates every frame on the wire.
var delimiter = []byte("\r\n")

// DecodeError indicates a frame that could not be turned into a Message.
// It is a protocol-level failure: the connection that produced it is still
// usable and the offending frame is retained for reporting.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding frame %q: %v", e.Frame, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// envelope is the JSON shape shared by every message variant.
type envelope struct {
	Type       Tag             `json:"type"`
	Message    json.RawMessage `json:"message,omitempty"`
	State      json.RawMessage `json:"state,omitempty"`
	LastAction *LastAction     `json:"last_action,omitempty"`
	Winners    json.RawMessage `json:"winners,omitempty"`
	Points     json.RawMessage `json:"points,omitempty"`
}

// Marshal encodes a single message without its frame delimiter.
func Marshal(m Message) ([]byte, error) {
	env := envelope{Type: m.tag()}

	switch msg := m.(type) {
	case Player:
		seat, err := json.Marshal(msg.Seat)
		if err != nil {
			return nil, err
		}
		env.Message = seat
	case Decline:
		reason, err := json.Marshal(msg.Reason)
		if err != nil {
			return nil, err
		}
		env.Message = reason
	case Error:
		text, err := json.Marshal(msg.Text)
		if err != nil {
			return nil, err
		}
		env.Message = text
	case Illegal:
		env.Message = msg.Action
	case Action:
		env.Message = msg.Payload
	case Update:
		env.State = msg.State
		env.LastAction = msg.LastAction
		env.Winners = msg.Winners
		env.Points = msg.Points
	default:
		return nil, fmt.Errorf("unencodable message type %T", m)
	}

	return json.Marshal(env)
}

// Unmarshal decodes one delimiter-stripped frame into its message variant.
// Failures are reported as *DecodeError.
func Unmarshal(frame []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &DecodeError{Frame: frame, Err: err}
	}

	switch env.Type {
	case TagPlayer:
		var seat int
		if err := json.Unmarshal(env.Message, &seat); err != nil {
			return nil, &DecodeError{Frame: frame, Err: err}
		}
		return Player{Seat: seat}, nil
	case TagDecline:
		var reason string
		if err := json.Unmarshal(env.Message, &reason); err != nil {
			return nil, &DecodeError{Frame: frame, Err: err}
		}
		return Decline{Reason: reason}, nil
	case TagError:
		var text string
		if err := json.Unmarshal(env.Message, &text); err != nil {
			return nil, &DecodeError{Frame: frame, Err: err}
		}
		return Error{Text: text}, nil
	case TagIllegal:
		return Illegal{Action: env.Message}, nil
	case TagAction:
		return Action{Payload: env.Message}, nil
	case TagUpdate:
		return Update{
			State:      env.State,
			LastAction: env.LastAction,
			Winners:    env.Winners,
			Points:     env.Points,
		}, nil
	default:
		return nil, &DecodeError{Frame: frame, Err: fmt.Errorf("unknown message tag %q", env.Type)}
	}
}

// Encoder writes delimited frames to a stream.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one message as a complete frame. The frame is assembled
// before writing so a message never hits the wire partially encoded.
func (e *Encoder) Encode(m Message) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}

	frame := make([]byte, 0, len(data)+len(delimiter))
	frame = append(frame, data...)
	frame = append(frame, delimiter...)

	for len(frame) > 0 {
		n, err := e.w.Write(frame)
		if err != nil {
			return fmt.Errorf("writing frame: %w", err)
		}
		frame = frame[n:]
	}
	return nil
}

// Decoder splits delimited frames out of a stream. Reads that deliver
// several complete frames at once are decoded in order; a partial frame
// stays buffered until the rest of it arrives.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// ReadFrame blocks until one complete frame is available and returns it
// with the delimiter stripped.
func (d *Decoder) ReadFrame() ([]byte, error) {
	line, err := d.r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(line, delimiter) {
		return nil, &DecodeError{Frame: line, Err: fmt.Errorf("frame not terminated by %q", delimiter)}
	}
	return line[:len(line)-len(delimiter)], nil
}

// Decode reads the next frame and unmarshals it into a Message.
func (d *Decoder) Decode() (Message, error) {
	frame, err := d.ReadFrame()
	if err != nil {
		return nil, err
	}
	return Unmarshal(frame)
}
