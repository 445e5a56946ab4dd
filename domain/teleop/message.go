package teleop

// MessageType distinguishes control messages. The zero value is a command
// (client to device) or a state update (device to client).
type MessageType string

const (
	MessageCommand  MessageType = ""
	MessageSnapshot MessageType = "snapshot"
	MessageSync     MessageType = "sync"
	MessageError    MessageType = "error"
)

// Message is the JSON frame carried by the control channel. A bare
// {"direction":"up"} is both the legacy command and the legacy state update.
type Message struct {
	Type      MessageType `json:"type,omitempty"`
	Direction Direction   `json:"direction,omitempty"`
	Seq       uint64      `json:"seq,omitempty"`
	X         *int        `json:"x,omitempty"`
	Y         *int        `json:"y,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// CommandMessage builds the client to device command for d.
func CommandMessage(d Direction) Message {
	return Message{Direction: d}
}

// StateMessage builds a sequenced state update carrying the authoritative position.
func StateMessage(d Direction, seq uint64, p Position) Message {
	x, y := p.X, p.Y
	return Message{Direction: d, Seq: seq, X: &x, Y: &y}
}

// SnapshotMessage builds a full state resync.
func SnapshotMessage(seq uint64, p Position) Message {
	x, y := p.X, p.Y
	return Message{Type: MessageSnapshot, Seq: seq, X: &x, Y: &y}
}

// ErrorMessage builds a device side rejection.
func ErrorMessage(err error) Message {
	return Message{Type: MessageError, Error: err.Error()}
}

// Position returns the carried position, if both coordinates are present.
func (m Message) Position() (Position, bool) {
	if m.X == nil || m.Y == nil {
		return Position{}, false
	}
	return Position{X: *m.X, Y: *m.Y}, true
}

// StateEvent is published to remote observers after every applied command.
type StateEvent struct {
	RobotID   string    `json:"robot_id"`
	SessionID string    `json:"session_id,omitempty"`
	Direction Direction `json:"direction"`
	Seq       uint64    `json:"seq"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Timestamp int64     `json:"timestamp"`
}

// StatePublisher fans state events out to observers.
type StatePublisher interface {
	PublishState(event StateEvent) error
}
