package zeromq

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/mission-control/domain/teleop"
	fbstate "github.com/open-teleop/mission-control/pkg/flatbuffers/mission_control/state"
)

var toWireDirection = map[teleop.Direction]fbstate.Direction{
	teleop.Up:    fbstate.DirectionUp,
	teleop.Down:  fbstate.DirectionDown,
	teleop.Left:  fbstate.DirectionLeft,
	teleop.Right: fbstate.DirectionRight,
}

var fromWireDirection = map[fbstate.Direction]teleop.Direction{
	fbstate.DirectionUp:    teleop.Up,
	fbstate.DirectionDown:  teleop.Down,
	fbstate.DirectionLeft:  teleop.Left,
	fbstate.DirectionRight: teleop.Right,
}

// EncodeStateEvent serializes event as a StateEvent FlatBuffer
func EncodeStateEvent(event teleop.StateEvent) []byte {
	builder := flatbuffers.NewBuilder(128)

	robotID := builder.CreateString(event.RobotID)
	var sessionID flatbuffers.UOffsetT
	if event.SessionID != "" {
		sessionID = builder.CreateString(event.SessionID)
	}

	fbstate.StateEventStart(builder)
	fbstate.StateEventAddRobotId(builder, robotID)
	fbstate.StateEventAddDirection(builder, toWireDirection[event.Direction])
	fbstate.StateEventAddSeq(builder, event.Seq)
	fbstate.StateEventAddX(builder, int32(event.X))
	fbstate.StateEventAddY(builder, int32(event.Y))
	fbstate.StateEventAddTimestampNs(builder, event.Timestamp)
	if sessionID != 0 {
		fbstate.StateEventAddSessionId(builder, sessionID)
	}
	fbstate.FinishStateEventBuffer(builder, fbstate.StateEventEnd(builder))

	return builder.FinishedBytes()
}

// DecodeStateEvent parses a StateEvent FlatBuffer
func DecodeStateEvent(data []byte) (event teleop.StateEvent, err error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return event, fmt.Errorf("%w: state event too short (%d bytes)", ErrInvalidMessage, len(data))
	}
	// The generated accessors panic on corrupt offsets.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: corrupt state event: %v", ErrInvalidMessage, r)
		}
	}()

	fb := fbstate.GetRootAsStateEvent(data, 0)
	event = teleop.StateEvent{
		RobotID:   string(fb.RobotId()),
		SessionID: string(fb.SessionId()),
		Direction: fromWireDirection[fb.Direction()],
		Seq:       fb.Seq(),
		X:         int(fb.X()),
		Y:         int(fb.Y()),
		Timestamp: fb.TimestampNs(),
	}
	return event, nil
}
