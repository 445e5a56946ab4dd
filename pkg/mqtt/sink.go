package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/open-teleop/mission-control/domain/teleop"
)

// Publisher is the subset of Client used by StateSink.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

var _ Publisher = (*Client)(nil)

// StatePayload is the retained JSON body of a robot state topic.
type StatePayload struct {
	RobotID   string           `json:"robot_id"`
	Direction teleop.Direction `json:"direction"`
	Seq       uint64           `json:"seq"`
	X         int              `json:"x"`
	Y         int              `json:"y"`
	Timestamp int64            `json:"timestamp"`
}

// StateSink publishes the latest state of every robot as a retained message,
// so observers that subscribe late receive the current position.
type StateSink struct {
	publisher Publisher
	topics    Topics
	qos       byte
}

// NewStateSink creates a sink publishing under topics with qos.
func NewStateSink(publisher Publisher, topics Topics, qos byte) *StateSink {
	return &StateSink{publisher: publisher, topics: topics, qos: qos}
}

// Name implements processing.Sink.
func (s *StateSink) Name() string { return "mqtt" }

// PublishState implements processing.Sink.
func (s *StateSink) PublishState(event teleop.StateEvent) error {
	payload, err := json.Marshal(StatePayload{
		RobotID:   event.RobotID,
		Direction: event.Direction,
		Seq:       event.Seq,
		X:         event.X,
		Y:         event.Y,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal state payload: %w", err)
	}
	return s.publisher.Publish(s.topics.RobotState(event.RobotID), payload, s.qos, true)
}
