package processing

import (
	"encoding/json"

	"github.com/open-teleop/mission-control/domain/teleop"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

// LoggingSink logs every state event at debug level.
type LoggingSink struct {
	logger customlog.Logger
}

// NewLoggingSink creates a new logging sink
func NewLoggingSink(logger customlog.Logger) *LoggingSink {
	return &LoggingSink{logger: logger}
}

// Name implements Sink.
func (h *LoggingSink) Name() string { return "log" }

// PublishState implements Sink.
func (h *LoggingSink) PublishState(event teleop.StateEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.logger.Debugf("State event on %s: %s", StateTopic(event.RobotID), data)
	return nil
}
