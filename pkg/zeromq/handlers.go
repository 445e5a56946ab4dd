package zeromq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

const lookupTimeout = 2 * time.Second

// ConfigHandler handles CONFIG_REQUEST messages
type ConfigHandler struct {
	current func() *config.Config
	logger  customlog.Logger
}

// NewConfigHandler creates a handler answering with the config returned by current
func NewConfigHandler(current func() *config.Config, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{current: current, logger: logger}
}

// HandleMessage returns a CONFIG_RESPONSE with the current configuration
func (h *ConfigHandler) HandleMessage(msg ZeroMQMessage) ([]byte, error) {
	cfg := h.current()
	if cfg == nil {
		return nil, fmt.Errorf("no operational configuration loaded")
	}

	h.logger.Debugf("Processing configuration request")
	return NewEnvelope(MsgTypeConfigResponse, cfg)
}

// RobotRequest is the data of a ROBOT_REQUEST message
type RobotRequest struct {
	RobotID string `json:"robot_id"`
}

// RobotResponse is the data of a ROBOT_RESPONSE message
type RobotResponse struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Model string       `json:"model"`
	X     int          `json:"x"`
	Y     int          `json:"y"`
	Seq   uint64       `json:"seq"`
	Arena teleop.Arena `json:"arena"`
}

// RobotHandler answers ROBOT_REQUEST lookups for gateway processes
type RobotHandler struct {
	lookup teleop.Lookup
	logger customlog.Logger
}

// NewRobotHandler creates a new handler for robot lookups
func NewRobotHandler(lookup teleop.Lookup, logger customlog.Logger) *RobotHandler {
	return &RobotHandler{lookup: lookup, logger: logger}
}

// HandleMessage returns the robot attributes, or an error for unknown ids
func (h *RobotHandler) HandleMessage(msg ZeroMQMessage) ([]byte, error) {
	var req RobotRequest
	if len(msg.Data) == 0 {
		return nil, fmt.Errorf("%w: ROBOT_REQUEST without data", ErrInvalidMessage)
	}
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if req.RobotID == "" {
		return nil, fmt.Errorf("%w: missing robot_id", ErrInvalidMessage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	device, err := h.lookup.GetDevice(ctx, req.RobotID)
	if err != nil {
		return nil, err
	}

	h.logger.Debugf("Answering robot request for %s", req.RobotID)
	return NewEnvelope(MsgTypeRobotResponse, RobotResponse{
		ID:    device.ID,
		Name:  device.Name,
		Model: device.Model,
		X:     device.Position.X,
		Y:     device.Position.Y,
		Seq:   device.Seq,
		Arena: device.Arena,
	})
}
