package zeromq

import (
	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
	"github.com/open-teleop/mission-control/pkg/processing"
)

// Publication topics
const (
	TopicConfigUpdate       = "configuration.update"
	TopicConfigNotification = "configuration.notification"
)

// Publisher is the PUB side of the service.
type Publisher interface {
	PublishMessage(topic string, message []byte) error
	PublishJSON(topic string, messageType string, data interface{}) error
}

var _ Publisher = (*ZeroMQService)(nil)

// ConfigPublisher publishes configuration updates to gateways
type ConfigPublisher struct {
	publisher Publisher
	logger    customlog.Logger
}

// NewConfigPublisher creates a new publisher for configuration updates
func NewConfigPublisher(publisher Publisher, logger customlog.Logger) *ConfigPublisher {
	return &ConfigPublisher{publisher: publisher, logger: logger}
}

// PublishConfigUpdate publishes the full configuration
func (p *ConfigPublisher) PublishConfigUpdate(cfg *config.Config) error {
	p.logger.Infof("Publishing configuration update (ID: %s)", cfg.ConfigID)
	return p.publisher.PublishJSON(TopicConfigUpdate, MsgTypeConfigResponse, cfg)
}

// PublishConfigUpdatedNotification publishes a notification that the config has been updated
func (p *ConfigPublisher) PublishConfigUpdatedNotification(cfg *config.Config) error {
	p.logger.Infof("Publishing configuration update notification (ID: %s)", cfg.ConfigID)

	notification := map[string]interface{}{
		"config_id":    cfg.ConfigID,
		"version":      cfg.Version,
		"last_updated": cfg.LastUpdated,
	}
	return p.publisher.PublishJSON(TopicConfigNotification, MsgTypeConfigUpdated, notification)
}

// StateSink publishes state events as FlatBuffers on the robot state topic
type StateSink struct {
	publisher Publisher
}

// NewStateSink creates a sink for the event pool
func NewStateSink(publisher Publisher) *StateSink {
	return &StateSink{publisher: publisher}
}

// Name implements processing.Sink
func (s *StateSink) Name() string { return "zeromq" }

// PublishState implements processing.Sink
func (s *StateSink) PublishState(event teleop.StateEvent) error {
	return s.publisher.PublishMessage(processing.StateTopic(event.RobotID), EncodeStateEvent(event))
}

// RegisterHandlers registers the request handlers and returns the config publisher
func RegisterHandlers(service *ZeroMQService, current func() *config.Config, lookup teleop.Lookup, logger customlog.Logger) *ConfigPublisher {
	service.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(current, logger))
	service.RegisterHandler(MsgTypeRobotRequest, NewRobotHandler(lookup, logger))

	logger.Infof("Registered ZeroMQ handlers for %s and %s", MsgTypeConfigRequest, MsgTypeRobotRequest)
	return NewConfigPublisher(service, logger)
}
