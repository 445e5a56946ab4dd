package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the bootstrap config file looked up in the config directory.
const BootstrapFileName = "controller_config.yaml"

// Bootstrap defaults applied to zero values.
const (
	DefaultHTTPPort     = 8080
	DefaultStateWorkers = 2
	DefaultQueueSize    = 256
	DefaultMQTTPort     = 1883
	DefaultTopicPrefix  = "mission-control"
)

// BootstrapConfig holds the initial configuration loaded from controller_config.yaml
type BootstrapConfig struct {
	Logging    LoggingConfig         `yaml:"logging"`
	Server     BootstrapServerConfig `yaml:"server"`
	ZeroMQ     ZeroMQBootstrap       `yaml:"zeromq"`
	MQTT       MQTTConfig            `yaml:"mqtt"`
	Data       DataConfig            `yaml:"data"`
	Processing ProcessingConfig      `yaml:"processing"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// BootstrapServerConfig holds HTTP server settings
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ZeroMQBootstrap holds ZeroMQ settings from bootstrap
type ZeroMQBootstrap struct {
	Enabled            bool   `yaml:"enabled"`
	RequestBindAddress string `yaml:"request_bind_address"`
	PublishBindAddress string `yaml:"publish_bind_address"`
}

// MQTTConfig holds the broker used to publish robot state to observers.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// ProcessingConfig sizes the state event pool
type ProcessingConfig struct {
	StateWorkers int `yaml:"state_workers"`
	QueueSize    int `yaml:"queue_size"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory            string `yaml:"directory"`
	TeleopConfigFilename string `yaml:"teleop_config_file"`
}

// TeleopConfigPath returns the full path of the operational config file.
func (d DataConfig) TeleopConfigPath() string {
	return filepath.Join(d.Directory, d.TeleopConfigFilename)
}

// LoadBootstrapConfig loads the bootstrap configuration from controller_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if err := bootstrapCfg.validate(); err != nil {
		return nil, err
	}
	bootstrapCfg.applyDefaults()

	return &bootstrapCfg, nil
}

func (c *BootstrapConfig) validate() error {
	if c.Data.Directory == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if c.Data.TeleopConfigFilename == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.teleop_config_file")
	}
	if c.ZeroMQ.Enabled {
		if c.ZeroMQ.RequestBindAddress == "" {
			return fmt.Errorf("missing required field in bootstrap config: zeromq.request_bind_address")
		}
		if c.ZeroMQ.PublishBindAddress == "" {
			return fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
		}
	}
	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			return fmt.Errorf("missing required field in bootstrap config: mqtt.host")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("invalid mqtt.qos %d in bootstrap config: must be 0, 1 or 2", c.MQTT.QoS)
		}
	}
	return nil
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = DefaultHTTPPort
	}
	if c.Processing.StateWorkers <= 0 {
		c.Processing.StateWorkers = DefaultStateWorkers
	}
	if c.Processing.QueueSize <= 0 {
		c.Processing.QueueSize = DefaultQueueSize
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = DefaultMQTTPort
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "mission-control"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultTopicPrefix
	}
}
