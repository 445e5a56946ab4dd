package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Reference arena used when the operational config leaves a field unset.
const (
	DefaultArenaXMin = 0
	DefaultArenaXMax = 900
	DefaultArenaYMin = -10
	DefaultArenaYMax = 504
	DefaultArenaStep = 20
)

// Config represents the operational teleop configuration
type Config struct {
	Version     string        `yaml:"version" json:"version"`
	ConfigID    string        `yaml:"config_id" json:"config_id"`
	LastUpdated string        `yaml:"lastUpdated" json:"lastUpdated"`
	Arena       ArenaConfig   `yaml:"arena" json:"arena"`
	Fleet       []RobotConfig `yaml:"fleet" json:"fleet"`
}

// ArenaConfig bounds every robot position. A nil field takes the reference value.
type ArenaConfig struct {
	XMin *int `yaml:"x_min,omitempty" json:"x_min,omitempty"`
	XMax *int `yaml:"x_max,omitempty" json:"x_max,omitempty"`
	YMin *int `yaml:"y_min,omitempty" json:"y_min,omitempty"`
	YMax *int `yaml:"y_max,omitempty" json:"y_max,omitempty"`
	Step *int `yaml:"step,omitempty" json:"step,omitempty"`
}

// RobotConfig seeds one robot record
type RobotConfig struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Model string `yaml:"model" json:"model"`
	X     int    `yaml:"x" json:"x"`
	Y     int    `yaml:"y" json:"y"`
}

// ArenaValues is the arena with defaults applied.
type ArenaValues struct {
	XMin, XMax, YMin, YMax, Step int
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates operational YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required metadata, the arena and fleet ids.
func (c *Config) Validate() error {
	if c.ConfigID == "" || c.Version == "" {
		return fmt.Errorf("validation failed: missing required fields (config_id, version)")
	}

	a := c.ArenaValues()
	if a.XMin > a.XMax {
		return fmt.Errorf("validation failed: arena x_min %d greater than x_max %d", a.XMin, a.XMax)
	}
	if a.YMin > a.YMax {
		return fmt.Errorf("validation failed: arena y_min %d greater than y_max %d", a.YMin, a.YMax)
	}
	if a.Step <= 0 {
		return fmt.Errorf("validation failed: arena step must be positive, got %d", a.Step)
	}

	seen := make(map[string]struct{}, len(c.Fleet))
	for i, r := range c.Fleet {
		if r.ID == "" {
			return fmt.Errorf("validation failed: fleet[%d] has no id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("validation failed: duplicate robot id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// ArenaValues returns the arena with reference defaults for unset fields.
func (c *Config) ArenaValues() ArenaValues {
	return ArenaValues{
		XMin: valueOr(c.Arena.XMin, DefaultArenaXMin),
		XMax: valueOr(c.Arena.XMax, DefaultArenaXMax),
		YMin: valueOr(c.Arena.YMin, DefaultArenaYMin),
		YMax: valueOr(c.Arena.YMax, DefaultArenaYMax),
		Step: valueOr(c.Arena.Step, DefaultArenaStep),
	}
}

// GetRobot returns the fleet entry with the given id
func (c *Config) GetRobot(id string) (RobotConfig, bool) {
	for _, r := range c.Fleet {
		if r.ID == id {
			return r, true
		}
	}
	return RobotConfig{}, false
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
