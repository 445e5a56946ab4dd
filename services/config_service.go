package services

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

// ErrInvalidConfig wraps parse and validation failures of a submitted config.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigPublisher defines the interface for publishing configuration updates.
// This avoids a direct dependency on the concrete ZeroMQ publisher.
type ConfigPublisher interface {
	// PublishConfigUpdate sends the full configuration to subscribers.
	PublishConfigUpdate(cfg *config.Config) error
	PublishConfigUpdatedNotification(cfg *config.Config) error
}

// ConfigListener is called with every successfully applied configuration.
type ConfigListener func(cfg *config.Config)

// TeleopConfigService defines the interface for managing the operational teleop configuration.
type TeleopConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	Arena() teleop.Arena
	SetPublisher(p ConfigPublisher)
	AddListener(l ConfigListener)
}

// teleopConfigService implements the TeleopConfigService interface.
type teleopConfigService struct {
	operationalConfigPath string
	logger                customlog.Logger
	configPublisher       ConfigPublisher
	listeners             []ConfigListener
	currentConfig         *config.Config
	mu                    sync.RWMutex
}

// NewTeleopConfigService creates a new TeleopConfigService.
// Publisher can be set later via SetPublisher.
func NewTeleopConfigService(operationalConfigPath string, logger customlog.Logger) (TeleopConfigService, error) {
	if operationalConfigPath == "" {
		return nil, fmt.Errorf("operational configuration path cannot be empty")
	}
	if logger == nil {
		logger = customlog.Standard()
		logger.Warnf("No logger provided to TeleopConfigService, using default.")
	}

	service := &teleopConfigService{
		operationalConfigPath: operationalConfigPath,
		logger:                logger,
	}

	// A missing file is allowed; the config can be provided through the API.
	if err := service.LoadConfig(); err != nil {
		logger.Warnf("Initial load of operational config '%s' failed: %v. Service created, but config is nil.", operationalConfigPath, err)
		return service, nil
	}

	logger.Infof("TeleopConfigService initialized successfully for path: %s", operationalConfigPath)
	return service, nil
}

// LoadConfig reads the operational config file from disk and updates the currentConfig.
func (s *teleopConfigService) LoadConfig() error {
	s.mu.Lock()
	s.logger.Infof("Loading operational configuration from: %s", s.operationalConfigPath)
	cfg, err := config.LoadConfig(s.operationalConfigPath)
	if err != nil {
		s.currentConfig = nil
		s.mu.Unlock()
		s.logger.Errorf("Error loading operational config file '%s': %v", s.operationalConfigPath, err)
		return fmt.Errorf("error loading operational config file '%s': %w", s.operationalConfigPath, err)
	}
	s.currentConfig = cfg
	listeners := append([]ConfigListener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Infof("Successfully loaded operational configuration ID: %s, Version: %s, %d robots", cfg.ConfigID, cfg.Version, len(cfg.Fleet))
	for _, l := range listeners {
		l(cfg)
	}
	return nil
}

// GetCurrentConfig returns the currently loaded operational configuration.
// It's read-only; modifications should go through UpdateConfig.
func (s *teleopConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML returns the raw YAML of the operational config file.
func (s *teleopConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.operationalConfigPath
	s.mu.RUnlock()

	s.logger.Debugf("Reading raw operational configuration YAML from: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Errorf("Error reading operational config file '%s' for YAML export: %v", path, err)
		return nil, fmt.Errorf("error reading operational config file '%s': %w", path, err)
	}
	return data, nil
}

// Arena returns the arena of the current config, or the reference arena when
// nothing is loaded.
func (s *teleopConfigService) Arena() teleop.Arena {
	cfg := s.GetCurrentConfig()
	if cfg == nil {
		return teleop.DefaultArena()
	}
	return ArenaFromConfig(cfg)
}

// ArenaFromConfig converts the configured arena to the domain type.
func ArenaFromConfig(cfg *config.Config) teleop.Arena {
	a := cfg.ArenaValues()
	return teleop.Arena{XMin: a.XMin, XMax: a.XMax, YMin: a.YMin, YMax: a.YMax, Step: a.Step}
}

// UpdateConfig validates, persists, applies the new operational configuration, and publishes a notification.
// It takes the new configuration as a YAML byte slice.
func (s *teleopConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.logger.Infof("Attempting to update operational configuration from provided YAML")

	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		s.logger.Errorf("Rejected operational configuration: %v", err)
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s.mu.Lock()
	// Persist before applying so a write failure leaves the active config untouched.
	if err := s.persistConfigUnlocked(newConfigYAML); err != nil {
		s.mu.Unlock()
		return err
	}

	oldCfgID := "N/A"
	if s.currentConfig != nil {
		oldCfgID = s.currentConfig.ConfigID
	}
	s.currentConfig = newCfg
	publisher := s.configPublisher
	listeners := append([]ConfigListener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Infof("Successfully updated and persisted operational configuration. ID %s -> %s, Version: %s", oldCfgID, newCfg.ConfigID, newCfg.Version)

	for _, l := range listeners {
		l(newCfg)
	}

	if publisher != nil {
		go func() {
			if err := publisher.PublishConfigUpdate(newCfg); err != nil {
				s.logger.Warnf("Failed to publish config update: %v", err)
			}
			if err := publisher.PublishConfigUpdatedNotification(newCfg); err != nil {
				s.logger.Warnf("Failed to publish config update notification: %v", err)
			} else {
				s.logger.Debugf("Published config update notification")
			}
		}()
	} else {
		s.logger.Infof("ConfigPublisher not configured, skipping update notification.")
	}

	return nil
}

// persistConfigUnlocked writes the config file. Callers hold mu.
func (s *teleopConfigService) persistConfigUnlocked(yamlData []byte) error {
	s.logger.Infof("Persisting operational configuration to: %s", s.operationalConfigPath)
	if err := os.WriteFile(s.operationalConfigPath, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing operational config file '%s': %v", s.operationalConfigPath, err)
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	return nil
}

// SetPublisher allows injecting the ConfigPublisher after initialization.
func (s *teleopConfigService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configPublisher = p
	s.logger.Infof("ConfigPublisher injected into TeleopConfigService.")
}

// AddListener registers l for future loads and updates.
func (s *teleopConfigService) AddListener(l ConfigListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
