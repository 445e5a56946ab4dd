package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/mission-control/pkg/log"
	"github.com/open-teleop/mission-control/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.TeleopConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.TeleopConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, configService services.TeleopConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/teleop", h.handleGetTeleopConfig)
	apiGroup.Put("/teleop", h.handleUpdateTeleopConfig)

	logger.Infof("Registered teleop configuration API endpoints under /api/v1/config")
}

// handleGetTeleopConfig handles GET requests to retrieve the current teleop config YAML.
func (h *ConfigHandler) handleGetTeleopConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config/teleop")
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to get current teleop config YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	if len(yamlData) == 0 {
		h.logger.Warnf("Teleop config file is empty or has not been set yet.")
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Error: "Teleop configuration not found or not yet set.",
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

func isYAMLContentType(ct string) bool {
	switch ct {
	case "application/x-yaml", "application/yaml", "text/yaml":
		return true
	}
	return false
}

// handleUpdateTeleopConfig handles PUT requests to update the teleop config YAML.
func (h *ConfigHandler) handleUpdateTeleopConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling PUT request for /api/v1/config/teleop")

	if ct := c.Get(fiber.HeaderContentType); !isYAMLContentType(ct) {
		// Accepted anyway; curl and most scripts default to form encoding.
		h.logger.Warnf("Received PUT request with unexpected Content-Type: %s", ct)
	}

	newConfigYAML := c.Body()
	if len(newConfigYAML) == 0 {
		h.logger.Errorf("Received empty body in PUT request for teleop config update.")
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error: "Request body cannot be empty.",
		})
	}

	if err := h.configService.UpdateConfig(newConfigYAML); err != nil {
		h.logger.Errorf("Failed to update teleop configuration: %v", err)
		if errors.Is(err, services.ErrInvalidConfig) {
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Error: fmt.Sprintf("Configuration update failed: %v", err),
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: fmt.Sprintf("Internal server error during configuration update: %v", err),
		})
	}

	h.logger.Infof("Successfully processed PUT request to update teleop configuration.")
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Teleop configuration updated successfully. Active sessions keep their arena until they reconnect.",
	})
}
