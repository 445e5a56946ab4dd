package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/mission-control/domain/robot"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

// RobotHandler serves the robot lookup API.
type RobotHandler struct {
	registry *robot.Registry
	logger   customlog.Logger
}

// RegisterRobotRoutes registers GET /api/robots and GET /api/robots/:id.
func RegisterRobotRoutes(app *fiber.App, registry *robot.Registry, logger customlog.Logger) {
	h := &RobotHandler{registry: registry, logger: logger}

	group := app.Group("/api/robots")
	group.Get("/", h.handleList)
	group.Get("/:id", h.handleGet)

	logger.Infof("Registered robot lookup API endpoints under /api/robots")
}

func (h *RobotHandler) handleList(c *fiber.Ctx) error {
	robots := h.registry.List()
	return c.JSON(RobotListResponse{Robots: robots, Count: len(robots)})
}

func (h *RobotHandler) handleGet(c *fiber.Ctx) error {
	id := c.Params("id")
	r, err := h.registry.GetRobot(id)
	if err != nil {
		if errors.Is(err, robot.ErrRobotNotFound) {
			return c.Status(http.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorf("Robot lookup for %s failed: %v", id, err)
		return err
	}
	return c.JSON(r)
}
