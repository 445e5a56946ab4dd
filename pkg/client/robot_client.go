package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/mission-control/domain/robot"
	"github.com/open-teleop/mission-control/domain/teleop"
)

// DefaultRequestTimeout bounds a lookup when the context has no deadline.
const DefaultRequestTimeout = 5 * time.Second

// RobotClient fetches robot attributes from the controller's lookup API.
type RobotClient struct {
	baseURL string
	timeout time.Duration
}

var _ teleop.Lookup = (*RobotClient)(nil)

// NewRobotClient creates a client for the controller at baseURL, for
// example "http://localhost:8080".
func NewRobotClient(baseURL string, timeout time.Duration) *RobotClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &RobotClient{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// GetDevice implements teleop.Lookup. Every failure wraps
// teleop.ErrDeviceUnavailable.
func (c *RobotClient) GetDevice(ctx context.Context, id string) (teleop.Device, error) {
	if err := ctx.Err(); err != nil {
		return teleop.Device{}, fmt.Errorf("%w: %v", teleop.ErrDeviceUnavailable, err)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	var r robot.Robot
	agent := fiber.Get(c.baseURL + "/api/robots/" + url.PathEscape(id)).Timeout(timeout)
	code, _, errs := agent.Struct(&r)

	switch {
	case code == 0 && len(errs) > 0:
		return teleop.Device{}, fmt.Errorf("%w: %v", teleop.ErrDeviceUnavailable, errs[0])
	case code == http.StatusNotFound:
		return teleop.Device{}, fmt.Errorf("%w: robot %s not found", teleop.ErrDeviceUnavailable, id)
	case code != http.StatusOK:
		return teleop.Device{}, fmt.Errorf("%w: lookup returned status %d", teleop.ErrDeviceUnavailable, code)
	case len(errs) > 0:
		return teleop.Device{}, fmt.Errorf("%w: decode robot %s: %v", teleop.ErrDeviceUnavailable, id, errs[0])
	}
	return r.Device(), nil
}
