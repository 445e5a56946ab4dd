package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/mission-control/domain/teleop"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

// ControlPath is the route of the per-robot control channel.
const ControlPath = "/ws/robot/:id"

// RegisterControlRoutes registers the control channel endpoint. The handshake
// is refused with 404 for an unknown robot and 409 for a robot that is
// already driven by another session.
func RegisterControlRoutes(app *fiber.App, teleopService *teleop.TeleopService, lookup teleop.Lookup, logger customlog.Logger) {
	app.Get(ControlPath,
		func(c *fiber.Ctx) error {
			id := c.Params("id")
			if _, err := lookup.GetDevice(c.UserContext(), id); err != nil {
				logger.Warnf("Refusing control channel for robot %s: %v", id, err)
				return c.Status(http.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
			}
			if teleopService.Busy(id) {
				logger.Warnf("Refusing control channel for robot %s: already in use", id)
				return c.Status(http.StatusConflict).JSON(ErrorResponse{Error: teleop.ErrDeviceBusy.Error()})
			}
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			return c.Next()
		},
		websocket.New(func(conn *websocket.Conn) {
			ControlWebSocketHandler(conn, teleopService, logger)
		}),
	)
	logger.Infof("Registered control channel endpoint %s", ControlPath)
}

// ControlWebSocketHandler runs the device side of one control channel: it
// sends the snapshot, then answers every command with the resulting state.
func ControlWebSocketHandler(conn *websocket.Conn, teleopService *teleop.TeleopService, logger customlog.Logger) {
	robotID := conn.Params("id")
	logger = logger.WithField("robot", robotID)
	logger.Infof("Control WebSocket connected: %s", conn.RemoteAddr())

	ds, err := teleopService.Attach(context.Background(), robotID)
	if err != nil {
		// Lost a race with another handshake.
		logger.Warnf("Attach failed: %v", err)
		_ = conn.WriteJSON(teleop.ErrorMessage(err))
		return
	}
	defer ds.Release()

	if err := conn.WriteJSON(ds.Snapshot()); err != nil {
		logger.Errorf("Failed to send snapshot: %v", err)
		return
	}

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("Control WS read error: %v", err)
			} else if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
				logger.Infof("Control WS connection reset by peer.")
			} else {
				logger.Infof("Control WS connection closed: %v", err)
			}
			break
		}

		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text Control WS message type: %d", mt)
			continue
		}

		var in teleop.Message
		if err := json.Unmarshal(msg, &in); err != nil {
			logger.Warnf("Failed to unmarshal control message: %v. Message: %s", err, string(msg))
			if err := conn.WriteJSON(teleop.ErrorMessage(err)); err != nil {
				break
			}
			continue
		}

		reply, err := ds.Handle(in)
		if err != nil {
			logger.Errorf("Control message rejected: %v", err)
			break
		}
		if err := conn.WriteJSON(reply); err != nil {
			logger.Errorf("Failed to write reply seq=%d: %v", reply.Seq, err)
			break
		}
	}
	logger.Infof("Control WebSocket disconnected: %s", conn.RemoteAddr())
}
