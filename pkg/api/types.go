package api

import "github.com/open-teleop/mission-control/domain/robot"

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RobotListResponse is returned by GET /api/robots.
type RobotListResponse struct {
	Robots []robot.Robot `json:"robots"`
	Count  int           `json:"count"`
}
