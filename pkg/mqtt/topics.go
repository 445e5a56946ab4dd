package mqtt

import "fmt"

// Topics builds the topic names under a configured prefix.
//
//	topics := mqtt.Topics{Prefix: "mission-control"}
//	topics.RobotState("1") // "mission-control/robot/1/state"
type Topics struct {
	Prefix string
}

// RobotState returns the retained state topic of one robot.
func (t Topics) RobotState(robotID string) string {
	return fmt.Sprintf("%s/robot/%s/state", t.Prefix, robotID)
}

// AllRobotStates returns a subscription filter matching every robot state topic.
func (t Topics) AllRobotStates() string {
	return t.Prefix + "/robot/+/state"
}

// SystemStatus returns the controller online/offline status topic.
func (t Topics) SystemStatus() string {
	return t.Prefix + "/system/status"
}
