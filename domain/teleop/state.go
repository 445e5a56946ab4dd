package teleop

import "fmt"

// Position is a point in the arena.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Arena bounds every position and fixes the step applied per command.
type Arena struct {
	XMin int `json:"x_min"`
	XMax int `json:"x_max"`
	YMin int `json:"y_min"`
	YMax int `json:"y_max"`
	Step int `json:"step"`
}

// DefaultArena returns the reference arena.
func DefaultArena() Arena {
	return Arena{XMin: 0, XMax: 900, YMin: -10, YMax: 504, Step: 20}
}

// Validate rejects inverted bounds and non-positive steps.
func (a Arena) Validate() error {
	if a.XMin > a.XMax {
		return fmt.Errorf("invalid arena: x_min %d > x_max %d", a.XMin, a.XMax)
	}
	if a.YMin > a.YMax {
		return fmt.Errorf("invalid arena: y_min %d > y_max %d", a.YMin, a.YMax)
	}
	if a.Step <= 0 {
		return fmt.Errorf("invalid arena: step %d must be positive", a.Step)
	}
	return nil
}

// Clamp saturates each axis of p into the arena independently.
func (a Arena) Clamp(p Position) Position {
	return Position{X: clamp(p.X, a.XMin, a.XMax), Y: clamp(p.Y, a.YMin, a.YMax)}
}

// Contains reports whether p lies inside the arena.
func (a Arena) Contains(p Position) bool {
	return a.Clamp(p) == p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DeviceState holds one device position. It is not safe for concurrent use;
// the owning session serializes access.
type DeviceState struct {
	arena Arena
	pos   Position
}

// NewDeviceState returns a state at start, clamped into the arena.
func NewDeviceState(arena Arena, start Position) *DeviceState {
	return &DeviceState{arena: arena, pos: arena.Clamp(start)}
}

// Apply moves one step in d and saturates at the bounds. Up increases y.
// An unknown direction leaves the position unchanged.
func (s *DeviceState) Apply(d Direction) Position {
	next := s.pos
	switch d {
	case Up:
		next.Y += s.arena.Step
	case Down:
		next.Y -= s.arena.Step
	case Left:
		next.X -= s.arena.Step
	case Right:
		next.X += s.arena.Step
	default:
		return s.pos
	}
	s.pos = s.arena.Clamp(next)
	return s.pos
}

// Snapshot returns a copy of the current position.
func (s *DeviceState) Snapshot() Position {
	return s.pos
}

// Sync replaces the position with the device's authoritative one as is.
// Only local moves are clamped; the device copy wins even when it lies
// outside this arena.
func (s *DeviceState) Sync(p Position) Position {
	s.pos = p
	return s.pos
}

// Arena returns the bounds this state clamps to.
func (s *DeviceState) Arena() Arena {
	return s.arena
}
