package robot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/config"
)

// ErrRobotNotFound is returned for an id that is not registered.
var ErrRobotNotFound = errors.New("robot not found")

// Robot is the device side record served by the lookup API.
type Robot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Seq   uint64 `json:"seq"`
	// Arena is the arena the robot is driven in.
	Arena teleop.Arena `json:"arena"`
}

// Device converts the record to the session lookup type.
func (r Robot) Device() teleop.Device {
	return teleop.Device{
		ID:       r.ID,
		Name:     r.Name,
		Model:    r.Model,
		Position: teleop.Position{X: r.X, Y: r.Y},
		Seq:      r.Seq,
		Arena:    r.Arena,
	}
}

// Registry is an in-memory robot table seeded from the operational config.
type Registry struct {
	mu     sync.RWMutex
	robots map[string]*Robot
	arena  teleop.Arena
}

var _ teleop.PoseStore = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{robots: make(map[string]*Robot), arena: teleop.DefaultArena()}
}

// LoadFromConfig adds fleet entries that are not registered yet, clamping
// their start position into arena. Known robots keep their live pose.
// arena is reported by every later lookup.
func (r *Registry) LoadFromConfig(fleet []config.RobotConfig, arena teleop.Arena) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.arena = arena

	added := 0
	for _, rc := range fleet {
		if existing, ok := r.robots[rc.ID]; ok {
			existing.Name = rc.Name
			existing.Model = rc.Model
			continue
		}
		p := arena.Clamp(teleop.Position{X: rc.X, Y: rc.Y})
		r.robots[rc.ID] = &Robot{ID: rc.ID, Name: rc.Name, Model: rc.Model, X: p.X, Y: p.Y}
		added++
	}
	return added
}

// GetRobot returns a copy of the robot with id.
func (r *Registry) GetRobot(id string) (Robot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rb, ok := r.robots[id]
	if !ok {
		return Robot{}, fmt.Errorf("%w: %s", ErrRobotNotFound, id)
	}
	out := *rb
	out.Arena = r.arena
	return out, nil
}

// List returns every robot ordered by id.
func (r *Registry) List() []Robot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Robot, 0, len(r.robots))
	for _, rb := range r.robots {
		cp := *rb
		cp.Arena = r.arena
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered robots.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.robots)
}

// UpdatePose records the authoritative position after a command.
func (r *Registry) UpdatePose(id string, p teleop.Position, seq uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rb, ok := r.robots[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRobotNotFound, id)
	}
	rb.X, rb.Y, rb.Seq = p.X, p.Y, seq
	return nil
}

// GetDevice implements teleop.Lookup.
func (r *Registry) GetDevice(ctx context.Context, id string) (teleop.Device, error) {
	rb, err := r.GetRobot(id)
	if err != nil {
		return teleop.Device{}, fmt.Errorf("%w: %v", teleop.ErrDeviceUnavailable, err)
	}
	return rb.Device(), nil
}
