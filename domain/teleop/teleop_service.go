package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	customlog "github.com/open-teleop/mission-control/pkg/log"
)

// PoseStore is the device side record of robot positions.
type PoseStore interface {
	Lookup
	UpdatePose(id string, p Position, seq uint64) error
}

// TeleopService is the device side authority. It hands out one DeviceSession
// per robot and applies every command to the authoritative state.
type TeleopService struct {
	store     PoseStore
	arena     func() Arena
	leases    *LeaseManager
	publisher StatePublisher
	logger    customlog.Logger
}

// NewTeleopService creates a new teleop service instance. arena is read on
// every Attach so config updates apply to new sessions. publisher may be nil.
func NewTeleopService(store PoseStore, arena func() Arena, leases *LeaseManager, publisher StatePublisher, logger customlog.Logger) *TeleopService {
	if arena == nil {
		arena = DefaultArena
	}
	if leases == nil {
		leases = NewLeaseManager()
	}
	return &TeleopService{
		store:     store,
		arena:     arena,
		leases:    leases,
		publisher: publisher,
		logger:    logger,
	}
}

// Busy reports whether robotID is already driven by another session.
func (s *TeleopService) Busy(robotID string) bool {
	return s.leases.Held(robotID)
}

// Leases exposes the lease table for diagnostics.
func (s *TeleopService) Leases() *LeaseManager {
	return s.leases
}

// Attach leases robotID and loads its authoritative state.
func (s *TeleopService) Attach(ctx context.Context, robotID string) (*DeviceSession, error) {
	arena := s.arena()
	if err := arena.Validate(); err != nil {
		return nil, err
	}

	holder := uuid.NewString()
	release, err := s.leases.Acquire(robotID, holder)
	if err != nil {
		return nil, err
	}

	device, err := s.store.GetDevice(ctx, robotID)
	if err != nil {
		release()
		return nil, err
	}

	device.Arena = arena

	ds := &DeviceSession{
		id:      holder,
		device:  device,
		state:   NewDeviceState(arena, device.Position),
		seq:     device.Seq,
		svc:     s,
		release: release,
		logger:  s.logger.WithFields(map[string]interface{}{"robot": robotID, "session": holder[:8]}),
	}
	s.logger.Infof("Robot %s attached to session %s", robotID, holder)
	return ds, nil
}

// DeviceSession is the device side of one control channel. It is used by
// the connection's read loop only.
type DeviceSession struct {
	id      string
	device  Device
	state   *DeviceState
	seq     uint64
	svc     *TeleopService
	logger  customlog.Logger
	release func()

	releaseOnce sync.Once
	released    bool
}

// ID returns the session (lease holder) id.
func (d *DeviceSession) ID() string { return d.id }

// Device returns the robot attributes loaded at attach time.
func (d *DeviceSession) Device() Device { return d.device }

// Snapshot returns the full state message sent when a connection opens.
func (d *DeviceSession) Snapshot() Message {
	return SnapshotMessage(d.seq, d.state.Snapshot())
}

// Handle applies one inbound message and returns the reply.
func (d *DeviceSession) Handle(m Message) (Message, error) {
	if d.released {
		return Message{}, ErrSessionClosed
	}

	switch m.Type {
	case MessageSync:
		return d.Snapshot(), nil
	case MessageCommand:
	default:
		return ErrorMessage(fmt.Errorf("unsupported message type %q", m.Type)), nil
	}

	if !m.Direction.Valid() {
		d.logger.Debugf("Rejecting direction %q", m.Direction)
		return ErrorMessage(fmt.Errorf("%w: %q", ErrUnknownDirection, m.Direction)), nil
	}

	pos := d.state.Apply(m.Direction)
	d.seq++

	if err := d.svc.store.UpdatePose(d.device.ID, pos, d.seq); err != nil {
		d.logger.Warnf("Failed to record pose: %v", err)
	}

	if d.svc.publisher != nil {
		event := StateEvent{
			RobotID:   d.device.ID,
			SessionID: d.id,
			Direction: m.Direction,
			Seq:       d.seq,
			X:         pos.X,
			Y:         pos.Y,
			Timestamp: time.Now().UnixNano(),
		}
		if err := d.svc.publisher.PublishState(event); err != nil {
			d.logger.Warnf("Failed to publish state event seq=%d: %v", d.seq, err)
		}
	}

	return StateMessage(m.Direction, d.seq, pos), nil
}

// Release frees the device lease. Safe to call more than once.
func (d *DeviceSession) Release() {
	d.releaseOnce.Do(func() {
		d.released = true
		d.release()
		d.logger.Infof("Session released")
	})
}
