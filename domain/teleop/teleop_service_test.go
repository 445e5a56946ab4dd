package teleop

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/open-teleop/mission-control/pkg/log"
)

type memStore struct {
	mu      sync.Mutex
	devices map[string]Device
}

func (m *memStore) GetDevice(ctx context.Context, id string) (Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return Device{}, ErrDeviceUnavailable
	}
	return d, nil
}

func (m *memStore) UpdatePose(id string, p Position, seq uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return errors.New("not found")
	}
	d.Position = p
	d.Seq = seq
	m.devices[id] = d
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []StateEvent
}

func (r *recordingPublisher) PublishState(e StateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func newTestService(t *testing.T) (*TeleopService, *memStore, *recordingPublisher) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := &memStore{devices: map[string]Device{
		"1": {ID: "1", Name: "Rover", Model: "R-100", Position: Position{895, 100}, Seq: 3},
	}}
	pub := &recordingPublisher{}
	svc := NewTeleopService(store, DefaultArena, NewLeaseManager(), pub, customlog.NewFromLogrus(logger))
	return svc, store, pub
}

func TestDeviceSessionAppliesCommands(t *testing.T) {
	svc, store, pub := newTestService(t)

	ds, err := svc.Attach(context.Background(), "1")
	require.NoError(t, err)
	defer ds.Release()

	assert.Equal(t, DefaultArena(), ds.Device().Arena)

	snap := ds.Snapshot()
	assert.Equal(t, MessageSnapshot, snap.Type)
	assert.Equal(t, uint64(3), snap.Seq)

	reply, err := ds.Handle(CommandMessage(Right))
	require.NoError(t, err)
	pos, ok := reply.Position()
	require.True(t, ok)
	assert.Equal(t, Position{900, 100}, pos)
	assert.Equal(t, uint64(4), reply.Seq)
	assert.Equal(t, Right, reply.Direction)

	stored, err := store.GetDevice(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, Position{900, 100}, stored.Position)
	assert.Equal(t, uint64(4), stored.Seq)

	require.Len(t, pub.events, 1)
	assert.Equal(t, StateEvent{
		RobotID:   "1",
		SessionID: ds.ID(),
		Direction: Right,
		Seq:       4,
		X:         900,
		Y:         100,
		Timestamp: pub.events[0].Timestamp,
	}, pub.events[0])
}

func TestDeviceSessionRejectsUnknownDirection(t *testing.T) {
	svc, _, pub := newTestService(t)

	ds, err := svc.Attach(context.Background(), "1")
	require.NoError(t, err)
	defer ds.Release()

	reply, err := ds.Handle(Message{Direction: "sideways"})
	require.NoError(t, err)
	assert.Equal(t, MessageError, reply.Type)
	assert.Contains(t, reply.Error, "unknown direction")
	assert.Empty(t, pub.events)

	reply, err = ds.Handle(Message{Type: MessageSync})
	require.NoError(t, err)
	assert.Equal(t, MessageSnapshot, reply.Type)
	pos, _ := reply.Position()
	assert.Equal(t, Position{895, 100}, pos)
}

func TestAttachIsExclusive(t *testing.T) {
	svc, _, _ := newTestService(t)

	ds, err := svc.Attach(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, svc.Busy("1"))

	_, err = svc.Attach(context.Background(), "1")
	assert.ErrorIs(t, err, ErrDeviceBusy)

	ds.Release()
	ds.Release()
	assert.False(t, svc.Busy("1"))

	_, err = ds.Handle(CommandMessage(Up))
	assert.ErrorIs(t, err, ErrSessionClosed)

	next, err := svc.Attach(context.Background(), "1")
	require.NoError(t, err)
	next.Release()
}

func TestAttachUnknownRobotReleasesLease(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Attach(context.Background(), "404")
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.False(t, svc.Busy("404"))
}
