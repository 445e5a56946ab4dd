package processing

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

type recordingSink struct {
	mu     sync.Mutex
	name   string
	err    error
	events []teleop.StateEvent
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) PublishState(e teleop.StateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) seqs(robotID string) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, e := range s.events {
		if e.RobotID == robotID {
			out = append(out, e.Seq)
		}
	}
	return out
}

func testLogger() customlog.Logger {
	l, _ := test.NewNullLogger()
	return customlog.NewFromLogrus(l)
}

func TestEventPoolPreservesPerRobotOrder(t *testing.T) {
	logger := testLogger()
	topics := NewTopicRegistry(logger)
	pool := NewEventPool("state", 4, 128, topics, logger)
	sink := &recordingSink{name: "rec"}
	pool.AddSink(sink)
	pool.AddSink(NewLoggingSink(logger))
	pool.Start()

	for seq := uint64(1); seq <= 50; seq++ {
		for _, id := range []string{"1", "2", "3"} {
			require.NoError(t, pool.PublishState(teleop.StateEvent{RobotID: id, Seq: seq, Timestamp: int64(seq)}))
		}
	}
	pool.Stop()

	for _, id := range []string{"1", "2", "3"} {
		got := sink.seqs(id)
		require.Len(t, got, 50)
		for i, seq := range got {
			assert.Equal(t, uint64(i+1), seq, "robot %s events out of order", id)
		}
	}

	m := pool.GetMetrics()
	assert.Equal(t, int64(150), m.ProcessedCount)
	assert.Equal(t, int64(150), m.QueuedCount)
	assert.Zero(t, m.ErrorCount)

	info, ok := topics.GetTopicInfo(StateTopic("2"))
	require.True(t, ok)
	assert.Equal(t, int64(50), info.StatCount)
	assert.Equal(t, int64(50), info.LastReceived)
}

func TestEventPoolCountsSinkErrors(t *testing.T) {
	pool := NewEventPool("state", 1, 8, nil, testLogger())
	pool.AddSink(&recordingSink{name: "broken", err: errors.New("broker down")})
	pool.Start()

	require.NoError(t, pool.PublishState(teleop.StateEvent{RobotID: "1", Seq: 1}))
	pool.Stop()

	assert.Equal(t, int64(1), pool.GetMetrics().ErrorCount)
}

func TestEventPoolRejectsWhenStopped(t *testing.T) {
	pool := NewEventPool("state", 1, 1, nil, testLogger())
	assert.ErrorIs(t, pool.PublishState(teleop.StateEvent{RobotID: "1"}), ErrPoolNotRunning)

	pool.Start()
	pool.Stop()
	pool.Stop()
	assert.ErrorIs(t, pool.PublishState(teleop.StateEvent{RobotID: "1"}), ErrPoolNotRunning)
}

type blockingSink struct {
	release chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (b *blockingSink) Name() string { return "blocking" }

func (b *blockingSink) PublishState(teleop.StateEvent) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return nil
}

func TestEventPoolDropsWhenFull(t *testing.T) {
	pool := NewEventPool("state", 1, 1, nil, testLogger())
	sink := &blockingSink{release: make(chan struct{}), entered: make(chan struct{})}
	pool.AddSink(sink)
	pool.Start()

	require.NoError(t, pool.PublishState(teleop.StateEvent{RobotID: "1", Seq: 1}))
	select {
	case <-sink.entered:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the first event")
	}
	require.NoError(t, pool.PublishState(teleop.StateEvent{RobotID: "1", Seq: 2}))
	assert.ErrorIs(t, pool.PublishState(teleop.StateEvent{RobotID: "1", Seq: 3}), ErrQueueFull)

	close(sink.release)
	pool.Stop()

	m := pool.GetMetrics()
	assert.Equal(t, int64(1), m.DroppedCount)
	assert.Equal(t, int64(2), m.ProcessedCount)
	assert.Equal(t, 1, pool.GetQueueCapacity())
}

func TestTopicRegistryLoadFromConfig(t *testing.T) {
	r := NewTopicRegistry(testLogger())
	r.UpdateTopicStats(StateTopic("1"), 42)

	r.LoadFromConfig(&config.Config{Fleet: []config.RobotConfig{{ID: "1"}, {ID: "2"}}})

	assert.Equal(t, []string{"robot.1.state", "robot.2.state"}, r.GetAllTopics())
	stats := r.GetTopicStats()
	assert.Equal(t, int64(1), stats["robot.1.state"].StatCount)
	assert.Equal(t, "2", stats["robot.2.state"].RobotID)
	assert.Equal(t, StateEventType, stats["robot.2.state"].MessageType)
}
