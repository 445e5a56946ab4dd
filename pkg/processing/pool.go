package processing

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/open-teleop/mission-control/domain/teleop"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

var (
	// ErrPoolNotRunning is returned when publishing to a stopped pool.
	ErrPoolNotRunning = errors.New("event pool not running")
	// ErrQueueFull is returned when the shard queue of a robot is full.
	ErrQueueFull = errors.New("event pool queue full")
)

// Sink receives every state event handled by the pool.
type Sink interface {
	Name() string
	PublishState(event teleop.StateEvent) error
}

// EventPool fans state events out to sinks. Events are sharded by robot id
// so the events of one robot are delivered in order.
type EventPool struct {
	name        string
	workerCount int
	queueSize   int
	logger      customlog.Logger
	topics      *TopicRegistry
	shards      []chan teleop.StateEvent
	sinks       []Sink
	running     bool
	stopped     bool
	wg          sync.WaitGroup
	mu          sync.RWMutex
	metricsMu   sync.Mutex
	metrics     PoolMetrics
}

var _ teleop.StatePublisher = (*EventPool)(nil)

// PoolMetrics tracks metrics for a pool
type PoolMetrics struct {
	ProcessedCount    int64 `json:"processed"`
	ErrorCount        int64 `json:"errors"`
	QueuedCount       int64 `json:"queued"`
	DroppedCount      int64 `json:"dropped"`
	LastProcessedTime int64 `json:"last_processed"`
	ProcessingTimeAvg int64 `json:"processing_time_avg_us"`
	ProcessingTimeMax int64 `json:"processing_time_max_us"`
}

// NewEventPool creates a pool with workerCount shards of queueSize each.
// topics may be nil.
func NewEventPool(name string, workerCount int, queueSize int, topics *TopicRegistry, logger customlog.Logger) *EventPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	shards := make([]chan teleop.StateEvent, workerCount)
	for i := range shards {
		shards[i] = make(chan teleop.StateEvent, queueSize)
	}
	return &EventPool{
		name:        name,
		workerCount: workerCount,
		queueSize:   queueSize,
		logger:      logger,
		topics:      topics,
		shards:      shards,
	}
}

// AddSink registers a sink. Sinks added after Start are picked up by the
// next event.
func (p *EventPool) AddSink(s Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks = append(p.sinks, s)
	p.logger.Infof("%s pool: added sink %s", p.name, s.Name())
}

// Start starts the pool workers
func (p *EventPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.stopped {
		return
	}

	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, p.shards[i])
	}
}

// Stop drains the queues and waits for the workers. A stopped pool cannot
// be restarted.
func (p *EventPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	for _, shard := range p.shards {
		close(shard)
	}
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)
	p.wg.Wait()
	p.logger.Infof("%s pool stopped", p.name)

	p.logMetrics()
}

// PublishState enqueues event without blocking.
func (p *EventPool) PublishState(event teleop.StateEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return ErrPoolNotRunning
	}

	select {
	case p.shards[p.shardFor(event.RobotID)] <- event:
		p.metricsMu.Lock()
		p.metrics.QueuedCount++
		p.metricsMu.Unlock()
		return nil
	default:
		p.metricsMu.Lock()
		p.metrics.DroppedCount++
		p.metricsMu.Unlock()
		p.logger.Warnf("%s pool queue is full, discarding event for robot %s seq=%d", p.name, event.RobotID, event.Seq)
		return ErrQueueFull
	}
}

func (p *EventPool) shardFor(robotID string) int {
	h := fnv.New32a()
	h.Write([]byte(robotID))
	return int(h.Sum32() % uint32(len(p.shards)))
}

func (p *EventPool) worker(id int, queue <-chan teleop.StateEvent) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for event := range queue {
		p.mu.RLock()
		sinks := p.sinks
		p.mu.RUnlock()

		startTime := time.Now()
		failed := false
		for _, s := range sinks {
			if err := s.PublishState(event); err != nil {
				failed = true
				p.logger.Errorf("%s pool: sink %s failed for robot %s seq=%d: %v", p.name, s.Name(), event.RobotID, event.Seq, err)
			}
		}
		processingTime := time.Since(startTime).Microseconds()

		if p.topics != nil {
			p.topics.UpdateTopicStats(StateTopic(event.RobotID), event.Timestamp)
		}

		p.metricsMu.Lock()
		p.metrics.ProcessedCount++
		p.metrics.LastProcessedTime = time.Now().UnixNano()
		if p.metrics.ProcessingTimeAvg == 0 {
			p.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > p.metrics.ProcessingTimeMax {
			p.metrics.ProcessingTimeMax = processingTime
		}
		if failed {
			p.metrics.ErrorCount++
		}
		p.metricsMu.Unlock()
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

// GetMetrics returns a copy of the current metrics
func (p *EventPool) GetMetrics() PoolMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	return p.metrics
}

func (p *EventPool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, dropped=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.DroppedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *EventPool) GetName() string {
	return p.name
}

// GetQueueLength returns the number of queued events across all shards
func (p *EventPool) GetQueueLength() int {
	n := 0
	for _, shard := range p.shards {
		n += len(shard)
	}
	return n
}

// GetQueueCapacity returns the total queue capacity
func (p *EventPool) GetQueueCapacity() int {
	return p.queueSize * p.workerCount
}
