package diagnostic

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/mission-control/pkg/processing"
)

// SystemMetrics is the controller health report served on /api/diagnostics.
type SystemMetrics struct {
	Timestamp    time.Time                       `json:"timestamp"`
	Uptime       string                          `json:"uptime"`
	RobotCount   int                             `json:"robot_count"`
	ActiveLeases []string                        `json:"active_leases"`
	StatePool    PoolReport                      `json:"state_pool"`
	Topics       map[string]processing.TopicInfo `json:"topics"`
	Transports   map[string]bool                 `json:"transports"`
}

// PoolReport describes the state event pool.
type PoolReport struct {
	Name          string                 `json:"name"`
	QueueLength   int                    `json:"queue_length"`
	QueueCapacity int                    `json:"queue_capacity"`
	Metrics       processing.PoolMetrics `json:"metrics"`
}

// Pool is the read side of processing.EventPool.
type Pool interface {
	GetName() string
	GetMetrics() processing.PoolMetrics
	GetQueueLength() int
	GetQueueCapacity() int
}

var _ Pool = (*processing.EventPool)(nil)

// Sources are the components a report is assembled from. Any may be nil.
type Sources struct {
	Robots interface{ Count() int }
	Leases interface{ Leased() []string }
	Pool   Pool
	Topics interface {
		GetTopicStats() map[string]processing.TopicInfo
	}
}

// DiagnosticService handles system diagnostics.
type DiagnosticService struct {
	sources Sources
	started time.Time

	mu         sync.RWMutex
	transports map[string]bool
}

// NewDiagnosticService creates a new diagnostic service instance.
func NewDiagnosticService(sources Sources) *DiagnosticService {
	return &DiagnosticService{
		sources:    sources,
		started:    time.Now(),
		transports: make(map[string]bool),
	}
}

// SetTransport records whether an observer transport (zeromq, mqtt) is up.
func (s *DiagnosticService) SetTransport(name string, up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transports[name] = up
}

// GetMetrics assembles a report from the current state of every source.
func (s *DiagnosticService) GetMetrics() SystemMetrics {
	m := SystemMetrics{
		Timestamp:    time.Now(),
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		ActiveLeases: []string{},
		Topics:       map[string]processing.TopicInfo{},
		Transports:   map[string]bool{},
	}
	if s.sources.Robots != nil {
		m.RobotCount = s.sources.Robots.Count()
	}
	if s.sources.Leases != nil {
		m.ActiveLeases = s.sources.Leases.Leased()
	}
	if s.sources.Pool != nil {
		m.StatePool = PoolReport{
			Name:          s.sources.Pool.GetName(),
			QueueLength:   s.sources.Pool.GetQueueLength(),
			QueueCapacity: s.sources.Pool.GetQueueCapacity(),
			Metrics:       s.sources.Pool.GetMetrics(),
		}
	}
	if s.sources.Topics != nil {
		m.Topics = s.sources.Topics.GetTopicStats()
	}

	s.mu.RLock()
	for k, v := range s.transports {
		m.Transports[k] = v
	}
	s.mu.RUnlock()
	return m
}

// GetMetricsHandler handles API requests for system metrics.
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetMetrics(),
	})
}
