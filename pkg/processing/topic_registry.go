package processing

import (
	"sort"
	"sync"

	"github.com/open-teleop/mission-control/pkg/config"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

// StateEventType is the message type recorded for robot state topics.
const StateEventType = "StateEvent"

// StateTopic returns the topic that carries state events for robotID.
func StateTopic(robotID string) string {
	return "robot." + robotID + ".state"
}

// TopicInfo holds metadata for a topic
type TopicInfo struct {
	Topic        string `json:"topic"`
	RobotID      string `json:"robot_id,omitempty"`
	MessageType  string `json:"type"`
	StatCount    int64  `json:"count"`
	LastReceived int64  `json:"last_received"`
}

// TopicRegistry maintains information about topics
type TopicRegistry struct {
	logger customlog.Logger
	topics map[string]*TopicInfo
	mu     sync.RWMutex
}

// NewTopicRegistry creates a new topic registry
func NewTopicRegistry(logger customlog.Logger) *TopicRegistry {
	return &TopicRegistry{
		logger: logger,
		topics: make(map[string]*TopicInfo),
	}
}

// LoadFromConfig registers the state topic of every fleet robot. Counters of
// topics that are already known are kept.
func (r *TopicRegistry) LoadFromConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rc := range cfg.Fleet {
		topic := StateTopic(rc.ID)
		if _, exists := r.topics[topic]; exists {
			continue
		}
		r.topics[topic] = &TopicInfo{
			Topic:       topic,
			RobotID:     rc.ID,
			MessageType: StateEventType,
		}
	}

	r.logger.Infof("Loaded %d topics into registry", len(r.topics))
}

// GetTopicInfo gets information for a topic
func (r *TopicRegistry) GetTopicInfo(topic string) (TopicInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.topics[topic]
	if !exists {
		return TopicInfo{}, false
	}
	return *info, true
}

// UpdateTopicStats updates statistics for a topic
func (r *TopicRegistry) UpdateTopicStats(topic string, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.topics[topic]
	if !exists {
		info = &TopicInfo{Topic: topic, MessageType: StateEventType}
		r.topics[topic] = info
	}

	info.StatCount++
	info.LastReceived = timestamp
}

// GetAllTopics returns every registered topic, sorted
func (r *TopicRegistry) GetAllTopics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.topics))
	for topic := range r.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// GetTopicStats returns a copy of every topic's statistics
func (r *TopicRegistry) GetTopicStats() map[string]TopicInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]TopicInfo, len(r.topics))
	for topic, info := range r.topics {
		stats[topic] = *info
	}
	return stats
}
