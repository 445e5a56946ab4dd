package teleop

import (
	"fmt"
	"sort"
	"sync"
)

// LeaseManager grants at most one holder per device.
type LeaseManager struct {
	mu      sync.Mutex
	holders map[string]string
}

// NewLeaseManager creates an empty lease table.
func NewLeaseManager() *LeaseManager {
	return &LeaseManager{holders: make(map[string]string)}
}

// Acquire leases deviceID to holder. The returned release func is idempotent.
func (m *LeaseManager) Acquire(deviceID, holder string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.holders[deviceID]; ok {
		return nil, fmt.Errorf("%w: robot %s held by %s", ErrDeviceBusy, deviceID, current)
	}
	m.holders[deviceID] = holder

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.holders[deviceID] == holder {
				delete(m.holders, deviceID)
			}
		})
	}, nil
}

// Held reports whether deviceID is leased.
func (m *LeaseManager) Held(deviceID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.holders[deviceID]
	return ok
}

// Leased returns the leased device ids, sorted.
func (m *LeaseManager) Leased() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.holders))
	for id := range m.holders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
