package suppress

import (
	"context"
	"sync"
	"time"
)

// Memory is the single-process Store used in tests and single-node
// deployments. Expired entries are dropped lazily on read.
type Memory struct {
	mu   sync.Mutex
	last map[string]time.Time

	now func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{last: make(map[string]time.Time), now: time.Now}
}

// WithClock overrides the time source; test hook.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) ShouldSend(_ context.Context, tenantID, key string, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := tenantID + "/" + key
	ts, ok := m.last[k]
	if !ok {
		return true, nil
	}
	if m.now().Sub(ts) >= window {
		delete(m.last, k)
		return true, nil
	}
	return false, nil
}

func (m *Memory) MarkSent(_ context.Context, tenantID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[tenantID+"/"+key] = m.now()
	return nil
}
