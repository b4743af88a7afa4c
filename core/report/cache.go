package report

import "sync"

// ListCache keeps the results of the reports list view until the next save.
type ListCache struct {
	mu      sync.RWMutex
	entries map[ListFilter][]StudentReport
}

var _ Invalidator = (*ListCache)(nil)

func NewListCache() *ListCache {
	return &ListCache{entries: make(map[ListFilter][]StudentReport)}
}

func (c *ListCache) Get(lf ListFilter) ([]StudentReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reports, ok := c.entries[lf]
	if !ok {
		return nil, false
	}
	return append([]StudentReport(nil), reports...), true
}

func (c *ListCache) Put(lf ListFilter, reports []StudentReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[lf] = append([]StudentReport(nil), reports...)
}

func (c *ListCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ListCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[ListFilter][]StudentReport)
}
