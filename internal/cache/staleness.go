package cache

import (
  "context"
  "sync"
  "time"
)

// StalenessCache retains the last successful per-domain feed payload so a
// failed fetch can degrade to recent data instead of failing the run.
// Payloads are opaque JSON; the aggregator owns their shape.
type StalenessCache interface {
  Put(ctx context.Context, depotID, domain string, payload []byte, fetchedAt time.Time) error
  Get(ctx context.Context, depotID, domain string) (payload []byte, fetchedAt time.Time, ok bool, err error)
}

type memoryEntry struct {
  payload   []byte
  fetchedAt time.Time
}

// MemoryCache is the redis-less StalenessCache used in tests and
// single-node deployments.
type MemoryCache struct {
  mu      sync.RWMutex
  entries map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
  return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Put(_ context.Context, depotID, domain string, payload []byte, fetchedAt time.Time) error {
  c.mu.Lock()
  defer c.mu.Unlock()
  buf := make([]byte, len(payload))
  copy(buf, payload)
  c.entries[depotID+"/"+domain] = memoryEntry{payload: buf, fetchedAt: fetchedAt}
  return nil
}

func (c *MemoryCache) Get(_ context.Context, depotID, domain string) ([]byte, time.Time, bool, error) {
  c.mu.RLock()
  defer c.mu.RUnlock()
  entry, ok := c.entries[depotID+"/"+domain]
  if !ok {
    return nil, time.Time{}, false, nil
  }
  return entry.payload, entry.fetchedAt, true, nil
}
