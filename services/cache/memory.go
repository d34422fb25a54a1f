package cachesvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

type memoryEntry struct {
	table string
	data  []byte
}

// Memory is a process-local cache. Entries are stored JSON encoded so that callers never share values.
// Expired entries are swept every ttl, which also drops them from the table index.
type Memory struct {
	entries *gocache.Cache
	mutex   sync.Mutex
	tables  map[string]map[string]struct{}
}

var _ core.Cache = (*Memory)(nil)

// NewMemory returns a cache whose entries live ttl (forever when ttl <= 0).
func NewMemory(ttl time.Duration) *Memory {
	expiration, sweep := ttl, ttl
	if ttl <= 0 {
		expiration, sweep = gocache.NoExpiration, 0
	}
	m := &Memory{
		entries: gocache.New(expiration, sweep),
		tables:  make(map[string]map[string]struct{}),
	}
	m.entries.OnEvicted(m.untrack)
	return m
}

func (m *Memory) untrack(key string, val interface{}) {
	e, ok := val.(memoryEntry)
	if !ok {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if keys, ok := m.tables[e.table]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.tables, e.table)
		}
	}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	val, ok := m.entries.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(val.(memoryEntry).data, dest); err != nil {
		return false, errors.Wrap(err, "decoding cache entry")
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, table, key string, val interface{}) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "encoding cache entry")
	}

	m.mutex.Lock()
	keys, ok := m.tables[table]
	if !ok {
		keys = make(map[string]struct{})
		m.tables[table] = keys
	}
	keys[key] = struct{}{}
	m.mutex.Unlock()

	m.entries.SetDefault(key, memoryEntry{table: table, data: data})
	return nil
}

func (m *Memory) InvalidateTable(_ context.Context, table string) error {
	m.mutex.Lock()
	keys := m.tables[table]
	delete(m.tables, table)
	m.mutex.Unlock()

	// eviction callbacks take the mutex
	for key := range keys {
		m.entries.Delete(key)
	}
	return nil
}

// Len returns the number of live entries and of indexed tables.
func (m *Memory) Len() (entries, tables int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.entries.ItemCount(), len(m.tables)
}
